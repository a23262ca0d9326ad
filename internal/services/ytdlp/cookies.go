package ytdlp

import (
	"fmt"
	"os"
	"strings"

	"appdl/internal/media"
)

const cookieFileName = "cookies.txt"

// writeCookieFile renders cookies in the Netscape format yt-dlp reads with
// --cookies.
func writeCookieFile(path string, cookies []media.Cookie) error {
	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	for _, c := range cookies {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		domain := strings.TrimSpace(c.Domain)
		if domain == "" {
			continue
		}
		includeSub := "FALSE"
		if strings.HasPrefix(domain, ".") {
			includeSub = "TRUE"
		}
		if c.HTTPOnly {
			domain = "#HttpOnly_" + domain
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		secure := "FALSE"
		if c.Secure {
			secure = "TRUE"
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			domain, includeSub, path, secure, int64(c.Expires), name, sanitizeCookieValue(c.Value))
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

func sanitizeCookieValue(value string) string {
	return strings.NewReplacer("\t", "", "\n", "", "\r", "").Replace(value)
}
