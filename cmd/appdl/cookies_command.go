package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"appdl/internal/apiclient"
	"appdl/internal/config"
	"appdl/internal/media"
)

func newCookiesCommand(ctx *commandContext) *cobra.Command {
	cookiesCmd := &cobra.Command{
		Use:   "cookies",
		Short: "Manage cookies used for authenticated downloads",
	}

	cookiesCmd.AddCommand(&cobra.Command{
		Use:   "import <url> <file>",
		Short: "Replace the cookies stored for the site of <url>",
		Long: "Reads a JSON array of browser cookies (or an object with a \"cookies\" array)\n" +
			"or a Netscape cookies.txt file and replaces the daemon's cookies for the site.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read cookie file: %w", err)
			}
			cookies, err := parseCookieFile(data)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *apiclient.Client) error {
				count, err := client.UpdateCookies(cmd.Context(), strings.TrimSpace(args[0]), cookies)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"status": "ok", "count": count})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %d cookie(s)\n", count)
				return nil
			})
		},
	})

	return cookiesCmd
}

func parseCookieFile(data []byte) ([]media.Cookie, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("cookie file is empty")
	}
	switch trimmed[0] {
	case '[':
		var cookies []media.Cookie
		if err := json.Unmarshal(trimmed, &cookies); err != nil {
			return nil, fmt.Errorf("parse cookie json: %w", err)
		}
		return cookies, nil
	case '{':
		var wrapper struct {
			Cookies []media.Cookie `json:"cookies"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("parse cookie json: %w", err)
		}
		return wrapper.Cookies, nil
	default:
		return parseNetscapeCookies(trimmed)
	}
}

// parseNetscapeCookies reads the tab separated cookies.txt format:
// domain, include-subdomains, path, secure, expiry, name, value.
func parseNetscapeCookies(data []byte) ([]media.Cookie, error) {
	var cookies []media.Cookie
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		httpOnly := false
		if rest, ok := strings.CutPrefix(line, "#HttpOnly_"); ok {
			line = rest
			httpOnly = true
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("cookies.txt line %d: expected 7 tab separated fields, got %d", lineNo, len(fields))
		}
		expires, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("cookies.txt line %d: invalid expiry %q", lineNo, fields[4])
		}
		cookies = append(cookies, media.Cookie{
			Domain:   fields[0],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Expires:  expires,
			Name:     fields[5],
			Value:    fields[6],
			HTTPOnly: httpOnly,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}
