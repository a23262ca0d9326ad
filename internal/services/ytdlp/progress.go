package ytdlp

import (
	"regexp"
	"strconv"
	"strings"

	"appdl/internal/media"
)

var (
	rePercent = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)%`)
	reOf      = regexp.MustCompile(`\bof\s+~?\s*([0-9.]+)\s*([KMGT]i?B)`)
	reSpeed   = regexp.MustCompile(`\bat\s+([^\s]+)`)
	reETA     = regexp.MustCompile(`\bETA\s+([0-9:]+)`)
)

// parseProgress interprets one yt-dlp output line. Lines that carry no
// progress information return false.
func parseProgress(line string) (media.Progress, bool) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "[download]"):
		m := rePercent.FindStringSubmatch(line)
		if len(m) < 2 {
			return media.Progress{}, false
		}
		percent, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return media.Progress{}, false
		}
		p := media.Progress{Percent: percent, Phase: "downloading"}
		if m := reOf.FindStringSubmatch(line); len(m) > 2 {
			p.TotalBytes = parseSize(m[1], m[2])
			if p.TotalBytes > 0 {
				p.DownloadedBytes = int64(float64(p.TotalBytes) * percent / 100)
			}
		}
		if m := reSpeed.FindStringSubmatch(line); len(m) > 1 && m[1] != "Unknown" {
			p.Speed = m[1]
		}
		if m := reETA.FindStringSubmatch(line); len(m) > 1 {
			p.ETA = m[1]
		}
		return p, true
	case strings.HasPrefix(line, "[Merger]"), strings.HasPrefix(line, "[ExtractAudio]"),
		strings.HasPrefix(line, "[FixupM3u8]"), strings.HasPrefix(line, "[VideoConvertor]"):
		return media.Progress{Percent: -1, Phase: "postprocessing"}, true
	case strings.HasPrefix(line, "[info]"):
		return media.Progress{Percent: -1, Phase: "preparing"}, true
	}
	return media.Progress{}, false
}

var sizeUnits = map[string]float64{
	"B":   1,
	"KiB": 1 << 10,
	"MiB": 1 << 20,
	"GiB": 1 << 30,
	"TiB": 1 << 40,
	"KB":  1e3,
	"MB":  1e6,
	"GB":  1e9,
	"TB":  1e12,
}

func parseSize(value, unit string) int64 {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	mult, ok := sizeUnits[unit]
	if !ok {
		return 0
	}
	return int64(n * mult)
}
