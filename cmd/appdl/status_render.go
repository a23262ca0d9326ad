package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var statusColors = map[statusKind]*color.Color{
	statusOK:    color.New(color.FgGreen),
	statusWarn:  color.New(color.FgYellow),
	statusError: color.New(color.FgRed),
	statusInfo:  color.New(color.FgBlue),
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return paint(base, statusColors[kind], colorize)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	return []string{
		paint(line, statusColors[statusInfo], colorize),
		paint(rule, statusColors[statusInfo], colorize),
	}
}

// paint applies c regardless of the package-level NoColor detection, which
// looks at os.Stdout rather than the command's writer.
func paint(s string, c *color.Color, colorize bool) string {
	if !colorize || c == nil {
		return s
	}
	painted := *c
	painted.EnableColor()
	return painted.Sprint(s)
}

func shouldColorize(writer io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusKindForJob(status string) statusKind {
	switch status {
	case "completed":
		return statusOK
	case "failed":
		return statusError
	case "paused", "cancelled":
		return statusWarn
	default:
		return statusInfo
	}
}
