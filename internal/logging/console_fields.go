package logging

import (
	"log/slog"
	"strconv"
	"strings"
)

type infoField struct {
	label string
	value string
}

// Keys rendered first, in this order, when present.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldErrorKind,
	"error",
	FieldErrorHint,
	FieldImpact,
	FieldDecisionType,
	"decision_result",
	"decision_reason",
	"status",
	"from_status",
	"to_status",
	"attempt",
	FieldProgressPercent,
	"title",
	"source_url",
	"media_id",
	"size_bytes",
}

func selectFields(attrs []kv, includeDebug bool) []infoField {
	if len(attrs) == 0 {
		return nil
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, len(attrs))
	add := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if skipKey(attr.key) {
			return
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: formatValueForKey(attr.key, attr.value)})
	}
	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				add(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			add(idx)
		}
	}
	return result
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	if strings.HasSuffix(key, "_bytes") && v.Kind() == slog.KindInt64 {
		return formatBytes(v.Int64())
	}
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" && len(value) > 240 {
		value = value[:240] + "..."
	}
	return value
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return formatInt(n) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	whole := n / div
	tenth := (n % div) * 10 / div
	return formatInt(whole) + "." + formatInt(tenth) + " " + string("KMGTPE"[exp]) + "iB"
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func skipKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldJobID, FieldPlatform:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case FieldCorrelationID, "remote_addr", "user_agent", "command":
		return true
	}
	return strings.HasSuffix(key, "_path") || strings.HasSuffix(key, "_dir")
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorKind:
		return "Error Kind"
	case FieldErrorHint:
		return "Hint"
	case FieldDecisionType:
		return "Decision"
	case "decision_result":
		return "Result"
	case "decision_reason":
		return "Reason"
	case FieldProgressPercent:
		return "Progress"
	case "size_bytes":
		return "Size"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	switch len(value) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(value)
	default:
		lower := strings.ToLower(value)
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
}
