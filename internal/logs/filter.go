package logs

import (
	"strings"

	"github.com/goccy/go-json"

	"fontana/internal/logging"
)

// Entry is the parsed head of one log line.
type Entry struct {
	Time      string
	Level     string
	Component string
	Message   string
}

// Parse reads a JSON handler line or a console handler line
// ("<time> <LEVEL> <component>: <message> ..."). ok is false for any other
// text, such as a panic trace.
func Parse(line string) (Entry, bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		var raw map[string]any
		if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
			return Entry{}, false
		}
		entry := Entry{
			Time:      asString(raw["ts"]),
			Level:     strings.ToUpper(asString(raw["level"])),
			Component: asString(raw[logging.FieldComponent]),
			Message:   asString(raw["msg"]),
		}
		return entry, entry.Level != ""
	}

	fields := strings.SplitN(trimmed, " ", 3)
	if len(fields) < 2 {
		return Entry{}, false
	}
	level := strings.ToUpper(fields[1])
	if levelRank(level) < 0 {
		return Entry{}, false
	}
	entry := Entry{Time: fields[0], Level: level}
	if len(fields) == 3 {
		rest := fields[2]
		if head, msg, found := strings.Cut(rest, ": "); found && !strings.ContainsAny(head, " =") {
			entry.Component = head
			rest = msg
		}
		entry.Message = rest
	}
	return entry, true
}

// Filter selects log lines by minimum level and component.
type Filter struct {
	Level     string
	Component string
}

// Match reports whether line passes the filter. Unparseable lines pass
// only when the filter is empty.
func (f Filter) Match(line string) bool {
	minLevel := strings.ToUpper(strings.TrimSpace(f.Level))
	component := strings.TrimSpace(f.Component)
	if minLevel == "" && component == "" {
		return true
	}
	entry, ok := Parse(line)
	if !ok {
		return false
	}
	if minLevel != "" && levelRank(entry.Level) < levelRank(minLevel) {
		return false
	}
	if component != "" && !strings.EqualFold(entry.Component, component) {
		return false
	}
	return true
}

func levelRank(level string) int {
	switch level {
	case "DEBUG":
		return 0
	case "INFO":
		return 1
	case "WARN", "WARNING":
		return 2
	case "ERROR":
		return 3
	default:
		return -1
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
