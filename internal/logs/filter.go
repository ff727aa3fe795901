package logs

import (
	"encoding/json"
	"log/slog"
	"strings"

	"reawwise/internal/logging"
)

// Filter narrows Tail output. The zero Filter matches every line.
type Filter struct {
	Component string
	Session   string
	// MinLevel is one of debug, info, warn or error.
	MinLevel string
}

func (f Filter) empty() bool {
	return f.Component == "" && f.Session == "" && strings.TrimSpace(f.MinLevel) == ""
}

// Match reports whether line passes the filter. JSON lines are matched on
// their fields; console lines on the level column, the "[component]" tag and
// the subject.
func (f Filter) Match(line string) bool {
	if f.empty() {
		return true
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "{") {
		var record map[string]any
		if err := json.Unmarshal([]byte(trimmed), &record); err == nil {
			return f.matchRecord(record)
		}
	}
	return f.matchConsole(trimmed)
}

func (f Filter) matchRecord(record map[string]any) bool {
	field := func(key string) string {
		value, _ := record[key].(string)
		return value
	}
	if !f.levelAllows(field("level")) {
		return false
	}
	if f.Component != "" && !strings.EqualFold(field(logging.FieldComponent), f.Component) {
		return false
	}
	if f.Session != "" && field(logging.FieldSession) != f.Session {
		return false
	}
	return true
}

func (f Filter) matchConsole(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return false
	}
	if !f.levelAllows(fields[2]) {
		return false
	}
	if f.Component != "" && !strings.Contains(strings.ToLower(line), "["+strings.ToLower(f.Component)+"]") {
		return false
	}
	if f.Session != "" && !strings.Contains(line, " "+f.Session+" ") {
		return false
	}
	return true
}

// levelAllows reports whether a line at level passes MinLevel. An
// unrecognized MinLevel admits everything; an unrecognized line level is
// admitted only at debug.
func (f Filter) levelAllows(level string) bool {
	floor, ok := logging.ParseLevel(f.MinLevel)
	if !ok || floor <= slog.LevelDebug {
		return true
	}
	got, ok := logging.ParseLevel(level)
	return ok && got >= floor
}
