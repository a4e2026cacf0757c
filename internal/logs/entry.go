package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"silkstaff/internal/logging"
)

// Entry is one decoded JSON log line.
type Entry struct {
	Time      time.Time
	Level     slog.Level
	Message   string
	Job       string
	StepIndex int
	HasStep   bool
	RunID     string
	Error     string
	Raw       string
}

// ParseEntry decodes a line written by the JSON log handler. Lines that are
// not JSON objects report false.
func ParseEntry(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Entry{}, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Entry{}, false
	}
	entry := Entry{Raw: line}
	if ts, ok := fields["ts"].(string); ok {
		entry.Time, _ = time.Parse(time.RFC3339Nano, ts)
	}
	if level, ok := fields["level"].(string); ok {
		_ = entry.Level.UnmarshalText([]byte(level))
	}
	entry.Message, _ = fields[slog.MessageKey].(string)
	entry.Job, _ = fields[logging.FieldJob].(string)
	entry.RunID, _ = fields[logging.FieldRunID].(string)
	entry.Error, _ = fields["error"].(string)
	if step, ok := fields[logging.FieldStepIndex].(float64); ok {
		entry.StepIndex = int(step)
		entry.HasStep = true
	}
	return entry, true
}

// Filter narrows entries. Zero-valued fields match everything.
type Filter struct {
	Job      string
	RunID    string
	MinLevel slog.Level
}

// Match reports whether entry passes the filter.
func (f Filter) Match(entry Entry) bool {
	if entry.Level < f.MinLevel {
		return false
	}
	if f.Job != "" && !strings.EqualFold(entry.Job, f.Job) {
		return false
	}
	if f.RunID != "" && !strings.HasPrefix(entry.RunID, f.RunID) {
		return false
	}
	return true
}

// Format renders entry as a single human readable line.
func Format(entry Entry) string {
	var b strings.Builder
	if !entry.Time.IsZero() {
		b.WriteString(entry.Time.Local().Format(time.DateTime))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", entry.Level.String())
	if entry.Job != "" {
		b.WriteByte('[')
		b.WriteString(entry.Job)
		if entry.HasStep {
			fmt.Fprintf(&b, " #%d", entry.StepIndex+1)
		}
		b.WriteString("] ")
	}
	b.WriteString(entry.Message)
	if entry.Error != "" {
		b.WriteString(": ")
		b.WriteString(entry.Error)
	}
	return b.String()
}
