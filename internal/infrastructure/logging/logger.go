package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
	"github.com/atlasvoyages/cruisesync/internal/infrastructure/config"
)

// severity orders log levels for threshold filtering
var severity = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// StdLogger writes leveled log lines to a stream. It implements the
// application Logger interface; format is either "text" or "json".
type StdLogger struct {
	mu       sync.Mutex
	out      io.Writer
	clock    shared.Clock
	minLevel int
	jsonFmt  bool
}

// NewLogger builds a logger from configuration. Unknown levels fall back
// to info, unknown outputs to stdout.
func NewLogger(cfg *config.LoggingConfig, clock shared.Clock) *StdLogger {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	out := io.Writer(os.Stdout)
	if cfg != nil && cfg.Output == "stderr" {
		out = os.Stderr
	}
	minLevel := severity["info"]
	jsonFmt := false
	if cfg != nil {
		if lvl, ok := severity[strings.ToLower(cfg.Level)]; ok {
			minLevel = lvl
		}
		jsonFmt = strings.EqualFold(cfg.Format, "json")
	}
	return &StdLogger{out: out, clock: clock, minLevel: minLevel, jsonFmt: jsonFmt}
}

// NewWriterLogger builds a logger writing to an arbitrary stream; used
// by tests to capture output.
func NewWriterLogger(out io.Writer, level, format string, clock shared.Clock) *StdLogger {
	return NewLogger(&config.LoggingConfig{Level: level, Format: format}, clock).withOutput(out)
}

func (l *StdLogger) withOutput(out io.Writer) *StdLogger {
	l.out = out
	return l
}

// Log writes one line when the level clears the configured threshold
func (l *StdLogger) Log(level, message string, metadata map[string]interface{}) {
	sev, ok := severity[strings.ToLower(level)]
	if !ok {
		sev = severity["info"]
		level = "info"
	}
	if sev < l.minLevel {
		return
	}

	now := l.clock.Now().UTC()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonFmt {
		entry := map[string]interface{}{
			"time":    now.Format("2006-01-02T15:04:05.000Z07:00"),
			"level":   level,
			"message": message,
		}
		for k, v := range metadata {
			entry[k] = v
		}
		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(l.out, "{\"level\":\"error\",\"message\":\"log marshal failed: %s\"}\n", err)
			return
		}
		l.out.Write(append(data, '\n'))
		return
	}

	var sb strings.Builder
	sb.WriteString(now.Format("2006-01-02 15:04:05"))
	sb.WriteString(" [")
	sb.WriteString(strings.ToUpper(level))
	sb.WriteString("] ")
	sb.WriteString(message)
	if len(metadata) > 0 {
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(" ")
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(fmt.Sprintf("%v", metadata[k]))
		}
	}
	sb.WriteString("\n")
	l.out.Write([]byte(sb.String()))
}
