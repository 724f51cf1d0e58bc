package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// WriterLogger implements Logger by writing structured output to an
// io.Writer, in either human-readable text or one-JSON-object-per-line
// mode. Grounded on the teacher's LogEmitter (graph/emit/log.go).
type WriterLogger struct {
	mu       sync.Mutex
	w        io.Writer
	jsonMode bool
	minLevel Level
}

// NewWriterLogger creates a WriterLogger writing to w. jsonMode selects
// JSON-lines output over "[LEVEL] msg key=value ..." text.
func NewWriterLogger(w io.Writer, jsonMode bool, minLevel Level) *WriterLogger {
	return &WriterLogger{w: w, jsonMode: jsonMode, minLevel: minLevel}
}

func (l *WriterLogger) log(level Level, msg string, kv []any) {
	if level < l.minLevel {
		return
	}
	fields := fieldsFrom(kv)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.jsonMode {
		rec := map[string]any{"level": level.String(), "msg": msg}
		for _, f := range fields {
			rec[f.Key] = f.Value
		}
		enc := json.NewEncoder(l.w)
		_ = enc.Encode(rec)
		return
	}
	fmt.Fprintf(l.w, "[%s] %s", level.String(), msg)
	for _, f := range fields {
		fmt.Fprintf(l.w, " %s=%v", f.Key, f.Value)
	}
	fmt.Fprintln(l.w)
}

func (l *WriterLogger) Debug(msg string, kv ...any)   { l.log(Debug, msg, kv) }
func (l *WriterLogger) Config(msg string, kv ...any)  { l.log(Config, msg, kv) }
func (l *WriterLogger) Info(msg string, kv ...any)    { l.log(Info, msg, kv) }
func (l *WriterLogger) Warning(msg string, kv ...any) { l.log(Warning, msg, kv) }
func (l *WriterLogger) Severe(msg string, kv ...any)  { l.log(Severe, msg, kv) }
