// Package console writes human readable log lines, one per entry:
//
//	2024-03-14T15:09:26.535Z WARN  [freeze.posts] posts.file.skipped collection=news path=a.md error="no date"
//
// Location fields (collection, route, path, slug) come first so the lines of
// one collection or route line up; the rest follow in key order.
package console

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-freeze/internal/logging"
	"github.com/goliatone/go-freeze/pkg/interfaces"
)

// Level represents the severity attached to a log entry.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "INFO"
}

// ParseLevel maps a configured level name onto a Level. The boolean is false
// for unknown names.
func ParseLevel(name string) (Level, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	for i, label := range levelNames {
		if strings.ToLower(label) == name {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

// TimeLayout is the default timestamp layout, UTC with milliseconds.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// leadingKeys are printed before every other field, in this order.
var leadingKeys = []string{"collection", "route", "path", "slug"}

// Options configures the console logger provider.
type Options struct {
	Writer     io.Writer
	TimeFunc   func() time.Time
	TimeLayout string
	// MinLevel defaults to LevelDebug.
	MinLevel *Level
}

type provider struct {
	writer   io.Writer
	clock    func() time.Time
	layout   string
	minLevel Level
	mu       sync.Mutex
}

// NewProvider constructs a provider writing to opts.Writer, stdout by default.
func NewProvider(opts Options) interfaces.LoggerProvider {
	p := &provider{
		writer:   opts.Writer,
		clock:    opts.TimeFunc,
		layout:   opts.TimeLayout,
		minLevel: LevelDebug,
	}
	if p.writer == nil {
		p.writer = os.Stdout
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.layout == "" {
		p.layout = TimeLayout
	}
	if opts.MinLevel != nil {
		p.minLevel = *opts.MinLevel
	}
	return p
}

func (p *provider) GetLogger(name string) interfaces.Logger {
	return &consoleLogger{provider: p, name: name}
}

func (p *provider) write(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.writer, line)
}

type consoleLogger struct {
	provider *provider
	name     string
	fields   map[string]any
	ctx      context.Context
}

var (
	_ interfaces.Logger       = (*consoleLogger)(nil)
	_ interfaces.FieldsLogger = (*consoleLogger)(nil)
)

func (l *consoleLogger) Trace(msg string, args ...any) { l.log(LevelTrace, msg, args) }
func (l *consoleLogger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args) }
func (l *consoleLogger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args) }
func (l *consoleLogger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args) }
func (l *consoleLogger) Error(msg string, args ...any) { l.log(LevelError, msg, args) }
func (l *consoleLogger) Fatal(msg string, args ...any) { l.log(LevelFatal, msg, args) }

func (l *consoleLogger) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	next := *l
	next.fields = maps.Clone(l.fields)
	if next.fields == nil {
		next.fields = make(map[string]any, len(fields))
	}
	maps.Copy(next.fields, fields)
	return &next
}

func (l *consoleLogger) WithContext(ctx context.Context) interfaces.Logger {
	next := *l
	next.ctx = ctx
	return &next
}

func (l *consoleLogger) log(level Level, msg string, args []any) {
	p := l.provider
	if p == nil || level < p.minLevel {
		return
	}

	fields := maps.Clone(l.fields)
	if fields == nil {
		fields = map[string]any{}
	}
	maps.Copy(fields, logging.ContextFields(l.ctx))
	addArgs(fields, args)
	// the bracketed logger name already shows the module
	if fields["module"] == l.name {
		delete(fields, "module")
	}

	var b strings.Builder
	b.WriteString(p.clock().UTC().Format(p.layout))
	fmt.Fprintf(&b, " %-5s", level)
	if l.name != "" {
		b.WriteString(" [" + l.name + "]")
	}
	b.WriteString(" " + msg)
	for _, key := range orderedKeys(fields) {
		b.WriteString(" " + key + "=" + formatValue(fields[key]))
	}
	b.WriteByte('\n')
	p.write(b.String())
}

// addArgs folds alternating key/value args into fields. A value without a
// key, or with a non-string key, is stored as field_N.
func addArgs(fields map[string]any, args []any) {
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			fields["field_"+strconv.Itoa(i/2)] = args[i]
			return
		}
		key, ok := args[i].(string)
		if !ok || key == "" {
			key = "field_" + strconv.Itoa(i/2)
		}
		fields[key] = args[i+1]
	}
}

func orderedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for _, key := range leadingKeys {
		if _, ok := fields[key]; ok {
			keys = append(keys, key)
		}
	}
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		if !slices.Contains(leadingKeys, key) {
			keys = append(keys, key)
		}
	}
	return keys
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return quote(v)
	case time.Time:
		return quote(v.UTC().Format(time.RFC3339Nano))
	case time.Duration:
		return v.String()
	case error:
		return quote(v.Error())
	case fmt.Stringer:
		return quote(v.String())
	case []string:
		return quote(strings.Join(v, ","))
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return quote(fmt.Sprint(v))
	}
}

func quote(value string) string {
	if value == "" || strings.ContainsFunc(value, func(r rune) bool {
		return r <= ' ' || r == '=' || r == '"'
	}) {
		return strconv.Quote(value)
	}
	return value
}
