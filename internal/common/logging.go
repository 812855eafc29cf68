// Package common provides shared utilities for the leaderboard scraper.
package common

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/phuslu/log"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/writers"
)

const (
	logTimeFormat     = "2006-01-02T15:04:05Z07:00"
	defaultLogFile    = "logs/leaderboard.log"
	defaultLogBytes   = 500 * 1024
	defaultLogBackups = 10
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"` // console, file
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

func (c LoggingConfig) level() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

func (c LoggingConfig) outputs() []string {
	if len(c.Outputs) == 0 {
		return []string{"console"}
	}
	return c.Outputs
}

func (c LoggingConfig) fileWriter() models.WriterConfiguration {
	path := c.FilePath
	if path == "" {
		path = defaultLogFile
	}
	size := int64(c.MaxSizeMB) * 1024 * 1024
	if size <= 0 {
		size = defaultLogBytes
	}
	backups := c.MaxBackups
	if backups <= 0 {
		backups = defaultLogBackups
	}
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeFile,
		FileName:   path,
		MaxSize:    size,
		MaxBackups: backups,
		TimeFormat: logTimeFormat,
	}
}

// Logger wraps arbor.ILogger to provide a consistent interface.
type Logger struct {
	arbor.ILogger
}

// NewLoggerFromConfig creates a logger with the configured outputs plus an
// in-memory writer. Console output always goes to stderr because the MCP
// stdio transport owns stdout.
func NewLoggerFromConfig(cfg LoggingConfig) *Logger {
	l := arbor.NewLogger()
	for _, out := range cfg.outputs() {
		switch out {
		case "console":
			l = l.WithConsoleWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeConsole,
				Writer:     os.Stderr,
				TimeFormat: logTimeFormat,
			})
		case "file":
			l = l.WithFileWriter(cfg.fileWriter())
		}
	}

	l = l.WithMemoryWriter(models.WriterConfiguration{
		Type: models.LogWriterTypeMemory,
	}).WithLevelFromString(cfg.level())

	return &Logger{ILogger: l}
}

// NewTextLogger creates a logger that renders each event as one line on w:
// level, message, then fields sorted by key.
func NewTextLogger(level string, w io.Writer) *Logger {
	arbor.RegisterWriter(arbor.WRITER_CONSOLE, &lineWriter{out: w, level: log.TraceLevel})

	l := arbor.NewLogger().
		WithMemoryWriter(models.WriterConfiguration{Type: models.LogWriterTypeMemory}).
		WithLevelFromString(level)
	return &Logger{ILogger: l}
}

// NewSilentLogger creates a logger that discards all output.
func NewSilentLogger() *Logger {
	return &Logger{ILogger: arbor.NewLogger().WithWriters([]writers.IWriter{discard{}})}
}

// WithCorrelationId returns a new Logger tagged with a correlation ID.
// Batch runs use it to tie every unit's log lines to one run.
func (l *Logger) WithCorrelationId(id string) *Logger {
	return &Logger{ILogger: l.ILogger.WithCorrelationId(id)}
}

// discard keeps silent loggers from reaching globally registered writers.
type discard struct{}

func (d discard) Write(p []byte) (int, error)           { return len(p), nil }
func (d discard) WithLevel(_ log.Level) writers.IWriter { return d }
func (d discard) GetFilePath() string                   { return "" }
func (d discard) Close() error                          { return nil }

type lineWriter struct {
	out   io.Writer
	level log.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	var evt models.LogEvent
	if err := json.Unmarshal(p, &evt); err != nil {
		return w.out.Write(p)
	}
	if evt.Level < w.level {
		return len(p), nil
	}
	if _, err := io.WriteString(w.out, formatLine(evt)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *lineWriter) WithLevel(level log.Level) writers.IWriter {
	w.level = level
	return w
}

func (w *lineWriter) GetFilePath() string { return "" }
func (w *lineWriter) Close() error        { return nil }

func formatLine(evt models.LogEvent) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(evt.Level.String()))
	b.WriteByte(' ')
	b.WriteString(evt.Message)

	keys := make([]string, 0, len(evt.Fields))
	for k := range evt.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fieldString(evt.Fields[k]))
	}
	if evt.Error != "" {
		b.WriteString(" error=")
		b.WriteString(evt.Error)
	}
	b.WriteByte('\n')
	return b.String()
}

func fieldString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "<nil>"
	default:
		buf, err := json.Marshal(t)
		if err != nil {
			return "?"
		}
		return string(buf)
	}
}
