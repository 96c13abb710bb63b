package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const FormatPretty = "pretty"

// Logger wraps zerolog.Logger with the service name and scoped fields.
type Logger struct {
	logger  zerolog.Logger
	service string
}

// New creates a new logger writing to the configured output.
func New(cfg *Config, serviceName string) *Logger {
	return NewWithWriter(cfg, serviceName, outputWriter(cfg.Output))
}

// NewWithWriter creates a logger writing to w. Tests use it to capture output.
func NewWithWriter(cfg *Config, serviceName string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case "console", FormatPretty:
		zl = zerolog.New(consoleWriter(w, cfg.NoColor))
	default:
		zl = zerolog.New(w)
	}
	zl = zl.Level(level)

	zc := zl.With().Str(FieldService, serviceName)
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return &Logger{logger: zc.Logger(), service: serviceName}
}

// NewDefault creates a console logger at info level.
func NewDefault(serviceName string) *Logger {
	cfg := &Config{
		Level:     "info",
		Format:    "console",
		Output:    "stdout",
		Timestamp: true,
	}
	return New(cfg, serviceName)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// ContextWithRequestID stores a request id for WithContext to pick up.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithContext returns a logger enriched with the request id carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return &Logger{logger: l.logger.With().Str(FieldRequestID, v).Logger(), service: l.service}
	}
	return l
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		logger:  l.logger.With().Str(FieldComponent, name).Logger(),
		service: l.service,
	}
}

// WithExecution returns a logger scoped to one workflow execution.
func (l *Logger) WithExecution(executionID string) *Logger {
	return &Logger{
		logger:  l.logger.With().Str(FieldExecutionID, executionID).Logger(),
		service: l.service,
	}
}

// WithNode returns a logger scoped to one attempt of a node.
func (l *Logger) WithNode(nodeID string, attempt int) *Logger {
	return &Logger{
		logger:  l.logger.With().Str(FieldNodeID, nodeID).Int(FieldAttempt, attempt).Logger(),
		service: l.service,
	}
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	zc := l.logger.With()
	for k, v := range fields {
		zc = zc.Interface(k, v)
	}
	return &Logger{logger: zc.Logger(), service: l.service}
}

// WithError returns a logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		logger:  l.logger.With().Err(err).Logger(),
		service: l.service,
	}
}

// Zerolog returns the underlying zerolog.Logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.logger
}

func (l *Logger) Debug(msg string, fields ...map[string]any) {
	write(l.logger.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]any) {
	write(l.logger.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]any) {
	write(l.logger.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]any) {
	write(l.logger.Error(), msg, fields)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string, fields ...map[string]any) {
	write(l.logger.Fatal(), msg, fields)
}

func write(event *zerolog.Event, msg string, fields []map[string]any) {
	for _, fm := range fields {
		for k, v := range fm {
			event.Interface(k, v)
		}
	}
	event.Msg(msg)
}

func outputWriter(output string) io.Writer {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

var levelTags = map[string]string{
	"trace": "TRC", "debug": "DBG", "info": "INF",
	"warn": "WRN", "error": "ERR", "fatal": "FTL",
}

var levelColors = map[string]string{
	"debug": "36", "info": "32", "warn": "33", "error": "31", "fatal": "35",
}

func consoleWriter(w io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:           w,
		TimeFormat:    "15:04:05",
		NoColor:       noColor,
		FieldsExclude: []string{FieldService},
		FormatLevel: func(i any) string {
			lvl := fmt.Sprintf("%s", i)
			tag, ok := levelTags[lvl]
			if !ok {
				tag = strings.ToUpper(lvl)
			}
			if color, ok := levelColors[lvl]; ok && !noColor {
				return fmt.Sprintf("\033[%sm[%s]\033[0m", color, tag)
			}
			return "[" + tag + "]"
		},
		FormatFieldName: func(i any) string {
			return fmt.Sprintf("%s:", i)
		},
	}
}
