/*
The logger package wraps zerolog with the small surface the rest of the agent
uses: leveled printf-style methods and cheap sub-loggers scoped to a component
or connection. File output goes through lumberjack so long-running agents
don't fill the disk.
*/
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel = zerolog.Level

const (
	Debug LogLevel = zerolog.DebugLevel
	Info  LogLevel = zerolog.InfoLevel
	Error LogLevel = zerolog.ErrorLevel
	Trace LogLevel = zerolog.TraceLevel
)

func ToLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return Debug
	case "info":
		return Info
	case "error":
		return Error
	case "trace":
		return Trace
	default:
		return Info
	}
}

type Config struct {
	// Optional path to a rotating log file
	FilePath string

	// Additional writers, e.g. os.Stdout
	ConsoleWriters []io.Writer

	LogLevel LogLevel
}

type Logger struct {
	logger zerolog.Logger
}

func New(config *Config) (*Logger, error) {
	// Let's us display stack info on errors
	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		return fmt.Sprintf("%+v", err)
	}

	writers := []io.Writer{}

	if config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create log directory for %s: %w", config.FilePath, err)
		}

		writers = append(writers, &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    100, // megabytes
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	for _, writer := range config.ConsoleWriters {
		writers = append(writers, zerolog.ConsoleWriter{Out: writer})
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	level := config.LogLevel
	if level == zerolog.NoLevel {
		level = Info
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{logger: logger}, nil
}

func (l *Logger) AddAgentVersion(version string) {
	l.logger = l.logger.With().Str("agentVersion", version).Logger()
}

func (l *Logger) GetComponentLogger(component string) *Logger {
	return &Logger{
		logger: l.logger.With().Str("component", component).Logger(),
	}
}

func (l *Logger) GetConnectionLogger(id string) *Logger {
	return &Logger{
		logger: l.logger.With().Str("connection", id).Logger(),
	}
}

func (l *Logger) GetRequestLogger(requestId string) *Logger {
	return &Logger{
		logger: l.logger.With().Str("requestId", requestId).Logger(),
	}
}

func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

func (l *Logger) Infof(format string, a ...any) {
	l.logger.Info().Msgf(format, a...)
}

func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

func (l *Logger) Debugf(format string, a ...any) {
	l.logger.Debug().Msgf(format, a...)
}

func (l *Logger) Error(err error) {
	l.logger.Error().Stack().Err(err).Msg("")
}

func (l *Logger) Errorf(format string, a ...any) {
	l.logger.Error().Stack().Err(fmt.Errorf(format, a...)).Msg("")
}

func (l *Logger) Trace(msg string) {
	l.logger.Trace().Msg(msg)
}

func (l *Logger) Tracef(format string, a ...any) {
	l.logger.Trace().Msgf(format, a...)
}
