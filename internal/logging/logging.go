// Package logging configures the process-wide slog.Logger the cmd/amfcat
// and cmd/amfwatch binaries use, backing it with zap (via zapslog) and,
// when a log file is given, lumberjack rotation — the same combination
// ausocean-av's cmd/* tools wire a rotating file sink through, adapted
// here to feed slog instead of ausocean's own logging.Logger.
package logging

import (
	"log/slog"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the rotating file sink. A zero value disables file
// logging; diagnostics still go to stderr.
type Config struct {
	// LogFile is the path to rotate logs into; empty disables the file sink.
	LogFile string
	// MaxSizeMB is the size in megabytes a log file grows to before rotation.
	MaxSizeMB int
	// MaxBackups is the number of rotated files retained.
	MaxBackups int
	// MaxAgeDays is the number of days a rotated file is retained.
	MaxAgeDays int
	// Debug enables slog.LevelDebug; otherwise slog.LevelInfo is the floor.
	Debug bool
}

// New builds a process-wide slog.Logger from cfg and sets it as the
// default via slog.SetDefault, returning it for callers that want to hold
// their own reference.
func New(cfg Config) *slog.Logger {
	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(zapcore.AddSync(os.Stderr)),
			level,
		),
	}

	if cfg.LogFile != "" {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "ts"
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), level))
	}

	logger := slog.New(zapslog.NewHandler(zapcore.NewTee(cores...)))
	slog.SetDefault(logger)
	return logger
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
