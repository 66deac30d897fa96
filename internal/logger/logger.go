// internal/logger/logger.go
//
// Process logger for the artifact service.
//
// Every build, render, sync tick, and cleanup is reported through zap.S().
// New installs the sink those calls land in:
//
//   - `<root>/logs/YYYY-MM-DD.log` as JSON, rotated by Lumberjack;
//   - stdout in console form as well when the process owns a terminal.
//
// Each entry carries `service=zitefy` and the pid so lines from a restarted
// process can be told apart when several runs share one day's file.
//
// Subprocess stderr reaches the log only through errs.ProcessError fields;
// it is never streamed line by line.
package logger

import (
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Retention of rotated files.
const (
	maxSizeMB  = 50
	maxBackups = 7
	maxAgeDays = 14
)

// New builds the logger, makes it the zap global, and returns it.  An
// unknown level string falls back to info.
func New(rootDir, level string, tee bool) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	sink, err := dailyFile(rootDir, time.Now())
	if err != nil {
		return nil, err
	}

	enc := encoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, lvl),
	}
	if tee {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stdout), lvl))
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.ErrorOutput(sink),
		zap.Fields(zap.String("service", "zitefy"), zap.Int("pid", os.Getpid())),
	)
	zap.ReplaceGlobals(z)

	s := z.Sugar()
	s.Infow("logger online", "tee", tee, "level", lvl.String())
	return s, nil
}

func dailyFile(rootDir string, day time.Time) (zapcore.WriteSyncer, error) {
	dir := filepath.Join(rootDir, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(dir, day.Format("2006-01-02")+".log"),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}), nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      "caller",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}
