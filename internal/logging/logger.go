package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the application logger
type Options struct {
	Name  string // Logger name, e.g. "dualcam"
	Level string // debug, info, warn or error
	// File enables a rotating JSON log file in addition to stderr
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a zap logger writing JSON to stderr and, when File is set,
// to a lumberjack-rotated file
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}
	if opts.File != "" {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotatingWriter(opts)), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	if opts.Name != "" {
		logger = logger.Named(opts.Name)
	}
	return logger, nil
}

func rotatingWriter(opts Options) *lumberjack.Logger {
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 50
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    maxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
}
