package main

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is the process-wide sugared logger. Tests run against the no-op
// default; main swaps in the configured one.
var logger = zap.NewNop().Sugar()

// initLogging builds the zap logger from config. Messages go to the log
// file (datestamped when asked) and, in verbose mode, to stdout as well.
func initLogging(cfg *Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	logFile := cfg.Logging.File
	if logFile == "" {
		logFile = "fetch.log"
	}
	if cfg.Logging.Datestamp {
		logFile = datestampPath(logFile, time.Now())
	}
	if dir := filepath.Dir(logFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			// Fall back to the working directory rather than dying before
			// the log exists.
			logFile = filepath.Base(logFile)
		}
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	zcfg.OutputPaths = []string{logFile}
	if cfg.Logging.Verbose {
		zcfg.OutputPaths = append(zcfg.OutputPaths, "stdout")
	}

	zl, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	logger = zl.Sugar()
	return zl, nil
}

// datestampPath inserts a creation timestamp into a log file name:
// fetch.log becomes fetch.202401021504.log.
func datestampPath(p string, now time.Time) string {
	ext := filepath.Ext(p)
	return p[:len(p)-len(ext)] + "." + now.Format("200601021504") + ext
}
