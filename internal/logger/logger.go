// internal/logger/logger.go
package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the engine's structured logger: a pretty console encoder plus,
// when logFilePath is non-empty (mirrors the LOG_FILE env var), a JSON tee
// to a buffered, periodically flushed SafeFileWriter sink (the file is
// appended to, never rotated). The returned close func must run during
// shutdown to flush and release the file handle.
func New(debug bool, logFilePath string) (*zap.Logger, func() error, error) {
	consoleLogger, err := CreatePrettyLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("creating console logger: %w", err)
	}

	if logFilePath == "" {
		return consoleLogger, func() error { return nil }, nil
	}

	// A bootstrap logger for the file writer's own internal error reporting,
	// separate from the logger it backs.
	bootstrap := zap.NewNop()
	fileWriter, err := NewSafeFileWriter(logFilePath, 5*time.Second, bootstrap)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %q: %w", logFilePath, err)
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(fileWriter),
		level,
	)

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   customCallerEncoder,
	}
	consoleLevel := zap.InfoLevel
	if debug {
		consoleLevel = zap.DebugLevel
	}
	consoleCore := &FieldFilterCore{core: zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(zapcore.Lock(os.Stdout)),
		consoleLevel,
	)}

	combined := zap.New(zapcore.NewTee(consoleCore, fileCore))

	closeFn := func() error {
		_ = combined.Sync()
		return fileWriter.Close()
	}
	return combined, closeFn, nil
}
