// internal/logger/pretty.go
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
)

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	config := zapcore.EncoderConfig{
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
	return zapcore.NewConsoleEncoder(config)
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	case zapcore.FatalLevel:
		enc.AppendString(fmt.Sprintf("%s[FATAL]%s", ColorRed+ColorBold, ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

// customTimeEncoder formats time in a readable way
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// customCallerEncoder hides caller information for cleaner logs
func customCallerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	// Don't show caller for cleaner output
}

// CreatePrettyLogger creates a logger with user-friendly output
func CreatePrettyLogger(debug bool) (*zap.Logger, error) {
	// Create a custom encoder that suppresses extra fields
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

	// Custom core that filters out unwanted fields
	var core zapcore.Core
	if debug {
		core = zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(zapcore.Lock(os.Stdout)),
			zap.DebugLevel,
		)
	} else {
		core = zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(zapcore.Lock(os.Stdout)),
			zap.InfoLevel,
		)
	}

	// Create a custom core wrapper that filters out additional fields
	filteredCore := &FieldFilterCore{core: core}
	return zap.New(filteredCore), nil
}

// FormatMessage creates user-friendly log messages
func FormatMessage(msg string, fields ...zap.Field) string {
	// Extract common patterns and make them prettier
	switch {
	case strings.Contains(msg, "Config loaded"):
		pairs := extractField(fields, "pairs")
		return fmt.Sprintf("%s📋 Config loaded, watching %s%s", ColorBlue, pairs, ColorReset)

	case strings.Contains(msg, "Engine started"):
		return fmt.Sprintf("%s🚀 Engine started%s", ColorGreen, ColorReset)

	case strings.Contains(msg, "Opportunity found"):
		pair := extractField(fields, "pair")
		bps := extractField(fields, "net_bps")
		return fmt.Sprintf("%s⚡ Opportunity on %s%s\n    Net: %s bps", ColorCyan, pair, ColorReset, bps)

	case strings.Contains(msg, "Using Raydium"):
		return fmt.Sprintf("%s🎯 Venue selected: Raydium (lite quote)%s", ColorPurple, ColorReset)

	case strings.Contains(msg, "Using Jupiter"):
		return fmt.Sprintf("%s🎯 Venue selected: Jupiter (aggregator)%s", ColorPurple, ColorReset)

	case strings.Contains(msg, "Flash loan borrowed"):
		amount := extractField(fields, "amount")
		return fmt.Sprintf("%s💰 Flash loan borrowed: %s%s", ColorYellow, amount, ColorReset)

	case strings.Contains(msg, "Transaction sent"):
		sig := extractField(fields, "signature")
		return fmt.Sprintf("%s📤 Transaction sent: %s%s", ColorYellow, shortenSignature(sig), ColorReset)

	case strings.Contains(msg, "Transaction confirmed"):
		sig := extractField(fields, "signature")
		return fmt.Sprintf("%s✅ Transaction confirmed: %s%s", ColorGreen, shortenSignature(sig), ColorReset)

	case strings.Contains(msg, "Bundle landed"):
		bundleID := extractField(fields, "bundle_id")
		return fmt.Sprintf("%s🎉 Bundle landed: %s%s", ColorGreen+ColorBold, shortenSignature(bundleID), ColorReset)

	case strings.Contains(msg, "Opportunity executed"):
		profit := extractField(fields, "net_profit")
		return fmt.Sprintf("%s💸 Opportunity executed, net profit: %s%s", ColorGreen+ColorBold, profit, ColorReset)

	case strings.Contains(msg, "Opportunity rejected"):
		reason := extractField(fields, "reason")
		return fmt.Sprintf("%s✗ Opportunity rejected: %s%s", ColorRed, reason, ColorReset)

	case strings.Contains(msg, "Kill switch tripped"):
		reason := extractField(fields, "reason")
		return fmt.Sprintf("%s🛑 Kill switch tripped: %s%s", ColorRed+ColorBold, reason, ColorReset)

	case strings.Contains(msg, "Shutdown complete"):
		return fmt.Sprintf("%s✓ Shutdown complete%s", ColorGreen, ColorReset)

	default:
		return msg
	}
}

// Helper functions
func extractField(fields []zap.Field, key string) string {
	for _, field := range fields {
		if field.Key == key {
			return fmt.Sprintf("%v", field.Interface)
		}
	}
	return ""
}

func shortenAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}

func shortenSignature(sig string) string {
	if len(sig) > 16 {
		return sig[:8] + "..." + sig[len(sig)-8:]
	}
	return sig
}

// FieldFilterCore wraps a zapcore.Core to filter out unwanted fields
type FieldFilterCore struct {
	core zapcore.Core
}

func (c *FieldFilterCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *FieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &FieldFilterCore{core: c.core.With(fields)}
}

func (c *FieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return c.core.Check(entry, checked)
}

func (c *FieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	// Filter out unwanted fields - only keep message
	var filteredFields []zapcore.Field

	// Create a cleaner message without extra data
	cleanMsg := entry.Message

	// Replace the entry message with clean version
	cleanEntry := entry
	cleanEntry.Message = cleanMsg

	return c.core.Write(cleanEntry, filteredFields)
}

func (c *FieldFilterCore) Sync() error {
	return c.core.Sync()
}
