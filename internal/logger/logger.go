package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is a no-op until Init runs, so packages can log from tests.
var Log = zap.NewNop().Sugar()

// Init builds the global logger. logPath, when set, is truncated and
// receives uncoloured output instead of stdout.
func Init(verbose bool, logPath string) {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	enc.EncodeCaller = nil
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder

	out := zapcore.AddSync(os.Stdout)
	if logPath != "" {
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644); err == nil {
			out = zapcore.AddSync(f)
		} else {
			println("Failed to create log file: " + err.Error())
		}
	}

	Log = zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(enc), out, Level(verbose, os.Getenv("LOG_LEVEL")))).Sugar()
}

// Level picks the minimum level: --verbose wins, then LOG_LEVEL
// (debug, info, warn, error), then info.
func Level(verbose bool, env string) zapcore.Level {
	if verbose {
		return zap.DebugLevel
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(env)))); err != nil || env == "" {
		return zap.InfoLevel
	}
	return lvl
}

func Sync() {
	_ = Log.Sync()
}
