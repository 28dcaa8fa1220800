package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger. format "console" or "text" selects the human readable encoder,
// anything else emits JSON. Unknown levels fall back to info.
func New(level, format string) *zap.Logger {
	var cfg zap.Config
	if strings.EqualFold(level, "debug") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if err := cfg.Level.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		fmt.Fprintf(os.Stderr, "logger: invalid LOG_LEVEL %q, defaulting to info\n", level)
		cfg.Level.SetLevel(zapcore.InfoLevel)
	}

	switch strings.ToLower(format) {
	case "console", "text":
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		cfg.Encoding = "json"
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	log, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: build failed: %v, falling back to production defaults\n", err)
		log, _ = zap.NewProduction()
	}
	return log
}
