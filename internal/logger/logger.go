// Package logger owns the process wide zap logger. It starts out as a no-op
// so packages can log before main configures it.
package logger

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Standard field names.
const (
	FieldComponent = "component"
	FieldSession   = "session"
	FieldCodec     = "codec"
	FieldFourCC    = "fourcc"
	FieldStatus    = "status"
	FieldPath      = "path"
	FieldSize      = "size"
	FieldCount     = "count"
	FieldBytes     = "bytes"
	FieldError     = "error"
)

var Logger *zap.SugaredLogger

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize replaces the global logger. level is one of zap's level names
// ("debug", "info", "warn", "error"); empty means info.
func Initialize(jsonOutput bool, level string) error {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return errors.Wrapf(err, "log level %q", level)
		}
	}

	var zapLogger *zap.Logger
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		var err error
		zapLogger, err = config.Build()
		if err != nil {
			return err
		}
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encCfg),
				zapcore.AddSync(os.Stderr),
				lvl,
			),
		)
	}

	Logger = zapLogger.Sugar()
	return nil
}

// ComponentLogger returns a named child of the global logger.
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync() {
	_ = Logger.Sync()
}
