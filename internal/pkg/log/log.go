package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger = zap.Must(zap.NewProduction()).Sugar()
	Logger = zap.Must(zap.NewDevelopment()).Sugar()
)

// Setup replaces the global logger. Development mode writes colored console output,
// otherwise JSON lines are produced.
func Setup(level string, development bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}

	conf := zap.NewProductionConfig()
	if development {
		conf = zap.NewDevelopmentConfig()
		conf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	conf.Level = zap.NewAtomicLevelAt(lvl)

	l, err := conf.Build()
	if err != nil {
		return err
	}

	Logger = l.Sugar()

	return nil
}
