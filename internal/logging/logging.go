package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	loggingmw "github.com/Skotchmaster/venues/pkg/middleware/logging"
)

type Config struct {
	Level  string
	Pretty bool
	App    string
	Env    string
}

func New(c Config) (*zap.Logger, error) {
	var cfg zap.Config
	if c.Pretty {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	level := new(zapcore.Level)
	if err := level.Set(c.Level); err != nil {
		*level = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(*level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(zap.Fields(
		zap.String("service", c.App),
		zap.String("env", c.Env),
	))
}

func IntoContext(ctx context.Context, l *zap.Logger) context.Context {
	return loggingmw.IntoContext(ctx, l)
}

func FromContext(ctx context.Context) *zap.Logger {
	return loggingmw.FromContext(ctx)
}
