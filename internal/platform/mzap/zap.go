// Package mzap wires mlog.Logger on top of go.uber.org/zap, mirroring the
// production/development config split the rest of the ambient stack uses.
package mzap

import (
	"log"
	"os"

	"github.com/airweave-ai/ingestion-core/internal/platform/mlog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a *zap.SugaredLogger to mlog.Logger.
type ZapLogger struct {
	Logger *zap.SugaredLogger
}

func (l *ZapLogger) Info(args ...any)                  { l.Logger.Info(args...) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.Logger.Infof(format, args...) }
func (l *ZapLogger) Infoln(args ...any)                { l.Logger.Infoln(args...) }
func (l *ZapLogger) Error(args ...any)                 { l.Logger.Error(args...) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.Logger.Errorf(format, args...) }
func (l *ZapLogger) Errorln(args ...any)               { l.Logger.Errorln(args...) }
func (l *ZapLogger) Warn(args ...any)                  { l.Logger.Warn(args...) }
func (l *ZapLogger) Warnf(format string, args ...any)  { l.Logger.Warnf(format, args...) }
func (l *ZapLogger) Warnln(args ...any)                { l.Logger.Warnln(args...) }
func (l *ZapLogger) Debug(args ...any)                 { l.Logger.Debug(args...) }
func (l *ZapLogger) Debugf(format string, args ...any) { l.Logger.Debugf(format, args...) }
func (l *ZapLogger) Debugln(args ...any)               { l.Logger.Debugln(args...) }
func (l *ZapLogger) Fatal(args ...any)                 { l.Logger.Fatal(args...) }
func (l *ZapLogger) Fatalf(format string, args ...any) { l.Logger.Fatalf(format, args...) }
func (l *ZapLogger) Fatalln(args ...any)               { l.Logger.Fatalln(args...) }
func (l *ZapLogger) Sync() error                       { return l.Logger.Sync() }

//nolint:ireturn
func (l *ZapLogger) WithFields(fields ...any) mlog.Logger {
	return &ZapLogger{Logger: l.Logger.With(fields...)}
}

// InitializeLogger builds the process logger, picking production or
// development zap config from ENV_NAME and honoring a LOG_LEVEL override.
//
//nolint:ireturn
func InitializeLogger() mlog.Logger {
	var zapCfg zap.Config

	if os.Getenv("ENV_NAME") == "production" {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if val, ok := os.LookupEnv("LOG_LEVEL"); ok {
		var lvl zapcore.Level
		if err := lvl.Set(val); err != nil {
			log.Printf("invalid LOG_LEVEL, falling back to info: %v", err)

			lvl = zapcore.InfoLevel
		}

		zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	zapCfg.DisableStacktrace = true

	logger, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}

	sugar := logger.Sugar()
	sugar.Infof("log level is %v", zapCfg.Level)

	return &ZapLogger{Logger: sugar}
}
</content>
