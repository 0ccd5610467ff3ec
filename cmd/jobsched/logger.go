package main

import (
	"io"

	lg "github.com/Andrej220/go-utils/zlog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the command logger. Output goes to w so the engine
// and the command share one sink, level and encoding.
func newLogger(level, format string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder

	var enc zapcore.Encoder
	if format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), lvl)
	return zap.New(core, zap.AddCaller()), nil
}

// engineLogger exposes a zap logger through the zlog interface the
// scheduler reads from its context.
type engineLogger struct{ l *zap.Logger }

func newEngineLogger(l *zap.Logger) lg.ZLogger {
	return engineLogger{l: l.WithOptions(zap.AddCallerSkip(1))}
}

func (e engineLogger) Info(msg string, fields ...lg.Field)  { e.l.Info(msg, fields...) }
func (e engineLogger) Warn(msg string, fields ...lg.Field)  { e.l.Warn(msg, fields...) }
func (e engineLogger) Error(msg string, fields ...lg.Field) { e.l.Error(msg, fields...) }
func (e engineLogger) Debug(msg string, fields ...lg.Field) { e.l.Debug(msg, fields...) }
func (e engineLogger) Sync() error                          { return e.l.Sync() }

func (e engineLogger) With(fields ...lg.Field) lg.ZLogger {
	return engineLogger{l: e.l.With(fields...)}
}
