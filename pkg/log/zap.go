package log

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger modes and encodings (for config mapping).
const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
	EncodingConsole = "console"
	EncodingJSON    = "json"
)

// Log level names (for config mapping).
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

// ZapConfig holds configuration for the Zap logger.
type ZapConfig struct {
	Level        string
	Mode         string
	Encoding     string
	ColorEnabled bool
}

type zapLogger struct {
	sugar *zap.SugaredLogger
	cfg   *ZapConfig
}

const timeFormat = "2006-01-02 15:04:05.000"

var logLevelMap = map[string]zapcore.Level{
	LevelDebug: zapcore.DebugLevel,
	LevelInfo:  zapcore.InfoLevel,
	LevelWarn:  zapcore.WarnLevel,
	LevelError: zapcore.ErrorLevel,
	LevelFatal: zapcore.FatalLevel,
}

func (l *zapLogger) level() zapcore.Level {
	level, ok := logLevelMap[l.cfg.Level]
	if !ok {
		return zapcore.InfoLevel
	}
	return level
}

func (l *zapLogger) init() {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	if l.cfg.Mode == ModeProduction {
		encoderCfg = zap.NewProductionEncoderConfig()
	}
	encoderCfg.TimeKey = "TIME"
	encoderCfg.LevelKey = "LEVEL"
	encoderCfg.CallerKey = "CALLER"
	encoderCfg.MessageKey = "MESSAGE"
	encoderCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(timeFormat))
	}
	if l.cfg.ColorEnabled && l.cfg.Encoding == EncodingConsole {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if l.cfg.Encoding == EncodingConsole {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zap.NewAtomicLevelAt(l.level()))
	l.sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

type loggerKey struct{}

// WithContext returns a context carrying a request-scoped sugared logger.
func WithContext(ctx context.Context, sugar *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey{}, sugar)
}

func (l *zapLogger) ctx(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if sugar, _ := ctx.Value(loggerKey{}).(*zap.SugaredLogger); sugar != nil {
			return sugar
		}
	}
	return l.sugar
}

func (l *zapLogger) Debug(ctx context.Context, args ...any) { l.ctx(ctx).Debug(args...) }
func (l *zapLogger) Debugf(ctx context.Context, template string, args ...any) {
	l.ctx(ctx).Debugf(template, args...)
}
func (l *zapLogger) Info(ctx context.Context, args ...any) { l.ctx(ctx).Info(args...) }
func (l *zapLogger) Infof(ctx context.Context, template string, args ...any) {
	l.ctx(ctx).Infof(template, args...)
}
func (l *zapLogger) Warn(ctx context.Context, args ...any) { l.ctx(ctx).Warn(args...) }
func (l *zapLogger) Warnf(ctx context.Context, template string, args ...any) {
	l.ctx(ctx).Warnf(template, args...)
}
func (l *zapLogger) Error(ctx context.Context, args ...any) { l.ctx(ctx).Error(args...) }
func (l *zapLogger) Errorf(ctx context.Context, template string, args ...any) {
	l.ctx(ctx).Errorf(template, args...)
}
func (l *zapLogger) Fatal(ctx context.Context, args ...any) { l.ctx(ctx).Fatal(args...) }
func (l *zapLogger) Fatalf(ctx context.Context, template string, args ...any) {
	l.ctx(ctx).Fatalf(template, args...)
}

type nopLogger struct{}

func (n *nopLogger) Debug(ctx context.Context, args ...any)                    {}
func (n *nopLogger) Debugf(ctx context.Context, template string, args ...any)  {}
func (n *nopLogger) Info(ctx context.Context, args ...any)                     {}
func (n *nopLogger) Infof(ctx context.Context, template string, args ...any)   {}
func (n *nopLogger) Warn(ctx context.Context, args ...any)                     {}
func (n *nopLogger) Warnf(ctx context.Context, template string, args ...any)   {}
func (n *nopLogger) Error(ctx context.Context, args ...any)                    {}
func (n *nopLogger) Errorf(ctx context.Context, template string, args ...any)  {}
func (n *nopLogger) Fatal(ctx context.Context, args ...any)                    {}
func (n *nopLogger) Fatalf(ctx context.Context, template string, args ...any)  {}
