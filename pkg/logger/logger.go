package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	once sync.Once

	serviceName = "auto_trader"
)

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init собирает логгер один раз; debug=true включает DebugLevel и консольный энкодер.
func Init(debug bool) {
	once.Do(func() {
		log = newLogger(debug)
	})
}

func Get() *zap.Logger {
	if log == nil {
		Init(false)
	}
	return log
}

func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

func Info(format string, args ...interface{}) {
	logAt(zapcore.InfoLevel, format, args...)
}

func Warn(format string, args ...interface{}) {
	logAt(zapcore.WarnLevel, format, args...)
}

func Error(format string, args ...interface{}) {
	logAt(zapcore.ErrorLevel, format, args...)
}

func Debug(format string, args ...interface{}) {
	logAt(zapcore.DebugLevel, format, args...)
}

func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	Get().With(zap.String("service", serviceName)).Fatal(msg)
}

func logAt(level zapcore.Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l := Get().With(zap.String("service", serviceName))
	switch level {
	case zapcore.DebugLevel:
		l.Debug(msg)
	case zapcore.WarnLevel:
		l.Warn(msg)
	case zapcore.ErrorLevel:
		l.Error(msg)
	default:
		l.Info(msg)
	}
}

func newLogger(debug bool) *zap.Logger {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		l, err := cfg.Build(zap.AddCallerSkip(2))
		if err != nil {
			panic(err)
		}
		return l
	}

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		panic(err)
	}
	return l
}
