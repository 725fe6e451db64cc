package logger

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type cronLogger struct {
	log *Logger
}

// CronLogger adapts the Logger to the robfig/cron logging interface.
func (l *Logger) CronLogger() cron.Logger {
	return &cronLogger{log: l}
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, keyValueFields(keysAndValues)...)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(msg, append(keyValueFields(keysAndValues), ErrorField(err))...)
}

func keyValueFields(keysAndValues []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
