package logger

import (
	tlog "go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// TemporalLogger adapta o zap para a interface de log do SDK do Temporal.
// Workflows e activities usam workflow.GetLogger/activity.GetLogger, que
// delegam para este adapter e por isso saem no mesmo formato dos serviços.
type TemporalLogger struct {
	s *zap.SugaredLogger
}

var (
	_ tlog.Logger     = (*TemporalLogger)(nil)
	_ tlog.WithLogger = (*TemporalLogger)(nil)
)

// NewTemporal cria o adapter a partir do logger do serviço
func NewTemporal(l *zap.Logger) *TemporalLogger {
	return &TemporalLogger{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) { l.s.Debugw(msg, keyvals...) }
func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) { l.s.Infow(msg, keyvals...) }
func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) { l.s.Warnw(msg, keyvals...) }
func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) { l.s.Errorw(msg, keyvals...) }

// With retorna um logger com campos fixos adicionais
func (l *TemporalLogger) With(keyvals ...interface{}) tlog.Logger {
	return &TemporalLogger{s: l.s.With(keyvals...)}
}

// WithCallerSkip ajusta o caller reportado quando o SDK empilha wrappers
func (l *TemporalLogger) WithCallerSkip(depth int) tlog.Logger {
	return &TemporalLogger{s: l.s.WithOptions(zap.AddCallerSkip(depth))}
}
