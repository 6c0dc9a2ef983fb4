package backend

import (
	"fmt"

	"github.com/microsoft/durabletask-go/backend"

	"github.com/Youmanvi/roomledger/internal/infrastructure/observability"
)

// taskHubLogger routes durabletask worker logs into zerolog.
type taskHubLogger struct {
	logger *observability.Logger
}

var _ backend.Logger = (*taskHubLogger)(nil)

// NewLogger adapts logger to the durabletask logger interface
func NewLogger(logger *observability.Logger) backend.Logger {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &taskHubLogger{logger: logger.WithComponent("taskhub")}
}

func (l *taskHubLogger) Debug(v ...any) { l.logger.Logger.Debug().Msg(fmt.Sprint(v...)) }
func (l *taskHubLogger) Debugf(format string, v ...any) {
	l.logger.Logger.Debug().Msgf(format, v...)
}
func (l *taskHubLogger) Info(v ...any) { l.logger.Logger.Info().Msg(fmt.Sprint(v...)) }
func (l *taskHubLogger) Infof(format string, v ...any) {
	l.logger.Logger.Info().Msgf(format, v...)
}
func (l *taskHubLogger) Warn(v ...any) { l.logger.Logger.Warn().Msg(fmt.Sprint(v...)) }
func (l *taskHubLogger) Warnf(format string, v ...any) {
	l.logger.Logger.Warn().Msgf(format, v...)
}
func (l *taskHubLogger) Error(v ...any) { l.logger.Logger.Error().Msg(fmt.Sprint(v...)) }
func (l *taskHubLogger) Errorf(format string, v ...any) {
	l.logger.Logger.Error().Msgf(format, v...)
}
