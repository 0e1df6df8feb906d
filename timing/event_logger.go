package timing

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/sarchlab/netsim/hooking"
)

// EventLogger is a hook that logs every dispatched event at debug level.
type EventLogger struct {
	logger *zap.Logger
}

// NewEventLogger returns an EventLogger writing into logger.
func NewEventLogger(logger *zap.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

type named interface {
	Name() string
}

// Func logs the event that is about to be handled.
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(ScheduledEvent)
	if !ok {
		return
	}

	fields := []zap.Field{
		zap.Float64("time", evt.Time),
		zap.String("event", reflect.TypeOf(evt.Event).String()),
	}

	if n, ok := evt.Handler.(named); ok {
		fields = append(fields, zap.String("handler", n.Name()))
	}

	h.logger.Debug("dispatch", fields...)
}
