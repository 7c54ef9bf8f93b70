package logsvc

import (
	"fmt"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
)

// EventLogger is an EventEmitter that writes domain events to the app log.
type EventLogger struct {
	logger core.Logger
}

var _ core.EventEmitter = (*EventLogger)(nil)

func NewEventLogger(logger core.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

func (e *EventLogger) Emit(event core.Event) {
	msg := fmt.Sprintf("event %s: cadet %s", event.Type, event.CadetID)
	if len(event.Data) > 0 {
		e.logger.Info(msg, event.Data)
		return
	}
	e.logger.Info(msg)
}
