package eventbus

import (
	"image-sizer-go/internal/utils"
)

// EventHandler consumes finished-job events.
type EventHandler interface {
	Handle(e CompletedEvent)
}

// LogHandler writes one line per finished job.
type LogHandler struct {
	logger *utils.Logger
}

func NewLogHandler(logger *utils.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

func (h *LogHandler) Handle(e CompletedEvent) {
	if e.Error != "" {
		h.logger.WarnTag("JOB", "%s", e.String())
		return
	}
	h.logger.InfoTag("JOB", "%s", e.String())
}

// Attach subscribes h to the bus.
func Attach(b *Bus, h EventHandler) error {
	return b.SubscribeFinished(h.Handle)
}
