package ws

import (
	"sync"

	"image-sizer-go/internal/utils"
)

// Hub tracks the active websocket sessions for a transport instance.
type Hub struct {
	logger   *utils.Logger
	sessions sync.Map // map[string]*Session
}

func NewHub(logger *utils.Logger) *Hub {
	return &Hub{
		logger: logger,
	}
}

func (h *Hub) Register(session *Session) {
	if session == nil {
		return
	}
	h.sessions.Store(session.ID(), session)
}

func (h *Hub) Unregister(id string) {
	if id == "" {
		return
	}
	h.sessions.Delete(id)
}

// CloseAll terminates all active sessions.
func (h *Hub) CloseAll(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}

	h.sessions.Range(func(key, value any) bool {
		if session, ok := value.(*Session); ok {
			session.Close(reason)
		}
		h.sessions.Delete(key)
		return true
	})
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	n := 0
	h.sessions.Range(func(key, value any) bool {
		n++
		return true
	})
	return n
}
