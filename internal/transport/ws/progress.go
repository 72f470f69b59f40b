package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"image-sizer-go/internal/domain/eventbus"
	"image-sizer-go/internal/domain/job"
	"image-sizer-go/internal/utils"
)

// Frame types sent on a progress stream.
const (
	FrameProgress  = "progress"
	FrameCompleted = "completed"
	FrameError     = "error"
)

// Frame is one JSON message on /ws/jobs/:id.
type Frame struct {
	Type         string        `json:"type"`
	JobID        string        `json:"jobId"`
	Completed    int           `json:"completed,omitempty"`
	Total        int           `json:"total,omitempty"`
	CurrentLabel string        `json:"currentLabel,omitempty"`
	Job          *job.Snapshot `json:"job,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// JobSource is the part of the job manager a progress stream needs.
type JobSource interface {
	Watch(id string) (<-chan eventbus.ProgressEvent, func(), error)
	Get(id string) (job.Snapshot, error)
}

// ProgressHandler streams one job's progress frames, then its final snapshot.
type ProgressHandler struct {
	jobID  string
	conn   *Connection
	jobs   JobSource
	logger *utils.Logger

	stopOnce sync.Once
	stop     func()
}

func NewProgressHandler(conn *Connection, jobs JobSource, jobID string, logger *utils.Logger) *ProgressHandler {
	return &ProgressHandler{jobID: jobID, conn: conn, jobs: jobs, logger: logger}
}

// Builder adapts NewProgressHandler to a HandlerBuilder.
func Builder(jobs JobSource, logger *utils.Logger) HandlerBuilder {
	return func(conn *Connection, _ *http.Request, jobID string) (SessionHandler, error) {
		return NewProgressHandler(conn, jobs, jobID, logger), nil
	}
}

func (h *ProgressHandler) SessionID() string {
	return h.conn.ID()
}

func (h *ProgressHandler) Handle(ctx context.Context) error {
	events, stop, err := h.jobs.Watch(h.jobID)
	if err != nil {
		_ = h.conn.WriteJSON(Frame{Type: FrameError, JobID: h.jobID, Error: err.Error()})
		_ = h.conn.WriteClose("job not found")
		return nil
	}
	h.stopOnce.Do(func() { h.stop = stop })
	defer stop()

	gone := make(chan struct{})
	go h.drain(gone)

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return h.finish()
			}
			if err := h.conn.WriteJSON(Frame{
				Type:         FrameProgress,
				JobID:        e.JobID,
				Completed:    e.Completed,
				Total:        e.Total,
				CurrentLabel: e.CurrentLabel,
			}); err != nil {
				return err
			}
		case <-gone:
			return ErrClientGone
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	}
}

func (h *ProgressHandler) finish() error {
	snap, err := h.jobs.Get(h.jobID)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			_ = h.conn.WriteJSON(Frame{Type: FrameError, JobID: h.jobID, Error: "job discarded"})
			return h.conn.WriteClose("job discarded")
		}
		return err
	}
	if err := h.conn.WriteJSON(Frame{Type: FrameCompleted, JobID: h.jobID, Job: &snap}); err != nil {
		return err
	}
	return h.conn.WriteClose(string(snap.State))
}

// drain reads until the peer goes away; clients never send anything meaningful.
func (h *ProgressHandler) drain(gone chan<- struct{}) {
	defer close(gone)
	for {
		if _, _, err := h.conn.ReadMessage(); err != nil {
			if h.logger != nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.DebugTag("WS", "connection %s read: %v", h.conn.ID(), err)
			}
			return
		}
	}
}

func (h *ProgressHandler) Close() {
	h.stopOnce.Do(func() {})
	if h.stop != nil {
		h.stop()
	}
}
