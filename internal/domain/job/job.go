package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"image-sizer-go/internal/domain/batch"
	"image-sizer-go/internal/domain/eventbus"
)

// State is a job's lifecycle position.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Finished reports whether the job's batch has stopped.
func (s State) Finished() bool {
	return s == StateComplete || s == StateFailed || s == StateCancelled
}

var (
	ErrNotFound    = errors.New("job not found")
	ErrNotReady    = errors.New("job has not finished")
	ErrTooManyJobs = errors.New("too many active jobs")
	ErrNoSource    = errors.New("source image is empty")
)

// OutputInfo describes one stored output. Content lives behind HandleID.
type OutputInfo struct {
	HandleID    string `json:"handleId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SpecID      string `json:"specId,omitempty"`
	Label       string `json:"label,omitempty"`
	Size        int    `json:"size"`
}

// Snapshot is the externally visible state of a job.
type Snapshot struct {
	ID           string              `json:"id"`
	State        State               `json:"state"`
	Progress     batch.Progress      `json:"progress"`
	HandleIDs    []string            `json:"handleIds"`
	Outputs      []OutputInfo        `json:"outputs"`
	Failed       int                 `json:"failed"`
	Failures     []batch.ItemFailure `json:"failures,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
	Unrecognized []string            `json:"unrecognized,omitempty"`
	Err          string              `json:"error,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// SubmitRequest starts a job.
type SubmitRequest struct {
	Source  []byte
	SizeIDs []string
	// Supersedes names a previous job to discard once this one is accepted.
	Supersedes string
}

type job struct {
	mu sync.Mutex

	id           string
	state        State
	progress     batch.Progress
	outputs      []OutputInfo
	failed       int
	failures     []batch.ItemFailure
	warnings     []string
	unrecognized []string
	err          string
	createdAt    time.Time
	updatedAt    time.Time

	discarded bool
	cancel    context.CancelFunc
	sub       *eventbus.Subscription
	done      chan struct{}

	watchers map[int]chan eventbus.ProgressEvent
	nextW    int
}

func (j *job) snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Snapshot{
		ID:           j.id,
		State:        j.state,
		Progress:     j.progress,
		HandleIDs:    make([]string, 0, len(j.outputs)),
		Outputs:      append([]OutputInfo(nil), j.outputs...),
		Failed:       j.failed,
		Failures:     append([]batch.ItemFailure(nil), j.failures...),
		Warnings:     append([]string(nil), j.warnings...),
		Unrecognized: append([]string(nil), j.unrecognized...),
		Err:          j.err,
		CreatedAt:    j.createdAt,
		UpdatedAt:    j.updatedAt,
	}
	if s.Outputs == nil {
		s.Outputs = []OutputInfo{}
	}
	for _, o := range j.outputs {
		s.HandleIDs = append(s.HandleIDs, o.HandleID)
	}
	return s
}

// fanout hands e to every watcher. A watcher that is not keeping up misses
// intermediate frames; the next one still carries the latest counts.
func (j *job) fanout(e eventbus.ProgressEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, ch := range j.watchers {
		select {
		case ch <- e:
		default:
		}
	}
}

func (j *job) closeWatchers() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for k, ch := range j.watchers {
		close(ch)
		delete(j.watchers, k)
	}
}
