package job

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"image-sizer-go/internal/domain/archive"
	"image-sizer-go/internal/domain/batch"
	"image-sizer-go/internal/domain/eventbus"
	"image-sizer-go/internal/domain/handles"
	"image-sizer-go/internal/domain/render"
	"image-sizer-go/internal/platform/observability"
	"image-sizer-go/internal/utils"
)

const (
	defaultMaxActive = 16
	defaultTTL       = 30 * time.Minute
	watcherBuffer    = 32
)

type Options struct {
	Engine   *batch.Engine
	Resolver *batch.Resolver
	// Renderer overrides the engine's renderer for interactive jobs.
	Renderer  *render.Renderer
	Store     handles.Store
	Bus       *eventbus.Bus
	Logger    *utils.Logger
	MaxActive int
	// TTL is how long a finished job stays around without being touched.
	TTL           time.Duration
	SweepInterval time.Duration
}

// Manager runs batches in the background and owns their output handles.
type Manager struct {
	engine    *batch.Engine
	resolver  *batch.Resolver
	renderer  *render.Renderer
	store     handles.Store
	bus       *eventbus.Bus
	logger    *utils.Logger
	maxActive int
	ttl       time.Duration

	mu     sync.Mutex
	jobs   map[string]*job
	active int
	closed bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("batch engine is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("handle store is required")
	}
	if opts.Resolver == nil {
		opts.Resolver = batch.NewResolver(nil)
	}
	if opts.Bus == nil {
		opts.Bus = eventbus.New()
	}
	if opts.Logger == nil {
		opts.Logger = utils.DefaultLogger
	}
	if opts.MaxActive <= 0 {
		opts.MaxActive = defaultMaxActive
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = utils.MinDuration(opts.TTL, time.Minute)
	}

	m := &Manager{
		engine:    opts.Engine,
		resolver:  opts.Resolver,
		renderer:  opts.Renderer,
		store:     opts.Store,
		bus:       opts.Bus,
		logger:    opts.Logger,
		maxActive: opts.MaxActive,
		ttl:       opts.TTL,
		jobs:      make(map[string]*job),
		stopCh:    make(chan struct{}),
	}

	m.wg.Add(1)
	go m.sweepLoop(opts.SweepInterval)
	return m, nil
}

// Bus exposes the bus jobs publish on.
func (m *Manager) Bus() *eventbus.Bus {
	return m.bus
}

// Submit accepts a job and starts its batch. The returned snapshot is taken
// before the batch has rendered anything.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (Snapshot, error) {
	if len(req.Source) == 0 {
		return Snapshot{}, ErrNoSource
	}
	resolution, err := m.resolver.ResolveStrict(req.SizeIDs)
	if err != nil {
		return Snapshot{}, err
	}

	now := time.Now()
	runCtx, cancel := context.WithCancel(context.Background())
	j := &job{
		id:           uuid.New().String(),
		state:        StatePending,
		progress:     batch.Progress{Total: len(resolution.Specs)},
		unrecognized: resolution.Unrecognized,
		createdAt:    now,
		updatedAt:    now,
		cancel:       cancel,
		done:         make(chan struct{}),
		watchers:     make(map[int]chan eventbus.ProgressEvent),
	}

	sub, err := m.bus.SubscribeJob(j.id, j.fanout, func(e eventbus.CompletedEvent) {
		j.closeWatchers()
	})
	if err != nil {
		cancel()
		return Snapshot{}, err
	}
	j.sub = sub

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		sub.Close()
		return Snapshot{}, fmt.Errorf("job manager is closed")
	}
	if m.active >= m.maxActive {
		m.mu.Unlock()
		cancel()
		sub.Close()
		return Snapshot{}, ErrTooManyJobs
	}
	m.jobs[j.id] = j
	m.active++
	m.mu.Unlock()

	if len(resolution.Unrecognized) > 0 {
		m.logger.WarnTag("JOB", "job %s ignoring unrecognized sizes %v", j.id, resolution.Unrecognized)
	}
	if req.Supersedes != "" && req.Supersedes != j.id {
		if err := m.Discard(ctx, req.Supersedes); err != nil && !errors.Is(err, ErrNotFound) {
			m.logger.WarnTag("JOB", "discard superseded job %s: %v", req.Supersedes, err)
		}
	}

	snap := j.snapshot()
	m.wg.Add(1)
	go m.run(runCtx, j, req.Source, resolution)
	m.logger.InfoTag("JOB", "job %s submitted with %d sizes", j.id, len(resolution.Specs))
	return snap, nil
}

func (m *Manager) run(ctx context.Context, j *job, source []byte, resolution batch.Resolution) {
	defer m.wg.Done()
	defer close(j.done)
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	var (
		result *batch.Result
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panic: %v", r)
			}
		}()

		j.mu.Lock()
		if !j.discarded {
			j.state = StateRunning
		}
		j.mu.Unlock()

		opts := []batch.Option{
			batch.WithYield(runtime.Gosched),
			batch.WithProgress(func(p batch.Progress) {
				j.mu.Lock()
				j.progress = p
				j.updatedAt = time.Now()
				j.mu.Unlock()
				m.bus.PublishProgress(eventbus.ProgressEvent{
					JobID:        j.id,
					Completed:    p.Completed,
					Total:        p.Total,
					CurrentLabel: p.CurrentLabel,
				})
			}),
			batch.WithOutput(func(out render.Output) { m.keep(j, out) }),
		}
		if m.renderer != nil {
			opts = append(opts, batch.WithRenderer(m.renderer))
		}
		result, err = m.engine.NewBatch(opts...).Run(ctx, source, resolution.Specs)
	}()

	j.mu.Lock()
	storeFailures := j.failures
	j.failures = nil
	if result != nil {
		j.failures = append(j.failures, result.Failures...)
		j.warnings = result.Warnings
	}
	j.failures = append(j.failures, storeFailures...)
	j.failed = len(j.failures)
	switch {
	case j.discarded, errors.Is(err, context.Canceled):
		j.state = StateCancelled
	case err != nil:
		j.state = StateFailed
		j.err = err.Error()
	case len(j.outputs) == 0:
		j.state = StateFailed
		j.err = batch.ErrNoOutputs.Error()
	default:
		j.state = StateComplete
	}
	j.updatedAt = time.Now()
	event := eventbus.CompletedEvent{
		JobID:    j.id,
		State:    string(j.state),
		Outputs:  len(j.outputs),
		Failed:   j.failed,
		Warnings: j.warnings,
		Error:    j.err,
	}
	j.mu.Unlock()

	observability.RecordMetric(ctx, "job.finished", 1, map[string]string{"state": event.State})
	m.bus.PublishCompleted(event)
}

// keep stores one output and records it on the job. Outputs produced after a
// discard are released straight away.
func (m *Manager) keep(j *job, out render.Output) {
	h, err := m.store.Put(context.Background(), handles.Handle{
		JobID:       j.id,
		Filename:    out.Filename,
		ContentType: out.ContentType,
		Data:        out.Content,
	})

	j.mu.Lock()
	if j.discarded {
		j.mu.Unlock()
		if err == nil {
			_ = m.store.Release(context.Background(), h.ID)
		}
		return
	}
	if err != nil {
		j.failures = append(j.failures, batch.ItemFailure{
			SpecID: out.SpecID,
			Label:  out.Label,
			Reason: "store output: " + err.Error(),
			Err:    err,
		})
		j.mu.Unlock()
		m.logger.ErrorTag("JOB", "job %s store %s: %v", j.id, out.Filename, err)
		return
	}
	j.outputs = append(j.outputs, OutputInfo{
		HandleID:    h.ID,
		Filename:    out.Filename,
		ContentType: out.ContentType,
		Width:       out.Width,
		Height:      out.Height,
		SpecID:      out.SpecID,
		Label:       out.Label,
		Size:        len(out.Content),
	})
	j.mu.Unlock()
}

func (m *Manager) lookup(id string) (*job, error) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j, nil
}

func (m *Manager) Get(id string) (Snapshot, error) {
	j, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return j.snapshot(), nil
}

// Wait blocks until the job's batch stops or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (Snapshot, error) {
	j, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	select {
	case <-j.done:
		return j.snapshot(), nil
	case <-ctx.Done():
		return j.snapshot(), ctx.Err()
	}
}

// Watch streams progress for a job. The channel is closed when the job
// finishes or is discarded; stop only detaches the caller.
func (m *Manager) Watch(id string) (<-chan eventbus.ProgressEvent, func(), error) {
	j, err := m.lookup(id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan eventbus.ProgressEvent, watcherBuffer)
	j.mu.Lock()
	defer j.mu.Unlock()

	ch <- eventbus.ProgressEvent{
		JobID:        j.id,
		Completed:    j.progress.Completed,
		Total:        j.progress.Total,
		CurrentLabel: j.progress.CurrentLabel,
	}
	if j.state.Finished() || j.discarded {
		close(ch)
		return ch, func() {}, nil
	}

	key := j.nextW
	j.nextW++
	j.watchers[key] = ch

	var once sync.Once
	stop := func() {
		once.Do(func() {
			j.mu.Lock()
			if w, ok := j.watchers[key]; ok {
				delete(j.watchers, key)
				close(w)
			}
			j.mu.Unlock()
		})
	}
	return ch, stop, nil
}

// Discard cancels the job, releases its handles and forgets it.
func (m *Manager) Discard(ctx context.Context, id string) error {
	m.mu.Lock()
	j, ok := m.jobs[id]
	delete(m.jobs, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	j.mu.Lock()
	j.discarded = true
	j.updatedAt = time.Now()
	j.mu.Unlock()

	j.cancel()
	// Must not run inside a bus handler.
	j.sub.Close()
	j.closeWatchers()

	released, err := m.store.ReleaseJob(ctx, id)
	if err != nil {
		return fmt.Errorf("release handles of job %s: %w", id, err)
	}
	m.logger.InfoTag("JOB", "job %s discarded, %d handles released", id, released)
	return nil
}

// File returns the stored output named filename.
func (m *Manager) File(ctx context.Context, id, filename string) (render.Output, error) {
	outputs, _, err := m.load(ctx, id, func(info OutputInfo) bool { return info.Filename == filename })
	if err != nil {
		return render.Output{}, err
	}
	return archive.Single(outputs, filename)
}

// Archive packages a finished job's outputs, in production order.
func (m *Manager) Archive(ctx context.Context, id string) (render.Output, error) {
	outputs, finished, err := m.load(ctx, id, nil)
	if err != nil {
		return render.Output{}, err
	}
	if !finished {
		return render.Output{}, ErrNotReady
	}
	return archive.Bundle(outputs)
}

// load fetches the content of the job's outputs that match keep, or all of
// them when keep is nil. It also reports whether the job has finished.
func (m *Manager) load(ctx context.Context, id string, keep func(OutputInfo) bool) ([]render.Output, bool, error) {
	j, err := m.lookup(id)
	if err != nil {
		return nil, false, err
	}

	j.mu.Lock()
	finished := j.state.Finished()
	infos := make([]OutputInfo, 0, len(j.outputs))
	for _, info := range j.outputs {
		if keep == nil || keep(info) {
			infos = append(infos, info)
		}
	}
	j.updatedAt = time.Now()
	j.mu.Unlock()

	outputs := make([]render.Output, 0, len(infos))
	for _, info := range infos {
		h, err := m.store.Get(ctx, info.HandleID)
		if err != nil {
			return nil, finished, err
		}
		outputs = append(outputs, render.Output{
			Filename:    h.Filename,
			ContentType: h.ContentType,
			Content:     h.Data,
			Width:       info.Width,
			Height:      info.Height,
			SpecID:      info.SpecID,
			Label:       info.Label,
		})
	}
	return outputs, finished, nil
}

// Stats summarizes the jobs the manager knows about.
func (m *Manager) Stats() map[string]any {
	renderer := m.renderer
	if renderer == nil {
		renderer = m.engine.Renderer()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]any{
		"jobs":       len(m.jobs),
		"active":     m.active,
		"max_active": m.maxActive,
		"resampler":  renderer.Resampler().Name(),
	}
}

func (m *Manager) sweepLoop(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Sweep discards finished jobs nobody has touched within the TTL.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	stale := make([]string, 0)
	for id, j := range m.jobs {
		j.mu.Lock()
		if j.state.Finished() && j.updatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
		j.mu.Unlock()
	}
	m.mu.Unlock()

	for _, id := range stale {
		if err := m.Discard(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			m.logger.WarnTag("JOB", "sweep job %s: %v", id, err)
		}
	}
	if err := m.store.CleanupExpired(ctx); err != nil {
		m.logger.WarnTag("JOB", "cleanup expired handles: %v", err)
	}
	if len(stale) > 0 {
		m.logger.DebugTag("JOB", "swept %d idle jobs", len(stale))
	}
	return len(stale)
}

// Close discards every job and waits for running batches to stop.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	close(m.stopCh)

	var errs []error
	for _, id := range ids {
		if err := m.Discard(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}
