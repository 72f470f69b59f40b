package eventbus

import (
	"fmt"
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// Bus publishes job progress. Delivery is synchronous on the publisher's goroutine,
// so events reach a subscriber in publish order.
type Bus struct {
	bus evbus.Bus
}

func New() *Bus {
	return &Bus{bus: evbus.New()}
}

func (b *Bus) PublishProgress(e ProgressEvent) {
	b.bus.Publish(ProgressTopic(e.JobID), e)
}

// PublishCompleted notifies the job's subscriber and then the global finished topic.
func (b *Bus) PublishCompleted(e CompletedEvent) {
	b.bus.Publish(CompletedTopic(e.JobID), e)
	b.bus.Publish(TopicJobFinished, e)
}

// HasSubscriber reports whether either of jobID's topics has a handler.
func (b *Bus) HasSubscriber(jobID string) bool {
	return b.bus.HasCallback(ProgressTopic(jobID)) || b.bus.HasCallback(CompletedTopic(jobID))
}

// Subscription is one job's pair of handlers.
type Subscription struct {
	bus        evbus.Bus
	jobID      string
	onProgress func(ProgressEvent)
	onComplete func(CompletedEvent)
	once       sync.Once
}

// SubscribeJob registers the only subscriber of jobID's topics.
func (b *Bus) SubscribeJob(jobID string, onProgress func(ProgressEvent), onComplete func(CompletedEvent)) (*Subscription, error) {
	if b.HasSubscriber(jobID) {
		return nil, fmt.Errorf("job %s already has a subscriber", jobID)
	}

	s := &Subscription{bus: b.bus, jobID: jobID, onProgress: onProgress, onComplete: onComplete}
	if err := b.bus.Subscribe(ProgressTopic(jobID), s.onProgress); err != nil {
		return nil, err
	}
	if err := b.bus.Subscribe(CompletedTopic(jobID), s.onComplete); err != nil {
		_ = b.bus.Unsubscribe(ProgressTopic(jobID), s.onProgress)
		return nil, err
	}
	return s, nil
}

// Close unsubscribes both handlers. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		_ = s.bus.Unsubscribe(ProgressTopic(s.jobID), s.onProgress)
		_ = s.bus.Unsubscribe(CompletedTopic(s.jobID), s.onComplete)
	})
}

// SubscribeFinished registers fn on the global finished topic.
func (b *Bus) SubscribeFinished(fn func(CompletedEvent)) error {
	return b.bus.Subscribe(TopicJobFinished, fn)
}
