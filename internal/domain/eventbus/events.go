package eventbus

import "fmt"

const (
	// TopicJobFinished carries every job's final snapshot.
	TopicJobFinished = "job:finished"

	progressTopicPrefix  = "batch:progress:"
	completedTopicPrefix = "batch:completed:"
)

// ProgressTopic is the per-job progress topic.
func ProgressTopic(jobID string) string {
	return progressTopicPrefix + jobID
}

// CompletedTopic is the per-job completion topic.
func CompletedTopic(jobID string) string {
	return completedTopicPrefix + jobID
}

type ProgressEvent struct {
	JobID        string `json:"jobId"`
	Completed    int    `json:"completed"`
	Total        int    `json:"total"`
	CurrentLabel string `json:"currentLabel"`
}

// CompletedEvent is published once per job when its batch stops.
type CompletedEvent struct {
	JobID    string   `json:"jobId"`
	State    string   `json:"state"`
	Outputs  int      `json:"outputs"`
	Failed   int      `json:"failed"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func (e CompletedEvent) String() string {
	if e.Error != "" {
		return fmt.Sprintf("job %s %s: %s", e.JobID, e.State, e.Error)
	}
	return fmt.Sprintf("job %s %s: %d outputs, %d failed", e.JobID, e.State, e.Outputs, e.Failed)
}
