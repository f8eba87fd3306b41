package jobs

import "time"

// Status represents the lifecycle stage of a generation job
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// GenerationJob is the persisted record of one narration request. It is
// created when a submission succeeds, mutated only by the orchestrator on
// each poll outcome, and owned by exactly one writer per episode id at a
// time. Completed and failed are terminal.
type GenerationJob struct {
	ID              string    `json:"id"`
	ProviderJobIDs  []string  `json:"providerJobIds"` // one per submitted chunk, in playback order
	Status          Status    `json:"status"`
	ResultRefs      []string  `json:"resultRefs,omitempty"` // provider result URLs, in playback order
	ChunksPolled    int       `json:"chunksPolled,omitempty"` // provider streams drained so far
	ErrorMessage    string    `json:"errorMessage,omitempty"`
	AudioURL        string    `json:"audioUrl,omitempty"`
	DurationSeconds int       `json:"durationSeconds,omitempty"`
	FileSizeBytes   int64     `json:"fileSizeBytes,omitempty"`
	ChunkCount      int       `json:"chunkCount,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// IsTerminal reports whether the job reached a final state
func (j *GenerationJob) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
