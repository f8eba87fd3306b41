package provider

import "encoding/json"

// PollState is the tri-state outcome of reading a job's event stream
type PollState int

const (
	StateProcessing PollState = iota // stream not ready or synthesis mid-flight
	StateCompleted                   // terminal success, Data carries the result
	StateError                       // terminal provider-side failure
)

// String returns the state name for logging
func (s PollState) String() string {
	switch s {
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	default:
		return "processing"
	}
}

// PollResult is the parsed outcome of one event-stream read. The
// underlying stream is consumable at most once per job, so a result is
// produced from a single buffered read and never from repeated reads of
// the same connection.
type PollResult struct {
	State   PollState
	Data    json.RawMessage // completion payload, set when State is StateCompleted
	Message string          // human-readable error, set when State is StateError
}

// SubmitRequest carries the synthesis parameters for one provider call
type SubmitRequest struct {
	Text           string `json:"text"`
	VoiceID        string `json:"voice_id"`
	ModelID        string `json:"model_id,omitempty"`
	Style          string `json:"style,omitempty"`
	VoiceSampleURL string `json:"voice_sample_url,omitempty"`
}

// submitResponse is the provider's acknowledgement of a synthesis call
type submitResponse struct {
	EventID string `json:"event_id"`
}
