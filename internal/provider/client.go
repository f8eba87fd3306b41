package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/narrately/audio-forge/internal/observability"
)

// Sentinel errors for the two provider round-trips
var (
	ErrSubmission = errors.New("provider rejected submission")
	ErrPoll       = errors.New("provider poll failed")
)

// Client talks to the external TTS engine. Submission returns an opaque
// event id; completion is reported through a one-shot event stream read
// in full by PollOnce. The client carries no retry logic of its own;
// poll cadence belongs to the caller.
type Client struct {
	baseURL        string
	apiKey         string
	voiceID        string
	modelID        string
	voiceSampleURL string
	httpClient     *http.Client
	logger         zerolog.Logger
}

// NewClient creates a provider client. A nil httpClient falls back to a
// 120s-timeout default, sized for fully buffered event-stream reads.
func NewClient(baseURL, apiKey, voiceID, modelID, voiceSampleURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		voiceID:        voiceID,
		modelID:        modelID,
		voiceSampleURL: voiceSampleURL,
		httpClient:     httpClient,
		logger:         observability.GetLogger().With().Str("component", "provider").Logger(),
	}
}

// Submit issues the synthesis call and returns the provider's opaque job
// id. The id must be recorded before any polling occurs.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if req.VoiceID == "" {
		req.VoiceID = c.voiceID
	}
	if req.ModelID == "" {
		req.ModelID = c.modelID
	}
	if req.VoiceSampleURL == "" {
		req.VoiceSampleURL = c.voiceSampleURL
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal request: %v", ErrSubmission, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrSubmission, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrSubmission, resp.StatusCode)
	}

	var ack submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrSubmission, err)
	}
	if ack.EventID == "" {
		return "", fmt.Errorf("%w: response carried no event id", ErrSubmission)
	}

	c.logger.Debug().Str("event_id", ack.EventID).Int("text_len", len(req.Text)).Msg("Submission accepted")

	return ack.EventID, nil
}

// PollOnce opens one GET against the job's event-stream endpoint and
// reads the ENTIRE response body before parsing. The provider does not
// keep the connection open for repeated reads: the stream behaves as
// at-most-once-readable, so a Processing result means "not ready to
// read", not "read again immediately".
func (c *Client) PollOnce(ctx context.Context, jobID string) (PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/call/generate/"+jobID, nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("%w: failed to create request: %v", ErrPoll, err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PollResult{}, fmt.Errorf("%w: %v", ErrPoll, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PollResult{}, fmt.Errorf("%w: status %d", ErrPoll, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PollResult{}, fmt.Errorf("%w: failed to read stream: %v", ErrPoll, err)
	}

	result := c.parseEventStream(string(body))
	c.logger.Debug().Str("job_id", jobID).Str("outcome", result.State.String()).Msg("Polled event stream")

	return result, nil
}

// parseEventStream interprets a buffered text/event-stream body.
// "event: " lines set the current event type; "data: " lines must parse
// as strict JSON; failures are logged and skipped, never fatal. The
// outcome is tri-state: a "complete" event with data wins, an "error"
// event loses, anything else (including an empty or unrelated body)
// reads as still processing.
func (c *Client) parseEventStream(body string) PollResult {
	currentEvent := ""
	var completeData json.RawMessage
	var errorData json.RawMessage
	sawError := false

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")

		if strings.HasPrefix(line, "event: ") {
			currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			if currentEvent == "error" {
				sawError = true
			}
			continue
		}

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var parsed json.RawMessage
		if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
			c.logger.Warn().Str("event", currentEvent).Str("data", truncate(payload, 200)).Msg("Skipping unparseable data line")
			continue
		}

		switch currentEvent {
		case "complete":
			completeData = parsed
		case "error":
			errorData = parsed
		}
	}

	if completeData != nil {
		return PollResult{State: StateCompleted, Data: completeData}
	}
	if sawError {
		return PollResult{State: StateError, Message: errorMessage(errorData)}
	}
	return PollResult{State: StateProcessing}
}

// errorMessage extracts a readable message from an error event's data,
// falling back to a generic one
func errorMessage(data json.RawMessage) string {
	if data == nil {
		return "provider reported an error"
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		return s
	}

	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Error != "" {
			return obj.Error
		}
	}

	return string(data)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
