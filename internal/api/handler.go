package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/narrately/audio-forge/internal/generation"
	"github.com/narrately/audio-forge/internal/jobs"
	"github.com/narrately/audio-forge/internal/observability"
	"github.com/narrately/audio-forge/internal/resilience"
)

// GenerationService is the orchestration surface the HTTP layer needs
type GenerationService interface {
	Submit(ctx context.Context, episodeID, text, style string) (*generation.SubmitResult, error)
	Poll(ctx context.Context, episodeID string) (*jobs.GenerationJob, error)
	Await(ctx context.Context, episodeID string, policy resilience.PollPolicy) (*jobs.GenerationJob, error)
	Status(ctx context.Context, episodeID string) (*jobs.GenerationJob, error)
}

// Handler exposes the narration API over HTTP
type Handler struct {
	service    GenerationService
	pollPolicy resilience.PollPolicy
	logger     zerolog.Logger
}

// NewHandler creates the API handler. The poll policy bounds the
// blocking await endpoint.
func NewHandler(service GenerationService, pollPolicy resilience.PollPolicy) *Handler {
	return &Handler{
		service:    service,
		pollPolicy: pollPolicy,
		logger:     observability.GetLogger().With().Str("component", "api").Logger(),
	}
}

// Register mounts the narration routes on the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/episodes/{id}/audio", h.handleSubmit)
	mux.HandleFunc("POST /v1/episodes/{id}/audio/poll", h.handlePoll)
	mux.HandleFunc("POST /v1/episodes/{id}/audio/await", h.handleAwait)
	mux.HandleFunc("GET /v1/episodes/{id}/audio", h.handleStatus)
}

type submitRequest struct {
	Text  string `json:"text"`
	Style string `json:"style,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	logger := h.requestLogger(w, episodeID)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusUnprocessableEntity, "text is required")
		return
	}

	// Refuse to double-submit while a job is still in flight
	if existing, err := h.service.Status(r.Context(), episodeID); err == nil && existing != nil && !existing.IsTerminal() {
		writeError(w, http.StatusConflict, "a generation job for this episode is already in flight")
		return
	}

	result, err := h.service.Submit(r.Context(), episodeID, req.Text, req.Style)
	if err != nil {
		logger.Error().Err(err).Msg("Submission failed")
		if errors.Is(err, resilience.ErrCircuitOpen) {
			writeError(w, http.StatusServiceUnavailable, "provider temporarily unavailable")
			return
		}
		if errors.Is(err, jobs.ErrInvalidID) {
			writeError(w, http.StatusUnprocessableEntity, "episode id is required")
			return
		}
		writeError(w, http.StatusBadGateway, "provider rejected the submission")
		return
	}

	logger.Info().Int("chunks", result.ChunkCount).Msg("Submission accepted")
	writeJSON(w, http.StatusAccepted, result)
}

func (h *Handler) handlePoll(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	logger := h.requestLogger(w, episodeID)

	job, err := h.service.Poll(r.Context(), episodeID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no generation job for this episode")
			return
		}
		logger.Error().Err(err).Msg("Poll failed")
		writeError(w, http.StatusInternalServerError, "failed to poll generation job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// handleAwait blocks until the job is terminal or the poll budget runs
// out. The budget is bounded, so a stuck provider surfaces as a timeout
// rather than a hung connection.
func (h *Handler) handleAwait(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	logger := h.requestLogger(w, episodeID)

	job, err := h.service.Await(r.Context(), episodeID, h.pollPolicy)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no generation job for this episode")
			return
		}
		if errors.Is(err, resilience.ErrExhausted) {
			// Not terminal yet; hand back what we know with a timeout status
			logger.Warn().Msg("Await exhausted its poll budget")
			if job != nil {
				writeJSON(w, http.StatusGatewayTimeout, job)
				return
			}
			writeError(w, http.StatusGatewayTimeout, "generation did not finish within the poll budget")
			return
		}
		logger.Error().Err(err).Msg("Await failed")
		writeError(w, http.StatusInternalServerError, "failed to await generation job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	logger := h.requestLogger(w, episodeID)

	job, err := h.service.Status(r.Context(), episodeID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no generation job for this episode")
			return
		}
		logger.Error().Err(err).Msg("Status read failed")
		writeError(w, http.StatusInternalServerError, "failed to read generation job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// requestLogger tags the response with a correlation id and returns a
// logger carrying it
func (h *Handler) requestLogger(w http.ResponseWriter, episodeID string) zerolog.Logger {
	correlationID := observability.NewCorrelationID()
	w.Header().Set("X-Correlation-ID", correlationID)
	return h.logger.With().
		Str("correlation_id", correlationID).
		Str("episode_id", episodeID).
		Logger()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
