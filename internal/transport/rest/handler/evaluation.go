package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/evalify/evalify-evaluator/internal/cache"
	"github.com/evalify/evalify-evaluator/internal/model"
	"github.com/evalify/evalify-evaluator/internal/queue"
	"github.com/evalify/evalify-evaluator/internal/service"
)

// EvaluationService is the slice of the engine the handlers need.
type EvaluationService interface {
	Submit(ctx context.Context, req model.EvaluationJobRequest) (*model.EvaluationAccepted, error)
	Progress(ctx context.Context, quizID string) (*model.ProgressSnapshot, error)
	Results(ctx context.Context, quizID string) ([]model.StudentResult, error)
}

// EvaluationHandler handles evaluation submission and progress endpoints
type EvaluationHandler struct {
	svc EvaluationService
}

// NewEvaluationHandler creates a new evaluation handler
func NewEvaluationHandler(svc EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{svc: svc}
}

// Submit handles POST /v1/evaluations
func (h *EvaluationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.EvaluationJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuizID == "" {
		writeError(w, http.StatusBadRequest, "quizId is required")
		return
	}

	accepted, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, accepted)
}

// Progress handles GET /v1/evaluations/{quizId}/progress
func (h *EvaluationHandler) Progress(w http.ResponseWriter, r *http.Request) {
	quizID := mux.Vars(r)["quizId"]

	snapshot, err := h.svc.Progress(r.Context(), quizID)
	if errors.Is(err, cache.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no evaluation job found for quiz")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// Results handles GET /v1/evaluations/{quizId}/results
func (h *EvaluationHandler) Results(w http.ResponseWriter, r *http.Request) {
	quizID := mux.Vars(r)["quizId"]

	results, err := h.svc.Results(r.Context(), quizID)
	switch {
	case errors.Is(err, cache.ErrNotFound), errors.Is(err, queue.ErrNotFound):
		writeError(w, http.StatusNotFound, "no evaluation results found for quiz")
		return
	case errors.Is(err, service.ErrResultsNotReady):
		writeError(w, http.StatusConflict, "evaluation is still in progress")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"quizId":  quizID,
		"results": results,
	})
}
