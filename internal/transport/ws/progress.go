// Package ws pushes live evaluation progress over WebSocket so callers can
// watch a job instead of polling the REST endpoint.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/evalify/evalify-evaluator/internal/cache"
	"github.com/evalify/evalify-evaluator/internal/model"
)

const (
	writeWait    = 10 * time.Second
	pollInterval = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressSource resolves the reconciled progress of a quiz evaluation.
type ProgressSource interface {
	Progress(ctx context.Context, quizID string) (*model.ProgressSnapshot, error)
}

// Handler handles WebSocket progress subscriptions
type Handler struct {
	source ProgressSource
	log    *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(source ProgressSource, log *slog.Logger) *Handler {
	return &Handler{source: source, log: log}
}

// Watch handles GET /v1/evaluations/{quizId}/progress/watch. It pushes a
// snapshot immediately, then on every poll tick, and closes once the job
// reaches a terminal state.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	quizID := mux.Vars(r)["quizId"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "quizId", quizID, "error", err)
		return
	}
	defer conn.Close()

	// Reads are only consumed to detect the client going away.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		snapshot, err := h.source.Progress(r.Context(), quizID)
		if errors.Is(err, cache.ErrNotFound) {
			h.writeClose(conn, websocket.ClosePolicyViolation, "no evaluation job found for quiz")
			return
		}
		if err != nil {
			h.log.Error("progress lookup failed", "quizId", quizID, "error", err)
			h.writeClose(conn, websocket.CloseInternalServerErr, "progress lookup failed")
			return
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(snapshot); err != nil {
			return
		}
		if snapshot.Status.Terminal() {
			h.writeClose(conn, websocket.CloseNormalClosure, string(snapshot.Status))
			return
		}

		select {
		case <-ticker.C:
		case <-clientGone:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *Handler) writeClose(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeWait)
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}
