package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/stagelink/modgate/internal/db"
	apperrors "github.com/stagelink/modgate/internal/errors"
	"github.com/stagelink/modgate/internal/moderation"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type messageStore interface {
	GetConversation(ctx context.Context, id string) (*db.Conversation, error)
	GetConversationMessages(ctx context.Context, conversationID string, limit, offset int) ([]*db.Message, error)
	ListMessageFlags(ctx context.Context, limit, offset int) ([]*db.MessageFlag, error)
}

type submitter interface {
	Submit(ctx context.Context, senderID, conversationID, content string) (*moderation.SubmissionResult, error)
}

type Handler struct {
	pipeline submitter
	ledger   moderation.StrikeLedger
	store    messageStore
	logger   *log.Entry
}

func NewHandler(pipeline submitter, ledger moderation.StrikeLedger, store messageStore) *Handler {
	return &Handler{
		pipeline: pipeline,
		ledger:   ledger,
		store:    store,
		logger:   log.WithField("service", "api"),
	}
}

type submitRequest struct {
	Content string `json:"content"`
}

type messagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toMessagePayload(message *db.Message) messagePayload {
	return messagePayload{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Content:        message.Content,
		CreatedAt:      message.CreatedAt,
	}
}

// SubmitMessage handles POST /api/conversations/{conversationID}/messages.
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.pipeline.Submit(r.Context(), callerID(r), conversationID, req.Content)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	switch result.Status {
	case moderation.StatusSent:
		writeJSON(w, http.StatusCreated, map[string]any{
			"status":  result.Status,
			"message": toMessagePayload(result.Message),
		})
	case moderation.StatusBlocked:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"status":        result.Status,
			"violationType": result.ViolationType,
			"explanation":   result.Explanation,
			"strikeCount":   result.StrikeCountAfter,
		})
	case moderation.StatusSuspended:
		writeJSON(w, http.StatusForbidden, map[string]any{
			"status":          result.Status,
			"suspensionUntil": result.SuspensionUntil,
			"explanation":     result.Explanation,
		})
	default:
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": moderation.StatusServiceError,
			"error":  result.Reason,
		})
	}
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, apperrors.ErrNotFound):
		writeError(w, http.StatusNotFound, "Conversation not found")
	case errors.Is(err, apperrors.ErrForbidden):
		writeError(w, http.StatusForbidden, "Not a conversation participant")
	case errors.Is(err, apperrors.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Message content is required")
	default:
		h.logger.WithError(err).Error("submit failed")
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// ListMessages handles GET /api/conversations/{conversationID}/messages.
// Blocked rows never appear here, the store query excludes them.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	conversation, err := h.store.GetConversation(r.Context(), conversationID)
	if errors.Is(err, apperrors.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to load conversation")
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if !conversation.HasParticipant(callerID(r)) {
		writeError(w, http.StatusForbidden, "Not a conversation participant")
		return
	}

	limit, offset := pagination(r)
	messages, err := h.store.GetConversationMessages(r.Context(), conversationID, limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("failed to list messages")
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	payload := make([]messagePayload, 0, len(messages))
	for _, message := range messages {
		payload = append(payload, toMessagePayload(message))
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": payload})
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= maxPageSize {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
