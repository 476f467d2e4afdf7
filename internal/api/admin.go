package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	apperrors "github.com/stagelink/modgate/internal/errors"
)

type flagPayload struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	ViolationType  string    `json:"violationType"`
	FlaggedContent string    `json:"flaggedContent"`
	AIConfidence   float64   `json:"aiConfidence"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Unsuspend handles POST /api/admin/users/{userID}/unsuspend. It lifts the
// suspension window but preserves the strike count.
func (h *Handler) Unsuspend(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	err := h.ledger.ClearSuspension(r.Context(), userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No strike record for user")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to clear suspension")
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// GetStrikes handles GET /api/admin/users/{userID}/strikes.
func (h *Handler) GetStrikes(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	state, err := h.ledger.CheckSuspension(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("failed to read strike record")
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":          userID,
		"strikeCount":     state.StrikeCount,
		"isSuspended":     state.IsSuspended,
		"suspensionUntil": state.SuspensionUntil,
	})
}

// ListFlags handles GET /api/admin/flags.
func (h *Handler) ListFlags(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	flags, err := h.store.ListMessageFlags(r.Context(), limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("failed to list flags")
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	payload := make([]flagPayload, 0, len(flags))
	for _, flag := range flags {
		payload = append(payload, flagPayload{
			ID:             flag.ID,
			UserID:         flag.UserID,
			ViolationType:  flag.ViolationType,
			FlaggedContent: flag.FlaggedContent,
			AIConfidence:   flag.AIConfidence,
			CreatedAt:      flag.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"flags": payload})
}
