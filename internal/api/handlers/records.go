package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "omnihook/internal/api/context"
	"omnihook/internal/pkg/errors"
	"omnihook/internal/platform/models"
	"omnihook/internal/platform/storage"
)

// RecordsHandler serves the admin read API over the stored unified
// records.
type RecordsHandler struct {
	store storage.Store
}

func NewRecordsHandler(store storage.Store) *RecordsHandler {
	return &RecordsHandler{store: store}
}

func requestParams(r *http.Request) httprouter.Params {
	ps, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return ps
}

// ListMessages returns messages for either a platform or a conversation,
// selected by query parameter.
func (h *RecordsHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if conversationID := query.Get("conversation_id"); conversationID != "" {
		messages, err := h.store.GetMessagesByConversation(conversationID)
		if err != nil {
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load messages", nil)
			return
		}
		writeJSON(w, messages)
		return
	}

	platform, err := models.ParsePlatform(query.Get("platform"))
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "platform or conversation_id query parameter required", nil)
		return
	}
	messages, err := h.store.GetMessagesByPlatform(platform)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load messages", nil)
		return
	}
	writeJSON(w, messages)
}

// ListEngagements returns engagements for either a platform or a piece of
// content.
func (h *RecordsHandler) ListEngagements(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if contentID := query.Get("content_id"); contentID != "" {
		engagements, err := h.store.GetEngagementsByContent(contentID)
		if err != nil {
			errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load engagements", nil)
			return
		}
		writeJSON(w, engagements)
		return
	}

	platform, err := models.ParsePlatform(query.Get("platform"))
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "platform or content_id query parameter required", nil)
		return
	}
	engagements, err := h.store.GetEngagementsByPlatform(platform)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load engagements", nil)
		return
	}
	writeJSON(w, engagements)
}

// GetStats returns the aggregate counters across all platforms.
func (h *RecordsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats()
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load stats", nil)
		return
	}
	writeJSON(w, stats)
}

// GetOptOut reports whether a user on a platform has opted out.
func (h *RecordsHandler) GetOptOut(w http.ResponseWriter, r *http.Request) {
	ps := requestParams(r)

	platform, err := models.ParsePlatform(ps.ByName("platform"))
	if err != nil {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Unknown platform", nil)
		return
	}
	userID := ps.ByName("user_id")

	opted, err := h.store.IsOptedOut(platform, userID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load opt-out state", nil)
		return
	}
	writeJSON(w, struct {
		Platform models.Platform `json:"platform"`
		UserID   string          `json:"user_id"`
		OptedOut bool            `json:"opted_out"`
	}{platform, userID, opted})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
