package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "omnihook/internal/api/context"
	"omnihook/internal/engine/gateway"
	"omnihook/internal/pkg/errors"
	"omnihook/internal/platform/models"
)

type WebhookHandler struct {
	router *gateway.Router
}

func NewWebhookHandler(router *gateway.Router) *WebhookHandler {
	return &WebhookHandler{router: router}
}

func platformParam(r *http.Request) (models.Platform, bool) {
	ps, ok := r.Context().Value(apiContext.Params).(httprouter.Params)
	if !ok {
		return "", false
	}
	platform, err := models.ParsePlatform(ps.ByName("platform"))
	if err != nil {
		return "", false
	}
	return platform, true
}

// Verify answers the GET subscription handshake. The challenge is echoed
// back as plain text on success. All three hub.* parameters must be
// present; a present-but-empty hub.challenge echoes an empty body.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	platform, ok := platformParam(r)
	if !ok {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Unknown platform", nil)
		return
	}

	query := r.URL.Query()
	if !query.Has("hub.mode") || !query.Has("hub.verify_token") || !query.Has("hub.challenge") {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Missing hub.mode, hub.verify_token or hub.challenge", nil)
		return
	}

	challenge, ok := h.router.VerifyEndpoint(platform,
		query.Get("hub.mode"), query.Get("hub.verify_token"), query.Get("hub.challenge"))
	if !ok {
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Verification failed", nil)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// Receive accepts a webhook delivery. The response is 200 whenever the
// delivery was accepted for processing, even if individual events failed;
// Meta retries non-200 responses and a retry storm helps nobody. Only a
// bad signature (403) or an empty body (400) is refused.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	platform, ok := platformParam(r)
	if !ok {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Unknown platform", nil)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Empty request body", nil)
		return
	}

	result := h.router.RouteWebhook(r.Context(), platform,
		r.Header.Get("X-Hub-Signature-256"), body)

	if result.Error == gateway.ErrInvalidSignature {
		errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, gateway.ErrInvalidSignature, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}
