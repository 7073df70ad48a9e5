package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"omnihook/internal/engine/gateway"
	"omnihook/internal/platform/storage"
)

type HealthHandler struct {
	router *gateway.Router
	store  storage.Store
}

func NewHealthHandler(router *gateway.Router, store storage.Store) *HealthHandler {
	return &HealthHandler{router: router, store: store}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	platforms := h.router.HealthCheck()

	checks := make(map[string]string)
	for platform, ok := range platforms {
		if ok {
			checks[string(platform)] = "healthy"
		} else {
			checks[string(platform)] = "unconfigured"
		}
	}

	if _, err := h.store.Stats(); err != nil {
		checks["storage"] = "unhealthy: " + err.Error()
	} else {
		checks["storage"] = "healthy"
	}

	status := "healthy"
	for _, check := range checks {
		if check != "healthy" {
			status = "degraded"
			break
		}
	}

	response := struct {
		Status    string            `json:"status"`
		Timestamp int64             `json:"timestamp"`
		Checks    map[string]string `json:"checks"`
	}{
		Status:    status,
		Timestamp: time.Now().Unix(),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
