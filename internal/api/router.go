package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "omnihook/internal/api/context"
	"omnihook/internal/api/handlers"
	"omnihook/internal/api/middleware"
)

type Dependencies struct {
	WebhookHandler *handlers.WebhookHandler
	RecordsHandler *handlers.RecordsHandler
	HealthHandler  *handlers.HealthHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	// Webhook endpoints, one pair per platform
	router.GET("/webhooks/:platform", wrap(deps.WebhookHandler.Verify))
	router.POST("/webhooks/:platform", wrap(deps.WebhookHandler.Receive))

	router.GET("/health", wrap(deps.HealthHandler.Check))

	// Admin read API
	authMid := deps.AuthMiddleware
	router.GET("/api/v1/messages",
		chain(deps.RecordsHandler.ListMessages, authMid.Handle))
	router.GET("/api/v1/engagements",
		chain(deps.RecordsHandler.ListEngagements, authMid.Handle))
	router.GET("/api/v1/stats",
		chain(deps.RecordsHandler.GetStats, authMid.Handle))
	router.GET("/api/v1/optouts/:platform/:user_id",
		chain(deps.RecordsHandler.GetOptOut, authMid.Handle))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		// Inject params into context
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
