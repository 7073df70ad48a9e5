package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"omnihook/internal/engine/instagram"
	"omnihook/internal/engine/messenger"
	"omnihook/internal/engine/whatsapp"
	"omnihook/internal/platform/models"
)

// ErrInvalidSignature is the error string surfaced to callers when the
// body signature does not verify. The body is never parsed in that case.
const ErrInvalidSignature = "Invalid signature"

// Result is the outcome of routing one webhook delivery.
type Result struct {
	Success      bool            `json:"success"`
	Platform     models.Platform `json:"platform"`
	EventType    string          `json:"event_type,omitempty"`
	Error        string          `json:"error,omitempty"`
	ProcessingMS int64           `json:"processing_time_ms"`
}

// Router verifies, parses and dispatches webhook deliveries to the
// per-platform handlers.
type Router struct {
	verifier  *SignatureVerifier
	endpoints *EndpointVerifier
	whatsapp  *whatsapp.Handler
	facebook  *messenger.Handler
	instagram *instagram.Handler
}

func NewRouter(
	verifier *SignatureVerifier,
	endpoints *EndpointVerifier,
	wa *whatsapp.Handler,
	fb *messenger.Handler,
	ig *instagram.Handler,
) *Router {
	return &Router{
		verifier:  verifier,
		endpoints: endpoints,
		whatsapp:  wa,
		facebook:  fb,
		instagram: ig,
	}
}

// RouteWebhook runs the full pipeline for one delivery: signature check,
// parse, classify, dispatch. Every result carries the processing time.
func (r *Router) RouteWebhook(ctx context.Context, platform models.Platform, signature string, body []byte) Result {
	start := time.Now()
	result := r.route(ctx, platform, signature, body)
	result.Platform = platform
	result.ProcessingMS = time.Since(start).Milliseconds()

	event := log.Info()
	if !result.Success {
		event = log.Warn()
	}
	event.Str("platform", string(platform)).
		Str("event_type", result.EventType).
		Bool("success", result.Success).
		Int64("processing_time_ms", result.ProcessingMS).
		Str("error", result.Error).
		Msg("webhook processed")

	return result
}

func (r *Router) route(ctx context.Context, platform models.Platform, signature string, body []byte) Result {
	if !r.verifier.Verify(platform, signature, body) {
		return Result{Error: ErrInvalidSignature}
	}

	switch platform {
	case models.PlatformWhatsApp:
		p, err := whatsapp.Parse(body)
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: r.whatsapp.HandleWebhook(ctx, p), EventType: p.EventType()}
	case models.PlatformFacebook:
		p, err := messenger.Parse(body)
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: r.facebook.HandleWebhook(ctx, p), EventType: p.EventType()}
	case models.PlatformInstagram:
		p, err := instagram.Parse(body)
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: r.instagram.HandleWebhook(ctx, p), EventType: p.EventType()}
	}
	return Result{Error: "unknown platform: " + string(platform)}
}

// VerifyEndpoint answers the GET subscription handshake for a platform.
func (r *Router) VerifyEndpoint(platform models.Platform, mode, token, challenge string) (string, bool) {
	echo, ok := r.endpoints.Verify(platform, mode, token, challenge)
	if !ok {
		log.Warn().Str("platform", string(platform)).Str("mode", mode).
			Msg("webhook verification handshake rejected")
		return "", false
	}
	log.Info().Str("platform", string(platform)).Msg("webhook endpoint verified")
	return echo, true
}

// HealthCheck reports which platform handlers are wired.
func (r *Router) HealthCheck() map[models.Platform]bool {
	return map[models.Platform]bool{
		models.PlatformWhatsApp:  r.whatsapp != nil,
		models.PlatformFacebook:  r.facebook != nil,
		models.PlatformInstagram: r.instagram != nil,
	}
}
