package main

import (
	"fmt"
	stdlog "log"
	"net/http"

	"github.com/rs/zerolog/log"
	"omnihook/internal/api"
	"omnihook/internal/api/handlers"
	"omnihook/internal/api/middleware"
	"omnihook/internal/engine/gateway"
	"omnihook/internal/engine/instagram"
	"omnihook/internal/engine/messenger"
	"omnihook/internal/engine/whatsapp"
	"omnihook/internal/platform/auth"
	"omnihook/internal/platform/config"
	"omnihook/internal/platform/database"
	"omnihook/internal/platform/graph"
	"omnihook/internal/platform/repositories"
	"omnihook/internal/platform/storage"
	"omnihook/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	warnMissingSecrets(cfg)

	// Storage
	store, err := openStore(cfg)
	if err != nil {
		stdlog.Fatalf("Failed to open storage: %v", err)
	}

	// Outbound Graph API clients, one per platform token
	fbClient := graph.NewClient(cfg.Graph, cfg.Platforms.Facebook.AccessToken)
	igClient := graph.NewClient(cfg.Graph, cfg.Platforms.Instagram.AccessToken)
	waClient := graph.NewClient(cfg.Graph, cfg.Platforms.WhatsApp.AccessToken)

	// Platform handlers
	waHandler := whatsapp.NewHandler(store, waClient)
	fbHandler := messenger.NewHandler(store, fbClient, fbClient)
	igHandler := instagram.NewHandler(store, igClient, igClient)

	// Gateway
	router := gateway.NewRouter(
		gateway.NewSignatureVerifier(cfg.Platforms),
		gateway.NewEndpointVerifier(cfg.Platforms),
		waHandler, fbHandler, igHandler,
	)

	// Services
	tokenSvc := auth.NewTokenService(cfg.Admin)

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(router)
	recordsHandler := handlers.NewRecordsHandler(store)
	healthHandler := handlers.NewHealthHandler(router, store)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)

	// Router
	deps := &api.Dependencies{
		WebhookHandler: webhookHandler,
		RecordsHandler: recordsHandler,
		HealthHandler:  healthHandler,
		AuthMiddleware: authMiddleware,
	}
	httpRouter := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Info().Str("addr", addr).Str("storage", cfg.Storage.Driver).Msg("server starting")
	if err := server.ListenAndServe(); err != nil {
		stdlog.Fatalf("Server failed: %v", err)
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := database.Open(cfg.Storage)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		return repositories.NewSQLStore(db), nil
	case "memory", "":
		return storage.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
}

func warnMissingSecrets(cfg *config.Config) {
	platforms := map[string]config.PlatformConfig{
		"whatsapp":  cfg.Platforms.WhatsApp,
		"facebook":  cfg.Platforms.Facebook,
		"instagram": cfg.Platforms.Instagram,
	}
	for name, pc := range platforms {
		if pc.AppSecret == "" {
			if pc.AllowUnverified {
				log.Warn().Str("platform", name).
					Msg("SIGNATURE VERIFICATION DISABLED, do not run this configuration in production")
			} else {
				log.Warn().Str("platform", name).
					Msg("no app secret configured, all webhook deliveries will be rejected")
			}
		}
		if pc.VerifyToken == "" {
			log.Warn().Str("platform", name).
				Msg("no verify token configured, subscription handshakes will fail")
		}
	}
}
