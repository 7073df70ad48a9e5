package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"omnihook/internal/api/handlers"
	"omnihook/internal/api/middleware"
	"omnihook/internal/engine/gateway"
	"omnihook/internal/engine/instagram"
	"omnihook/internal/engine/messenger"
	"omnihook/internal/engine/whatsapp"
	"omnihook/internal/platform/auth"
	"omnihook/internal/platform/config"
	"omnihook/internal/platform/models"
	"omnihook/internal/platform/storage"
)

func testServer(t *testing.T) (*httptest.Server, *storage.MemoryStore, *auth.TokenService) {
	t.Helper()

	platforms := config.PlatformsConfig{
		WhatsApp:  config.PlatformConfig{AppSecret: "wa-secret", VerifyToken: "wa-token"},
		Facebook:  config.PlatformConfig{AppSecret: "fb-secret", VerifyToken: "fb-token"},
		Instagram: config.PlatformConfig{AppSecret: "ig-secret", VerifyToken: "ig-token"},
	}
	store := storage.NewMemoryStore()
	router := gateway.NewRouter(
		gateway.NewSignatureVerifier(platforms),
		gateway.NewEndpointVerifier(platforms),
		whatsapp.NewHandler(store, nil),
		messenger.NewHandler(store, nil, nil),
		instagram.NewHandler(store, nil, nil),
	)
	tokenSvc := auth.NewTokenService(config.AdminConfig{
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Minute,
	})

	srv := httptest.NewServer(NewRouter(&Dependencies{
		WebhookHandler: handlers.NewWebhookHandler(router),
		RecordsHandler: handlers.NewRecordsHandler(store),
		HealthHandler:  handlers.NewHealthHandler(router, store),
		AuthMiddleware: middleware.NewAuthMiddleware(tokenSvc),
	}))
	t.Cleanup(srv.Close)
	return srv, store, tokenSvc
}

func TestWebhookVerifyHandshake(t *testing.T) {
	srv, _, _ := testServer(t)

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantBody   string
	}{
		{
			"valid handshake",
			"/webhooks/facebook?hub.mode=subscribe&hub.verify_token=fb-token&hub.challenge=4242",
			http.StatusOK, "4242",
		},
		{
			"wrong token",
			"/webhooks/facebook?hub.mode=subscribe&hub.verify_token=bad&hub.challenge=4242",
			http.StatusForbidden, "",
		},
		{
			"missing params",
			"/webhooks/facebook",
			http.StatusBadRequest, "",
		},
		{
			"missing challenge",
			"/webhooks/facebook?hub.mode=subscribe&hub.verify_token=fb-token",
			http.StatusBadRequest, "",
		},
		{
			"empty challenge echoed",
			"/webhooks/facebook?hub.mode=subscribe&hub.verify_token=fb-token&hub.challenge=",
			http.StatusOK, "",
		},
		{
			"unknown platform",
			"/webhooks/telegram?hub.mode=subscribe&hub.verify_token=fb-token",
			http.StatusNotFound, "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.url)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				buf := new(bytes.Buffer)
				buf.ReadFrom(resp.Body)
				if buf.String() != tt.wantBody {
					t.Errorf("body = %q, want %q", buf.String(), tt.wantBody)
				}
			}
		})
	}
}

func postWebhook(t *testing.T, srv *httptest.Server, platform, secret string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/"+platform, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if secret != "" {
		req.Header.Set("X-Hub-Signature-256", gateway.Sign(secret, body))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestWebhookReceive(t *testing.T) {
	srv, store, _ := testServer(t)

	body := []byte(`{
		"object": "page",
		"entry": [{
			"id": "page-1",
			"messaging": [{
				"sender": {"id": "user-1"},
				"recipient": {"id": "page-1"},
				"message": {"mid": "mid-1", "text": "hello"}
			}]
		}]
	}`)

	resp := postWebhook(t, srv, "facebook", "fb-secret", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result gateway.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if !result.Success || result.EventType != "message" {
		t.Errorf("result = %+v", result)
	}

	msgs, _ := store.GetMessagesByPlatform(models.PlatformFacebook)
	if len(msgs) != 1 {
		t.Fatalf("stored %d messages, want 1", len(msgs))
	}
}

func TestWebhookReceiveBadSignature(t *testing.T) {
	srv, store, _ := testServer(t)

	body := []byte(`{"object":"page","entry":[]}`)
	resp := postWebhook(t, srv, "facebook", "wrong-secret", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	msgs, _ := store.GetMessagesByPlatform(models.PlatformFacebook)
	if len(msgs) != 0 {
		t.Errorf("stored %d messages from an unverified delivery", len(msgs))
	}
}

func TestWebhookReceiveEmptyBody(t *testing.T) {
	srv, _, _ := testServer(t)

	resp := postWebhook(t, srv, "facebook", "fb-secret", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWebhookReceiveAlwaysAcks(t *testing.T) {
	srv, _, _ := testServer(t)

	// A correctly signed body whose processing fails must still be
	// acknowledged with 200 so the platform does not retry forever.
	body := []byte(`{"object":"not-a-page","entry":[]}`)
	resp := postWebhook(t, srv, "facebook", "fb-secret", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result gateway.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Success {
		t.Error("result.Success = true for a mismatched object type")
	}
}

func TestAdminAPIRequiresToken(t *testing.T) {
	srv, _, tokenSvc := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/stats")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", resp.StatusCode)
	}

	token, err := tokenSvc.GenerateAccessToken("ops", []string{"read"})
	if err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status with token = %d, want 200", resp.StatusCode)
	}
	var stats storage.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
}

func TestAdminListMessages(t *testing.T) {
	srv, store, tokenSvc := testServer(t)

	if _, err := store.StoreMessage(models.PlatformWhatsApp, &models.UnifiedMessage{
		PlatformMessageID: "wamid.x",
		ConversationID:    "convo-1",
		SenderID:          "convo-1",
		Text:              "seeded",
	}); err != nil {
		t.Fatal(err)
	}

	token, _ := tokenSvc.GenerateAccessToken("ops", []string{"read"})
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/messages?platform=whatsapp", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var messages []*models.UnifiedMessage
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		t.Fatal(err)
	}
	if len(messages) != 1 || messages[0].Text != "seeded" {
		t.Errorf("messages = %+v", messages)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var health struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q, checks = %v", health.Status, health.Checks)
	}
}
