package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"omnihook/internal/platform/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.GraphConfig{
		BaseURL:    srv.URL,
		APIVersion: "v21.0",
		Timeout:    time.Second,
	}, "test-token")
}

func TestSendText(t *testing.T) {
	var got map[string]interface{}
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v21.0/me/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"recipient_id":"user-1","message_id":"mid-out"}`))
	})

	if err := client.SendText(context.Background(), "user-1", "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if got["access_token"] != "test-token" {
		t.Errorf("access_token = %v", got["access_token"])
	}
	recipient := got["recipient"].(map[string]interface{})
	if recipient["id"] != "user-1" {
		t.Errorf("recipient = %v", recipient)
	}
}

func TestSendWhatsAppText(t *testing.T) {
	var got map[string]interface{}
	var auth string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v21.0/phone-1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"messages":[{"id":"wamid.out"}]}`))
	})

	if err := client.SendWhatsAppText(context.Background(), "phone-1", "15557772222", "hola"); err != nil {
		t.Fatalf("SendWhatsAppText: %v", err)
	}
	if auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", auth)
	}
	if got["messaging_product"] != "whatsapp" || got["to"] != "15557772222" {
		t.Errorf("payload = %v", got)
	}
}

func TestFetchLead(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v21.0/lead-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("access_token") != "test-token" {
			t.Errorf("access_token = %q", r.URL.Query().Get("access_token"))
		}
		w.Write([]byte(`{"id":"lead-1","field_data":[{"name":"email","values":["a@b.c"]}]}`))
	})

	lead, err := client.FetchLead(context.Background(), "lead-1")
	if err != nil {
		t.Fatalf("FetchLead: %v", err)
	}
	if lead["id"] != "lead-1" {
		t.Errorf("lead = %v", lead)
	}
}

func TestGraphErrorDecoded(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	})

	err := client.SendText(context.Background(), "user-1", "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	want := "graph API error (HTTP 400): Invalid OAuth access token"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}
