package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"omnihook/internal/platform/config"
)

// Client is a minimal Meta Graph API client covering the outbound calls the
// webhook handlers trigger: opt-out confirmation sends, lead pulls and
// profile lookups. It is deliberately not a full SDK.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

func NewClient(cfg config.GraphConfig, accessToken string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL + "/" + cfg.APIVersion,
		accessToken: accessToken,
	}
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText sends a plain text message via the Messenger/Instagram Send API
// (POST /me/messages). Both platforms share the endpoint; the access token
// decides which account sends.
func (c *Client) SendText(ctx context.Context, recipientID, text string) error {
	payload := map[string]interface{}{
		"recipient":    map[string]string{"id": recipientID},
		"message":      map[string]string{"text": text},
		"access_token": c.accessToken,
	}
	return c.post(ctx, c.baseURL+"/me/messages", payload)
}

// SendWhatsAppText sends a WhatsApp Cloud API text message through the
// configured business phone number.
func (c *Client) SendWhatsAppText(ctx context.Context, phoneNumberID, to, text string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+phoneNumberID+"/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	return c.do(req)
}

// FetchLead pulls the full lead payload for a leadgen webhook notification.
func (c *Client) FetchLead(ctx context.Context, leadgenID string) (map[string]interface{}, error) {
	return c.get(ctx, c.baseURL+"/"+leadgenID, nil)
}

// GetUserProfile resolves a platform-scoped user ID to profile fields.
func (c *Client) GetUserProfile(ctx context.Context, userID string) (map[string]interface{}, error) {
	return c.get(ctx, c.baseURL+"/"+userID, url.Values{
		"fields": {"id,name,first_name,last_name,username,profile_pic"},
	})
}

func (c *Client) post(ctx context.Context, endpoint string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (map[string]interface{}, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("access_token", c.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result, nil
}

func decodeError(resp *http.Response) error {
	var apiErr apiError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("graph API error (HTTP %d): %s", resp.StatusCode, apiErr.Error.Message)
	}
	return fmt.Errorf("graph API error: HTTP %d", resp.StatusCode)
}
