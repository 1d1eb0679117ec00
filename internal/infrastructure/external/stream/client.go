package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/derricker/meetai/pkg/config"
)

// Client is a REST client for the Stream video/chat provider. Server-side
// calls authenticate with a JWT minted from the API secret; inbound webhooks
// are authenticated separately via VerifyWebhook.
type Client struct {
	apiKey       string
	apiSecret    string
	videoBaseURL string
	chatBaseURL  string
	client       *http.Client
}

// NewClient creates a provider client from config
func NewClient(cfg *config.StreamConfig) *Client {
	return &Client{
		apiKey:       cfg.APIKey,
		apiSecret:    cfg.APISecret,
		videoBaseURL: cfg.VideoBaseURL,
		chatBaseURL:  cfg.ChatBaseURL,
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

// serverToken mints a short-lived server-scoped JWT for API calls
func (c *Client) serverToken() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"server": true,
		"iat":    now.Unix(),
		"exp":    now.Add(time.Hour).Unix(),
	})
	return token.SignedString([]byte(c.apiSecret))
}

// doJSON performs an authenticated JSON request and decodes the response into
// out when it is non-nil. Non-2xx responses are returned as errors carrying
// the status code so retry classification can tell 4xx from 5xx.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, body, out interface{}) error {
	token, err := c.serverToken()
	if err != nil {
		return fmt.Errorf("mint server token: %w", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), &payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	req.Header.Set("Stream-Auth-Type", "jwt")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("stream api returned status %d for %s %s", resp.StatusCode, method, u.Path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode stream response: %w", err)
		}
	}
	return nil
}
