package redeem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gabegon8910/server-donation-tool/internal/config"
)

// CFToolsClient talks to the CFTools Data API priority queue endpoints.
// Implements PriorityQueueClient.
type CFToolsClient struct {
	httpClient    *http.Client
	baseApiURL    string
	applicationID string
	secret        string

	mu    sync.Mutex
	token string
}

func NewCFToolsClient(cfg *config.CFTools) *CFToolsClient {
	return &CFToolsClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:    cfg.BaseApiURL,
		applicationID: cfg.ApplicationID,
		secret:        cfg.Secret,
	}
}

func (c *CFToolsClient) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"application_id": c.applicationID,
		"secret":         c.secret,
	})
	if err != nil {
		return "", fmt.Errorf("marshal auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/auth/register", bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("cftools auth error %d: %s", resp.StatusCode, string(b))
	}

	var res struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}

	c.token = res.Token
	return c.token, nil
}

func (c *CFToolsClient) call(ctx context.Context, method, path string, payload, out any) error {
	token, err := c.getToken(ctx)
	if err != nil {
		return fmt.Errorf("get cftools token: %w", err)
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("cftools error %d: %s", resp.StatusCode, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("decode cftools response: %w", err)
		}
	}
	return nil
}

// lookupCFToolsID resolves a steam64 id to the CFTools account id the queue
// priority endpoints key on.
func (c *CFToolsClient) lookupCFToolsID(ctx context.Context, steamID string) (string, error) {
	var res struct {
		CFToolsID string `json:"cftools_id"`
	}
	path := "/v1/users/lookup?identifier=" + url.QueryEscape(steamID)
	if err := c.call(ctx, http.MethodGet, path, nil, &res); err != nil {
		return "", err
	}
	if res.CFToolsID == "" {
		return "", fmt.Errorf("no cftools account for steam id %s", steamID)
	}
	return res.CFToolsID, nil
}

func (c *CFToolsClient) PriorityExpiry(ctx context.Context, serverID, steamID string) (*time.Time, error) {
	cftoolsID, err := c.lookupCFToolsID(ctx, steamID)
	if err != nil {
		return nil, err
	}

	var res struct {
		Entries []struct {
			ExpiresAt *time.Time `json:"expires_at"`
		} `json:"entries"`
	}
	path := fmt.Sprintf("/v1/server/%s/queuepriority?cftools_id=%s", serverID, cftoolsID)
	if err := c.call(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	if len(res.Entries) == 0 {
		return nil, nil
	}
	return res.Entries[0].ExpiresAt, nil
}

func (c *CFToolsClient) GrantPriority(ctx context.Context, serverID, steamID string, expiresAt time.Time, comment string) error {
	cftoolsID, err := c.lookupCFToolsID(ctx, steamID)
	if err != nil {
		return err
	}

	payload := map[string]string{
		"cftools_id": cftoolsID,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
		"comment":    comment,
	}
	path := fmt.Sprintf("/v1/server/%s/queuepriority", serverID)
	return c.call(ctx, http.MethodPost, path, payload, nil)
}
