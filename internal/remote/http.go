package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/solvane/lumen/internal/apperr"
	"github.com/solvane/lumen/internal/models"
)

// Client implements Provider over the backend's REST surface. State lives
// under users/{userId}/habits and users/{userId}/progress; reads and
// writes move the whole subtree, matching the persisted schema.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Token, when non-empty, is sent as a Bearer credential.
	Token string
	// Timeout bounds each request. Zero means 10 seconds.
	Timeout time.Duration
	// RateLimit caps requests per second. Zero means 10.
	RateLimit float64
}

// NewClient creates a REST client for the backend at baseURL.
func NewClient(baseURL string, opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	return &Client{
		baseURL: baseURL,
		token:   opts.Token,
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
	}
}

// ReadHabits implements Provider.
func (c *Client) ReadHabits(ctx context.Context, userID string) (models.HabitMap, error) {
	body, err := c.do(ctx, http.MethodGet, c.userPath(userID, "habits"), nil)
	if err != nil {
		return nil, err
	}
	habits := make(models.HabitMap)
	if err := decodeSubtree(body, &habits); err != nil {
		return nil, fmt.Errorf("remote: decode habits: %w", err)
	}
	return habits, nil
}

// WriteHabits implements Provider.
func (c *Client) WriteHabits(ctx context.Context, userID string, habits models.HabitMap) error {
	payload, err := json.Marshal(habits)
	if err != nil {
		return fmt.Errorf("remote: encode habits: %w", err)
	}
	_, err = c.do(ctx, http.MethodPut, c.userPath(userID, "habits"), payload)
	return err
}

// ReadProgress implements Provider.
func (c *Client) ReadProgress(ctx context.Context, userID string) (models.ProgressMap, error) {
	body, err := c.do(ctx, http.MethodGet, c.userPath(userID, "progress"), nil)
	if err != nil {
		return nil, err
	}
	progress := make(models.ProgressMap)
	if err := decodeSubtree(body, &progress); err != nil {
		return nil, fmt.Errorf("remote: decode progress: %w", err)
	}
	return progress, nil
}

// WriteProgress implements Provider. The entire progress history is
// re-serialized on every write; with a large history each write grows
// proportionally. Kept for schema compatibility with the hosted backend.
func (c *Client) WriteProgress(ctx context.Context, userID string, progress models.ProgressMap) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("remote: encode progress: %w", err)
	}
	_, err = c.do(ctx, http.MethodPut, c.userPath(userID, "progress"), payload)
	return err
}

// Ping implements Provider with a cheap unauthenticated health probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err
}

func (c *Client) userPath(userID, section string) string {
	return "/users/" + url.PathEscape(userID) + "/" + section
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", apperr.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// An unwritten subtree reads as absent, not as a failure.
		return nil, nil
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: %s %s -> %d", apperr.ErrUnavailable, method, path, resp.StatusCode)
	}
	return body, nil
}

// decodeSubtree unmarshals body into target, treating empty and JSON-null
// responses as an empty subtree.
func decodeSubtree(body []byte, target any) error {
	if len(body) == 0 || string(body) == "null" {
		return nil
	}
	return json.Unmarshal(body, target)
}
