package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"leelaaverse/internal/entity/dto"

	"github.com/goccy/go-json"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"error,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("leelaaverse api: http %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Client calls the Leelaaverse REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token currently in use.
func (c *Client) Token() string {
	return c.token
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	var resp dto.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", dto.AuthLoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

// Models lists the selectable generation models.
func (c *Client) Models(ctx context.Context) (*dto.ModelListResponse, error) {
	var resp dto.ModelListResponse
	if err := c.do(ctx, http.MethodGet, "/api/posts/models", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateImage starts a generation job.
func (c *Client) GenerateImage(ctx context.Context, req dto.GenerateImageRequest) (*dto.GenerateImageResponse, error) {
	var resp dto.GenerateImageResponse
	if err := c.do(ctx, http.MethodPost, "/api/posts/generate-image", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerationStatus fetches the current state of a job.
func (c *Client) GenerationStatus(ctx context.Context, requestID string) (*dto.GenerationStatusResponse, error) {
	var resp dto.GenerationStatusResponse
	path := "/api/posts/generation/" + url.PathEscape(requestID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateFromGeneration publishes a completed job as a post.
func (c *Client) CreateFromGeneration(ctx context.Context, req dto.CreateFromGenerationRequest) (*dto.PostItem, error) {
	var resp dto.PostResponse
	if err := c.do(ctx, http.MethodPost, "/api/posts/create-from-generation", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Post, nil
}

// Feed reads one page of the feed.
func (c *Client) Feed(ctx context.Context, category string, page, limit int) (*dto.FeedResponse, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	path := "/api/posts/feed"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp dto.FeedResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if len(raw) > 0 && json.Unmarshal(raw, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
