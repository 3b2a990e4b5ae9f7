package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// APIError is any non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Options struct {
	BaseURL string
	Timeout time.Duration

	// Token supplies the current bearer token; empty means no header.
	Token func() string

	// OnUnauthorized fires once per 401 response, before the error is
	// returned. Session teardown hangs off this.
	OnUnauthorized func()

	Logger *slog.Logger
}

// Client is the authenticated JSON client every API-facing component
// shares. It owns the one cross-cutting protocol rule: a 401 from any
// endpoint tears down the session.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	token          func() string
	onUnauthorized func()
	log            *slog.Logger
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     &http.Client{Timeout: timeout},
		token:          opts.Token,
		onUnauthorized: opts.OnUnauthorized,
		log:            log,
	}
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if t := c.token(); t != "" {
			req.Header.Set("Authorization", "Bearer "+t)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.log.Warn("unauthorized response, clearing session",
				slog.String("method", method), slog.String("path", path))
			c.onUnauthorized()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4<<10))
	if err != nil {
		return "unreadable error body"
	}

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}

	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return "request failed"
	}
	return msg
}
