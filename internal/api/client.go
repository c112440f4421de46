package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"edujourney/internal/telemetry"
)

const DefaultBaseURL = "http://localhost:3001"

type Options struct {
	BaseURL string
	Timeout time.Duration
	// RatePerSecond caps outgoing requests; zero disables the limiter.
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
	Logger        *telemetry.Logger
}

// Client talks to the learning platform REST backend. Every response is the
// {success, data, message, error, errors} envelope.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *telemetry.Logger

	mu    sync.RWMutex
	token string
}

func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return &Client{baseURL: base, http: hc, limiter: limiter, logger: opts.Logger}
}

func (c *Client) BaseURL() string { return c.baseURL }

// SetToken sets the bearer token sent with every request. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// envelope is the decoded response. Data stays raw so callers can fold
// shape variants themselves.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, out any) (envelope, error) {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// do sends one request. A nil body sends no payload. When out is non-nil the
// envelope's data is decoded into it.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) (envelope, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return envelope{}, fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return envelope{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) (envelope, error) {
	method, path := req.Method, req.URL.Path
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return envelope{}, fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("api.request_failed", map[string]any{"method": method, "path": path, "error": err})
		return envelope{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope{}, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	c.logger.Debug("api.response", map[string]any{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	})

	fields, ok := parseBody(resp, raw)
	ok2xx := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		text := strings.TrimSpace(string(raw))
		if text == "" {
			text = fmt.Sprintf("Server error (%d)", resp.StatusCode)
		}
		errField, _ := json.Marshal(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
		msgField, _ := json.Marshal(text)
		fields = map[string]json.RawMessage{"message": msgField, "error": errField}
		if ok2xx {
			return envelope{}, &Error{Status: resp.StatusCode, Message: text, Data: fields}
		}
	}
	if !ok2xx {
		apiErr := newStatusError(resp.StatusCode, fields)
		c.logger.Warn("api.error_status", map[string]any{"method": method, "path": path, "status": resp.StatusCode, "message": apiErr.Message})
		return envelope{}, apiErr
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// A bare JSON array or scalar is treated as the data itself.
		env = envelope{Data: raw}
	}
	if env.Success != nil && !*env.Success {
		return envelope{}, newRejectedError(resp.StatusCode, fields)
	}
	if env.Success == nil && len(env.Data) == 0 {
		env.Data = raw
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env, fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return env, nil
}

// parseBody decodes a JSON object body. It reports false when the response
// is not JSON at all.
func parseBody(resp *http.Response, raw []byte) (map[string]json.RawMessage, bool) {
	if !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return nil, false
	}
	fields := map[string]json.RawMessage{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, false
		}
	} else if !json.Valid(trimmed) {
		return nil, false
	}
	return fields, true
}

// UploadAvatar posts an image as multipart form field "avatar".
func (c *Client) UploadAvatar(ctx context.Context, filename string, image io.Reader) (Profile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("avatar", filename)
	if err != nil {
		return Profile{}, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return Profile{}, err
	}
	if err := mw.Close(); err != nil {
		return Profile{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/profile/avatar/upload", &buf)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out Profile
	_, err = c.send(req, &out)
	return out, err
}
