package adspower

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NotebookSync/internal/ports"
)

// Client talks to the local profile control API.
type Client struct {
	endpoint   string
	launchArgs []string
	http       *http.Client
	logger     *slog.Logger
}

var _ ports.ProfileController = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint string, launchArgs []string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		launchArgs: launchArgs,
		http:       &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// APIError is a domain-level failure reported with a non-zero code.
type APIError struct {
	Path string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: code %d: %s", e.Path, e.Code, e.Msg)
}

// Start launches the browser for profile and returns its DevTools websocket endpoint.
func (c *Client) Start(ctx context.Context, profile string, headless bool) (string, error) {
	params := url.Values{}
	params.Set("serial_number", profile)
	params.Set("open_tabs", "1")
	if len(c.launchArgs) > 0 {
		args, err := json.Marshal(c.launchArgs)
		if err != nil {
			return "", fmt.Errorf("marshal launch args: %w", err)
		}
		params.Set("launch_args", string(args))
	}
	if headless {
		params.Set("headless", "1")
	}

	var data struct {
		WS struct {
			Puppeteer string `json:"puppeteer"`
		} `json:"ws"`
	}
	if err := c.get(ctx, "/api/v1/browser/start", params, &data); err != nil {
		return "", err
	}
	if data.WS.Puppeteer == "" {
		return "", fmt.Errorf("start profile %s: response has no websocket endpoint", profile)
	}
	return data.WS.Puppeteer, nil
}

// IsActive reports whether the profile's browser is running.
func (c *Client) IsActive(ctx context.Context, profile string) (bool, error) {
	params := url.Values{}
	params.Set("serial_number", profile)

	var data struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/api/v1/browser/active", params, &data); err != nil {
		return false, err
	}
	return data.Status == "Active", nil
}

// Stop closes the profile's browser.
func (c *Client) Stop(ctx context.Context, profile string) (bool, error) {
	params := url.Values{}
	params.Set("serial_number", profile)

	if err := c.get(ctx, "/api/v1/browser/stop", params, nil); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	reqURL := c.endpoint + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", path, resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	c.logger.Debug("profile api response", "path", path, "code", env.Code, "msg", env.Msg)

	if env.Code != 0 {
		return &APIError{Path: path, Code: env.Code, Msg: env.Msg}
	}

	if v == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%s: decode data: %w", path, err)
	}
	return nil
}
