// Package dial talks to the DIAL gateway chat completions API and its file
// storage. Client offers two families of operations: Complete and Stream
// return typed errors, while GetCompletion and StreamCompletion never fail
// and fold any failure into the returned assistant message.
package dial

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTimeout       = 30 * time.Second
	DefaultStreamTimeout = 60 * time.Second
)

type Config struct {
	BaseURL    string
	APIKey     string
	Deployment string
	// Timeout bounds a whole non-streaming call.
	Timeout time.Duration
	// StreamTimeout bounds a whole streaming call, not the gap between chunks.
	StreamTimeout time.Duration
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client is safe for concurrent use; it only holds immutable configuration.
type Client struct {
	endpoint      string
	deployment    string
	apiKey        string
	timeout       time.Duration
	streamTimeout time.Duration
	httpClient    *http.Client
	logger        *zap.Logger
}

// StreamHandler observes each non-empty content delta as it arrives.
type StreamHandler func(delta string) error

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("dial base url is required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("dial api key is required")
	}
	deployment := strings.TrimSpace(cfg.Deployment)
	if deployment == "" {
		return nil, errors.New("dial deployment is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	streamTimeout := cfg.StreamTimeout
	if streamTimeout <= 0 {
		streamTimeout = DefaultStreamTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:      buildChatEndpoint(baseURL, deployment),
		deployment:    deployment,
		apiKey:        apiKey,
		timeout:       timeout,
		streamTimeout: streamTimeout,
		httpClient:    client,
		logger:        logger.With(zap.String("deployment", deployment)),
	}, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) Deployment() string {
	return c.deployment
}

func buildChatEndpoint(baseURL, deployment string) string {
	base := strings.TrimRight(baseURL, "/")
	return base + "/openai/deployments/" + url.PathEscape(deployment) + "/chat/completions"
}
