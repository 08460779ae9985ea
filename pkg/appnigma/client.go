// Package appnigma provides a Go client for the Appnigma Integrations API.
//
// The Appnigma Integrations API manages Salesforce connections on behalf of
// a tenant ("integration"): OAuth token storage, refresh, and per-tenant
// rate limiting all live server-side. A caller authenticates once with a
// static API key and can then:
//
//   - resolve decrypted per-connection credentials on demand
//     (ResolveCredentials), or
//   - forward arbitrary Salesforce REST calls through the managed proxy
//     (Proxy), which checks and refreshes tokens transparently.
//
// The client is deliberately thin: it issues exactly one request per call,
// keeps no local token state, and converts every non-2xx response into a
// typed *APIError. Retry and backoff are composed on top (Retry, ProxyBulk)
// so different call sites can choose different policies.
package appnigma

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/appnigma/integrations-go/pkg/config"
	httpclient "github.com/appnigma/integrations-go/pkg/http"
)

const (
	headerAPIKey    = "X-API-Key"
	headerRequestID = "X-Request-ID"
)

// Client is a session against the Appnigma Integrations API. It owns one
// reusable connection pool for its lifetime and is safe for concurrent use.
type Client struct {
	config     *config.Config
	httpClient *httpclient.Client
	logger     *zap.Logger
	closeOnce  sync.Once
	closed     atomic.Bool
}

// New creates a client from an explicit configuration. It fails before any
// network attempt when no API key is available.
func New(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Client{
		config:     cfg,
		httpClient: httpclient.NewClientWithLogger(logger),
		logger:     logger,
	}, nil
}

// NewFromEnv creates a client from APPNIGMA_* environment variables
// (optionally via a .env file).
func NewFromEnv(logger *zap.Logger) (*Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return New(cfg, logger)
}

// With runs fn against a freshly opened client and guarantees Close on
// every exit path.
func With(cfg *config.Config, logger *zap.Logger, fn func(*Client) error) error {
	client, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

// Close releases the underlying connection pool. It is idempotent: calling
// it more than once is a no-op. In-flight calls are allowed to complete;
// calls issued after Close fail with ErrSessionClosed.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.httpClient.CloseIdleConnections()
		c.logger.Debug("Session closed")
	})
}

// preflight checks the local preconditions shared by every operation.
func (c *Client) preflight(connectionID string) error {
	if c.closed.Load() {
		return ErrSessionClosed
	}
	if connectionID == "" {
		return ErrEmptyConnectionID
	}
	return nil
}

// headers builds the per-request headers: the API key and a fresh
// correlation id.
func (c *Client) headers() map[string]string {
	return map[string]string{
		headerAPIKey:    c.config.APIKey,
		headerRequestID: uuid.NewString(),
	}
}

// debugRequest logs an outgoing request when the debug flag is set. The API
// key never appears in log output.
func (c *Client) debugRequest(method, url, requestID string) {
	if !c.config.Debug {
		return
	}
	c.logger.Debug("Appnigma API request",
		zap.String("method", method),
		zap.String("url", url),
		zap.String("request_id", requestID),
		zap.String("api_key", redactKey(c.config.APIKey)))
}

func redactKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****"
}

type callOptions struct {
	integrationID string
}

// CallOption customizes a single credential or proxy call.
type CallOption func(*callOptions)

// WithIntegrationID supplies an explicit tenant id. When omitted, the
// server derives the tenant from the API key; a mismatched id against a
// tenant-scoped key is rejected remotely.
func WithIntegrationID(id string) CallOption {
	return func(o *callOptions) {
		o.integrationID = id
	}
}

func applyCallOptions(opts []CallOption) callOptions {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}
	return co
}
