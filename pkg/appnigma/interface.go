package appnigma

import (
	"context"
	"encoding/json"
)

// API defines the interface for Appnigma Integrations operations
type API interface {
	// ResolveCredentials fetches decrypted access credentials for a connection.
	ResolveCredentials(ctx context.Context, connectionID string, opts ...CallOption) (*ConnectionCredentials, error)

	// Proxy forwards a Salesforce REST call through the managed proxy.
	Proxy(ctx context.Context, connectionID string, request ProxyRequest, opts ...CallOption) (json.RawMessage, error)

	// ProxyBulk issues many proxy calls concurrently, collecting per-item outcomes.
	ProxyBulk(ctx context.Context, connectionID string, requests []ProxyRequest, opts BulkOptions, callOpts ...CallOption) (*BulkResult, error)

	// Close releases the underlying connection pool. Idempotent.
	Close()
}

var _ API = (*Client)(nil)
