package appnigma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	httpclient "github.com/appnigma/integrations-go/pkg/http"
)

// ResolveCredentials fetches the decrypted access credentials for one
// connection. It issues exactly one request and never retries; freshness is
// the server's responsibility and no local cache is kept. The returned
// ExpiresAt is in the future at the moment of issuance only.
//
// Remote failures are surfaced as *APIError: 400 when the connection is not
// in a connected state or the id is malformed, 401 when the key is invalid
// or revoked, 403 on key/tenant/connection ownership mismatch, 404 when the
// connection, tenant, or owning account is not found, 500 on remote
// token-refresh failure.
func (c *Client) ResolveCredentials(ctx context.Context, connectionID string, opts ...CallOption) (*ConnectionCredentials, error) {
	if err := c.preflight(connectionID); err != nil {
		return nil, err
	}

	co := applyCallOptions(opts)
	query := map[string]string{}
	if co.integrationID != "" {
		query["integrationId"] = co.integrationID
	}

	url, err := httpclient.BuildURL(c.config.BaseURL, fmt.Sprintf("/v1/connections/%s/credentials", connectionID), query)
	if err != nil {
		return nil, fmt.Errorf("failed to build credentials URL: %w", err)
	}

	headers := c.headers()
	c.debugRequest(http.MethodGet, url, headers[headerRequestID])

	resp, err := c.httpClient.Get(ctx, url, headers)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := classify(resp)
		c.logger.Warn("Credential resolution failed",
			zap.String("connection_id", connectionID),
			zap.Int("status_code", apiErr.StatusCode),
			zap.String("code", apiErr.Code))
		return nil, apiErr
	}

	var creds ConnectionCredentials
	if err := json.Unmarshal(resp.Body, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials response: %w", err)
	}

	c.logger.Debug("Resolved connection credentials",
		zap.String("connection_id", connectionID),
		zap.String("environment", creds.Environment),
		zap.Time("expires_at", creds.ExpiresAt))

	return &creds, nil
}
