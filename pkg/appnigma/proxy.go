package appnigma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	httpclient "github.com/appnigma/integrations-go/pkg/http"
)

// Proxy forwards one Salesforce REST call through the managed proxy and
// returns the upstream payload exactly as received (object, array, or
// scalar). Token validity checking and refresh happen server-side; the
// client keeps no token state and never retries.
//
// Failure classification matches ResolveCredentials, plus 429 when the
// monthly usage quota is exceeded. A 429 *APIError carries the plan limit,
// current usage, and subscribed offerings in Details when the body provides
// them.
func (c *Client) Proxy(ctx context.Context, connectionID string, request ProxyRequest, opts ...CallOption) (json.RawMessage, error) {
	if err := c.preflight(connectionID); err != nil {
		return nil, err
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}

	co := applyCallOptions(opts)
	query := map[string]string{}
	if co.integrationID != "" {
		query["integrationId"] = co.integrationID
	}

	url, err := httpclient.BuildURL(c.config.BaseURL, fmt.Sprintf("/v1/connections/%s/salesforce/proxy", connectionID), query)
	if err != nil {
		return nil, fmt.Errorf("failed to build proxy URL: %w", err)
	}

	headers := c.headers()
	c.debugRequest(http.MethodPost, url, headers[headerRequestID])

	resp, err := c.httpClient.Post(ctx, url, headers, request)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := classify(resp)
		c.logger.Warn("Proxy call failed",
			zap.String("connection_id", connectionID),
			zap.String("upstream_method", request.Method),
			zap.String("upstream_path", request.Path),
			zap.Int("status_code", apiErr.StatusCode),
			zap.String("code", apiErr.Code))
		return nil, apiErr
	}

	c.logger.Debug("Proxy call completed",
		zap.String("connection_id", connectionID),
		zap.String("upstream_method", request.Method),
		zap.String("upstream_path", request.Path),
		zap.Int("status_code", resp.StatusCode))

	return json.RawMessage(resp.Body), nil
}
