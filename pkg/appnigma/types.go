package appnigma

import (
	"fmt"
	"strings"
	"time"
)

// Environment tags returned on connection credentials.
const (
	EnvironmentProduction = "production"
	EnvironmentSandbox    = "sandbox"
)

// TokenTypeBearer is the only token type the API issues.
const TokenTypeBearer = "Bearer"

// ConnectionCredentials is the decrypted credential set for one connection.
// The server guarantees ExpiresAt is in the future at the moment of issuance;
// the value is not cached by the client and must not be assumed valid beyond
// the moment it is returned.
type ConnectionCredentials struct {
	AccessToken string    `json:"accessToken"`
	InstanceURL string    `json:"instanceUrl"`
	Environment string    `json:"environment"`
	Region      string    `json:"region"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ProxyRequest describes a Salesforce REST call to forward through the
// managed proxy. Path and Data are opaque to the client; validation is
// structural only.
type ProxyRequest struct {
	Method string            `json:"method"`
	Path   string            `json:"path"`
	Query  map[string]string `json:"query,omitempty"`
	Data   interface{}       `json:"data,omitempty"`
}

var allowedMethods = map[string]struct{}{
	"GET":    {},
	"POST":   {},
	"PUT":    {},
	"PATCH":  {},
	"DELETE": {},
}

// Validate checks the structural invariants of the request. It does not
// interpret the path or payload semantics. Failures wrap ErrInvalidRequest
// and are terminal: a retry loop never reissues them.
func (r ProxyRequest) Validate() error {
	if _, ok := allowedMethods[r.Method]; !ok {
		return fmt.Errorf("%w: method must be one of GET, POST, PUT, PATCH, DELETE, got %q", ErrInvalidRequest, r.Method)
	}
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("%w: path must begin with a leading slash, got %q", ErrInvalidRequest, r.Path)
	}
	return nil
}
