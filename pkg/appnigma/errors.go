package appnigma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	httpclient "github.com/appnigma/integrations-go/pkg/http"
)

// Local precondition errors, raised before any network attempt.
var (
	// ErrSessionClosed is returned when an operation is attempted after Close.
	ErrSessionClosed = errors.New("appnigma: session is closed")

	// ErrEmptyConnectionID is returned when an operation is invoked with an
	// empty connection id.
	ErrEmptyConnectionID = errors.New("appnigma: connection id is required")

	// ErrInvalidRequest is returned when a proxy request fails structural
	// validation.
	ErrInvalidRequest = errors.New("appnigma: invalid proxy request")
)

// ErrorClass partitions failures by how a retry loop must treat them.
type ErrorClass int

const (
	// ClassTerminal failures are never retried: 4xx other than 429, local
	// precondition errors, and context cancellation.
	ClassTerminal ErrorClass = iota
	// ClassTransient failures retry with standard exponential backoff:
	// 5xx and transport-level errors.
	ClassTransient
	// ClassRateLimited failures (429) retry with a lengthened delay.
	ClassRateLimited
)

func (c ErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassRateLimited:
		return "rate_limited"
	default:
		return "terminal"
	}
}

// RateLimitDetails carries the authoritative usage data from a 429 body.
type RateLimitDetails struct {
	PlanLimit    int64    `json:"planLimit"`
	CurrentUsage int64    `json:"currentUsage"`
	Offerings    []string `json:"offerings,omitempty"`
}

// Exhausted reports whether the monthly quota is fully consumed.
func (d *RateLimitDetails) Exhausted() bool {
	return d != nil && d.PlanLimit > 0 && d.CurrentUsage >= d.PlanLimit
}

// RateLimitHeaders holds the advisory X-RateLimit-* response headers.
// The 429 body is authoritative; these are informational only.
type RateLimitHeaders struct {
	Limit     int64
	Remaining int64
	Reset     int64
}

// APIError is the uniform representation of any non-2xx response. Every
// failed call surfaces exactly one APIError; the raw transport response is
// never leaked.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    *RateLimitDetails
	RateLimit  *RateLimitHeaders
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("appnigma: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Class returns the retry classification of this error.
func (e *APIError) Class() ErrorClass {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ClassRateLimited
	case e.StatusCode >= 500:
		return ClassTransient
	default:
		return ClassTerminal
	}
}

// errorEnvelope matches the API error body. Rate-limit fields may be nested
// under "details" or flattened at the top level.
type errorEnvelope struct {
	Code    string            `json:"error"`
	Message string            `json:"message"`
	Details *RateLimitDetails `json:"details"`
	RateLimitDetails
}

// classify converts a non-2xx transport response into an APIError.
func classify(resp *httpclient.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Code:       strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_")),
		Message:    http.StatusText(resp.StatusCode),
		Body:       resp.Body,
	}

	var env errorEnvelope
	if err := json.Unmarshal(resp.Body, &env); err == nil {
		if env.Code != "" {
			apiErr.Code = env.Code
		}
		if env.Message != "" {
			apiErr.Message = env.Message
		}
		switch {
		case env.Details != nil:
			apiErr.Details = env.Details
		case env.PlanLimit != 0 || env.CurrentUsage != 0 || len(env.Offerings) > 0:
			details := env.RateLimitDetails
			apiErr.Details = &details
		}
	}

	if headers := parseRateLimitHeaders(resp); headers != nil {
		apiErr.RateLimit = headers
	}

	return apiErr
}

func parseRateLimitHeaders(resp *httpclient.Response) *RateLimitHeaders {
	if resp.Headers == nil {
		return nil
	}
	limit := resp.Headers.Get("X-RateLimit-Limit")
	remaining := resp.Headers.Get("X-RateLimit-Remaining")
	reset := resp.Headers.Get("X-RateLimit-Reset")
	if limit == "" && remaining == "" && reset == "" {
		return nil
	}

	headers := &RateLimitHeaders{}
	headers.Limit, _ = strconv.ParseInt(limit, 10, 64)
	headers.Remaining, _ = strconv.ParseInt(remaining, 10, 64)
	headers.Reset, _ = strconv.ParseInt(reset, 10, 64)
	return headers
}

// Classify maps any error from this package to its retry class. Unknown
// errors are treated as transient transport failures, except context
// cancellation and local precondition errors which are terminal.
func Classify(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassTerminal
	}
	if errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrEmptyConnectionID) || errors.Is(err, ErrInvalidRequest) {
		return ClassTerminal
	}
	return ClassTransient
}
