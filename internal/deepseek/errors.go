package deepseek

import (
	"errors"
	"fmt"
)

// ErrNoAPIKey is returned when Generate is called without a configured
// credential. No network call is made.
var ErrNoAPIKey = errors.New("deepseek API key is not configured")

// AuthError is returned on HTTP 401: the configured key was rejected.
// Never retried.
type AuthError struct{}

func (*AuthError) Error() string {
	return "invalid API key: the completion API rejected the configured credential"
}

// RateLimitError is returned on HTTP 429. This layer never retries it;
// the caller decides when to back off and re-invoke.
type RateLimitError struct{}

func (*RateLimitError) Error() string {
	return "the completion API is rate limiting requests, try again later"
}

// APIError is returned for any other non-success HTTP status.
type APIError struct {
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion API request failed with status %d", e.Status)
}

// TransientError is a network failure or timeout. Eligible for automatic
// retry; surfaced only after the retry budget is spent.
type TransientError struct {
	Timeout  bool
	Attempts int
}

func (e *TransientError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request timed out after %d attempts, check your network connection", e.Attempts)
	}
	return fmt.Sprintf("could not reach the completion API after %d attempts, check your network settings", e.Attempts)
}

// EnvelopeError means the HTTP call succeeded but the response body lacked
// the expected choices/message/content structure. Never retried.
type EnvelopeError struct{}

func (*EnvelopeError) Error() string {
	return "unexpected response shape from the completion API"
}

// OutputError means the model's message content was not valid JSON or did
// not match the expected stage schema. Treated as a content-quality
// problem, not a transport problem, so never retried here.
type OutputError struct{}

func (*OutputError) Error() string {
	return "the model returned output that could not be read as story stages"
}
