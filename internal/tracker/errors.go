package tracker

import (
	"fmt"
	"strings"
)

// ErrorKind classifies tracker CLI failures into the small set callers can act on.
type ErrorKind int

const (
	// NotFound means the issue or resource does not exist.
	NotFound ErrorKind = iota
	// AuthFailure means the tracker rejected our credentials.
	AuthFailure
	// RateLimited means the tracker throttled the request.
	RateLimited
	// TransientNetwork covers timeouts and connection-level failures.
	TransientNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case AuthFailure:
		return "auth_failure"
	case RateLimited:
		return "rate_limited"
	case TransientNetwork:
		return "transient_network"
	default:
		return "unknown"
	}
}

// Error is a classified tracker failure. The client performs no retries;
// retry policy, if any, belongs to the caller.
type Error struct {
	Kind   ErrorKind
	Op     string
	Output string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tracker %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classifyError maps raw gh CLI output to an ErrorKind. The patterns follow
// gh's observed error strings; anything unrecognized is treated as transient.
func classifyError(op string, output string, err error) *Error {
	lower := strings.ToLower(output)
	kind := TransientNetwork
	switch {
	case strings.Contains(lower, "could not resolve") ||
		strings.Contains(lower, "not found") ||
		strings.Contains(lower, "no issues match"):
		kind = NotFound
	case strings.Contains(lower, "gh auth login") ||
		strings.Contains(lower, "authentication") ||
		strings.Contains(lower, "bad credentials") ||
		strings.Contains(lower, "http 401"):
		kind = AuthFailure
	case strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "abuse detection") ||
		strings.Contains(lower, "http 403"):
		kind = RateLimited
	}
	return &Error{Kind: kind, Op: op, Output: output, Err: err}
}
