// internal/solana/errors.go
package solana

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoActiveNodes    = errors.New("no active RPC nodes available")
	ErrRateLimit        = errors.New("rate limit exceeded")
	ErrTimeout          = errors.New("request timeout")
	ErrInvalidResponse  = errors.New("invalid RPC response")
	ErrConnectionFailed = errors.New("connection failed")
)

// RPCError wraps an underlying RPC failure with the node and method that
// produced it.
type RPCError struct {
	Err     error
	NodeURL string
	Method  string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

func newRPCError(err error, nodeURL, method string) error {
	return &RPCError{Err: err, NodeURL: nodeURL, Method: method}
}

// isRetryableError reports whether an operation may succeed if retried
// against the same or a different node.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		switch {
		case errors.Is(rpcErr.Err, ErrTimeout),
			errors.Is(rpcErr.Err, ErrRateLimit),
			errors.Is(rpcErr.Err, ErrConnectionFailed):
			return true
		}
	}
	s := err.Error()
	return strings.Contains(s, "connection reset") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "no such host") ||
		strings.Contains(s, "timeout") ||
		strings.Contains(s, "429")
}

// isCriticalError reports whether a node should be marked inactive after
// this failure rather than merely retried.
func isCriticalError(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && errors.Is(rpcErr.Err, ErrInvalidResponse) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "invalid request") ||
		strings.Contains(s, "unauthorized") ||
		strings.Contains(s, "forbidden")
}
