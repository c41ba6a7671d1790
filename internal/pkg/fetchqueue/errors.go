package fetchqueue

import "errors"

const (
	// CodeRateLimited is reported by providers that throttle the caller (HTTP 429 or an
	// equivalent JSON-RPC error code).
	CodeRateLimited = 429

	// CodeInternalError is the JSON-RPC internal error code. Hosted providers use it for
	// upstream timeouts.
	CodeInternalError = -32603
)

const (
	reasonRateLimit = "rate_limit"
	reasonTimeout   = "provider_timeout"
)

// coder is implemented by errors that expose a provider error code, such as
// go-ethereum's rpc.Error or the JSON-RPC transport error.
type coder interface {
	ErrorCode() int
}

// ErrorCode extracts the provider error code from err or any error it wraps.
func ErrorCode(err error) (int, bool) {
	var c coder
	if !errors.As(err, &c) {
		return 0, false
	}
	return c.ErrorCode(), true
}

// IsRetryable reports whether err carries a transient provider error code.
func IsRetryable(err error) bool {
	_, ok := retryReason(err)
	return ok
}

func retryReason(err error) (string, bool) {
	code, ok := ErrorCode(err)
	if !ok {
		return "", false
	}

	switch code {
	case CodeRateLimited:
		return reasonRateLimit, true
	case CodeInternalError:
		return reasonTimeout, true
	default:
		return "", false
	}
}
