package reliability

import (
	"strings"
	"time"
)

// IsRetryableHTTPStatus classifies handshake and token-endpoint status codes
// worth another attempt.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsFatalChatNotice reports whether a server NOTICE means reconnecting with
// the same credentials cannot succeed.
func IsFatalChatNotice(notice string) bool {
	notice = strings.ToLower(strings.TrimSpace(notice))
	switch {
	case strings.Contains(notice, "login authentication failed"),
		strings.Contains(notice, "improperly formatted auth"),
		strings.Contains(notice, "invalid nick"):
		return true
	default:
		return false
	}
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
