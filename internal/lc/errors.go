package lc

import (
	"fmt"
	"net/http"
	"strings"
)

// TransportError is returned when an endpoint answers with a non-2xx status.
type TransportError struct {
	Op         string // GraphQL operation name or "catalog"
	StatusCode int
	Status     string
	Body       string // first bytes of the response body
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	if e.Body != "" {
		msg += " - " + e.Body
	}
	return msg
}

// RemoteError is returned when the service answered but reported a logical
// failure, either through the GraphQL errors list or an ok:false payload.
type RemoteError struct {
	Op       string
	Messages []string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, strings.Join(e.Messages, "; "))
}

// IsRateLimited reports whether any error in err's tree is an HTTP 429 from
// the service. Joined errors are searched in full, so a 429 behind another
// failure still counts.
func IsRateLimited(err error) bool {
	switch u := err.(type) {
	case *TransportError:
		return u.StatusCode == http.StatusTooManyRequests
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if IsRateLimited(e) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsRateLimited(u.Unwrap())
	}
	return false
}
