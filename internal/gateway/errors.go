package gateway

import (
	"errors"
	"strings"
)

// ErrNotSupported is returned by a provider's Embed (or any operation) it
// does not implement, letting the gateway fall through to another backend.
var ErrNotSupported = errors.New("gateway: operation not supported by this provider")

// ErrModelOOM indicates the backend ran out of memory loading or running
// a model — distinct from a generic failure so the router can fall back
// to a smaller tier rather than simply retrying the same model.
var ErrModelOOM = errors.New("gateway: model out of memory")

// ErrModelTimeout indicates the backend did not respond within the
// configured timeout.
var ErrModelTimeout = errors.New("gateway: model call timed out")

var oomNeedles = []string{"out of memory", "oom", "cuda out of memory", "killed"}

// IsOOM reports whether err (or anything it wraps) is an out-of-memory
// failure, classified from the provider's raw error text the way the
// original prototype greps for "out of memory"/"cuda" substrings.
func IsOOM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrModelOOM) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range oomNeedles {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
