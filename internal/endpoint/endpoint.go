// Package endpoint validates addresses of secure STOMP-over-WebSocket servers.
package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the only accepted URL scheme.
const Scheme = "wss"

var (
	ErrInvalidURL    = errors.New("endpoint: invalid URL")
	ErrInvalidScheme = errors.New("endpoint: URL must use the wss scheme")
	ErrHasFragment   = errors.New("endpoint: URL cannot contain a fragment")
)

// Endpoint is a validated wss:// URL.
type Endpoint struct {
	u *url.URL
}

// Parse validates raw as an absolute wss URL with a host and no fragment.
// An empty path is normalized to "/".
func Parse(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		return Endpoint{}, fmt.Errorf("%w: missing scheme in %q", ErrInvalidURL, raw)
	}
	if u.Scheme != Scheme {
		return Endpoint{}, ErrInvalidScheme
	}
	// Any '#' in a parsed URL starts the fragment, even an empty one.
	if strings.Contains(raw, "#") {
		return Endpoint{}, ErrHasFragment
	}
	if u.Opaque != "" || u.Host == "" {
		return Endpoint{}, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return Endpoint{u: u}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) Endpoint {
	ep, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return ep
}

// URL returns a copy of the underlying URL.
func (e Endpoint) URL() *url.URL {
	if e.u == nil {
		return &url.URL{}
	}
	u := *e.u
	return &u
}

// Host returns the host and optional port.
func (e Endpoint) Host() string {
	if e.u == nil {
		return ""
	}
	return e.u.Host
}

func (e Endpoint) String() string {
	if e.u == nil {
		return ""
	}
	return e.u.String()
}
