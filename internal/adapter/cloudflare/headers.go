package cloudflare

import (
	"net/http"
	"strings"
)

const (
	HeaderEmail     = "Cf-Access-Authenticated-User-Email"
	HeaderAssertion = "Cf-Access-Jwt-Assertion"
	HeaderUser      = "X-Forwarded-User"
	HeaderGroups    = "X-Forwarded-Groups"
	HeaderName      = "X-Forwarded-Name"
)

// Identity is what the edge told us about the caller.
type Identity struct {
	Email     string   `json:"email"`
	Name      string   `json:"name,omitempty"`
	Groups    []string `json:"groups,omitempty"`
	Assertion string   `json:"-"`
}

// FromHeaders extracts the Access identity. ok is false when the request
// carries no usable email.
func FromHeaders(h http.Header) (Identity, bool) {
	email := strings.TrimSpace(h.Get(HeaderEmail))
	if email == "" {
		if u := strings.TrimSpace(h.Get(HeaderUser)); strings.Contains(u, "@") {
			email = u
		}
	}
	if email == "" {
		return Identity{}, false
	}

	return Identity{
		Email:     email,
		Name:      strings.TrimSpace(h.Get(HeaderName)),
		Groups:    splitGroups(h.Get(HeaderGroups)),
		Assertion: strings.TrimSpace(h.Get(HeaderAssertion)),
	}, true
}

func splitGroups(raw string) []string {
	var groups []string
	for g := range strings.SplitSeq(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}
