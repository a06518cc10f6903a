package ticket

import (
	"net/url"
	"strings"
)

// Registry lists the client applications allowed to request tickets and the
// redirect URI prefixes each may use. An empty registry allows every client.
//
// Prefixes are compared on parsed URLs: the scheme and host (port included)
// must match exactly and the redirect path must sit under the prefix path on
// a segment boundary. A prefix without a path admits any path on its host.
type Registry map[string][]string

// Allowed reports whether clientID may receive a ticket redirected to redirectURI.
func (r Registry) Allowed(clientID, redirectURI string) bool {
	if len(r) == 0 {
		return true
	}
	prefixes, ok := r[clientID]
	if !ok {
		return false
	}

	u, ok := parseRedirect(redirectURI)
	if !ok {
		return false
	}

	for _, p := range prefixes {
		pu, ok := parseRedirect(p)
		if !ok {
			continue
		}
		if redirectMatches(u, pu) {
			return true
		}
	}
	return false
}

// parseRedirect accepts absolute URLs without userinfo or dot segments.
func parseRedirect(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" || u.Opaque != "" || u.User != nil {
		return nil, false
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg == "." || seg == ".." {
			return nil, false
		}
	}
	return u, true
}

func redirectMatches(u, prefix *url.URL) bool {
	if !strings.EqualFold(u.Scheme, prefix.Scheme) || !strings.EqualFold(u.Host, prefix.Host) {
		return false
	}
	switch {
	case prefix.Path == "" || prefix.Path == "/":
		return true
	case strings.HasSuffix(prefix.Path, "/"):
		return strings.HasPrefix(u.Path, prefix.Path)
	default:
		return u.Path == prefix.Path || strings.HasPrefix(u.Path, prefix.Path+"/")
	}
}
