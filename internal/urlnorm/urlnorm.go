// Package urlnorm canonicalizes URLs so duplicate links collapse to a
// single identity before they are stored or compared.
package urlnorm

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters that carry no link identity and
// are stripped during normalization.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"fbclid":       {},
	"gclid":        {},
	"ref":          {},
}

// Normalize returns the canonical form of raw: lowercased host, https
// default scheme, "/" default path, tracking parameters and fragment
// dropped, remaining query re-encoded in sorted key order. It never
// fails; input that cannot be parsed is returned unchanged.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if u.Scheme == "" {
		u.Scheme = "https"
	}
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""

	q := u.Query()
	for name := range q {
		if _, ok := trackingParams[name]; ok {
			q.Del(name)
		}
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Domain returns the lowercased host of raw, or "" if raw cannot be
// parsed.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
