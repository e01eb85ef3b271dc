// Package urlutil implements URL canonicalization and article-URL
// classification (spec §4.1, C1 URL Utility).
package urlutil

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are stripped during canonicalization regardless of casing.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"fbclid":       true,
	"gclid":        true,
	"_ga":          true,
	"ref":          true,
	"source":       true,
}

// Canonicalize normalizes a URL per spec §4.1: lowercases scheme and host,
// strips a leading "www.", removes tracking query parameters, sorts the
// remaining parameters by key then value, drops the fragment, and strips a
// trailing "/" from non-root paths.
//
// Canonicalize(Canonicalize(u)) == Canonicalize(u) and is independent of
// query-parameter order (spec §8 testable properties).
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	u.Host = host

	query := u.Query()
	for key := range query {
		if trackingParams[strings.ToLower(key)] {
			query.Del(key)
		}
	}
	u.RawQuery = sortedQueryString(query)

	u.Fragment = ""

	path := strings.TrimSuffix(u.Path, "/")
	if path == "" {
		path = "/"
	}
	u.Path = path

	return u.String(), nil
}

// sortedQueryString rebuilds a query string with keys sorted lexically and,
// within a key, values sorted lexically too — producing a deterministic,
// order-independent representation.
func sortedQueryString(q url.Values) string {
	if len(q) == 0 {
		return ""
	}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	first := true
	for _, k := range keys {
		values := append([]string(nil), q[k]...)
		sort.Strings(values)
		for _, v := range values {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
