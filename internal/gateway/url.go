package gateway

import (
	"net/url"
	"strings"
)

// Expand joins base and path, substituting each {name} in path with the
// path-escaped value from vars.
func Expand(base, path string, vars map[string]string) string {
	for name, value := range vars {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// WithQuery appends params to rawURL's query string. Empty values are skipped.
func WithQuery(rawURL string, params map[string]string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	for key, value := range params {
		if value != "" {
			q.Set(key, value)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
