// Package sanitizer normalizes user-entered free text before it is
// validated and persisted. Strategies compose into pipelines so each
// field type keeps its own normalization rules.
package sanitizer

import (
	"net/url"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// SanitizeURL normalizes a machine image URL: scheme defaulting, host
// lowercasing and stripping of tracking query parameters. Returns ""
// for anything that does not parse as an absolute URL.
func SanitizeURL(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	if u.Scheme == "" {
		if u, err = url.Parse("https://" + s); err != nil {
			return ""
		}
	} else if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Hostname() == "" {
		return ""
	}

	u.Host = strings.ToLower(u.Host)
	if after, ok := strings.CutPrefix(u.Host, "www."); ok {
		u.Host = after
	}
	u.Path = strings.TrimSuffix(strings.TrimSpace(u.Path), "/")

	q := u.Query()
	qClean := url.Values{}
	for k, values := range q {
		key := strings.TrimSpace(strings.ToLower(k))
		if strings.HasPrefix(key, "utm_") {
			continue
		}
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				qClean.Add(key, v)
			}
		}
	}
	u.RawQuery = qClean.Encode()

	return u.String()
}
