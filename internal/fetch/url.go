package fetch

import (
	"net/url"
	"strings"
)

// ResolveURL makes rawURL absolute. A URL without a scheme is appended to
// base with exactly one separating slash; the query and fragment are kept.
// Only http and https results are accepted.
func ResolveURL(base, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", &Error{Kind: KindInvalidURL, URL: rawURL, Err: err}
	}

	if parsed.Scheme == "" {
		joined := strings.TrimRight(base, "/")
		if !strings.HasPrefix(rawURL, "/") {
			joined += "/"
		}
		joined += rawURL

		parsed, err = url.Parse(joined)
		if err != nil {
			return "", &Error{Kind: KindInvalidURL, URL: joined, Err: err}
		}
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return "", &Error{Kind: KindInvalidURL, URL: parsed.String(), Err: errUnsupportedScheme}
	}
	if parsed.Host == "" {
		return "", &Error{Kind: KindInvalidURL, URL: parsed.String(), Err: errMissingHost}
	}

	return parsed.String(), nil
}
