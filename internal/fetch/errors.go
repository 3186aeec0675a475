package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	errUnsupportedScheme = errors.New("unsupported scheme")
	errMissingHost       = errors.New("missing host")
)

// Kind classifies why a fetch (or the parse that follows it) failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidURL
	KindTimeout
	KindConnection
	KindHTTPStatus
	KindTooManyRedirects
	KindParseEmpty
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "InvalidUrl"
	case KindTimeout:
		return "Timeout"
	case KindConnection:
		return "ConnectionError"
	case KindHTTPStatus:
		return "HttpStatus"
	case KindTooManyRedirects:
		return "TooManyRedirects"
	case KindParseEmpty:
		return "ParseEmpty"
	default:
		return "Unknown"
	}
}

// Error is the terminal error of a fetch. StatusCode is set only for KindHTTPStatus.
type Error struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("Status Code: %d for %s", e.StatusCode, e.URL)
	case KindTimeout:
		return fmt.Sprintf("Request timed out for %s", e.URL)
	case KindTooManyRedirects:
		return fmt.Sprintf("Too many redirects for %s: %v", e.URL, e.Err)
	case KindParseEmpty:
		if e.Err != nil {
			return fmt.Sprintf("empty or unparsable XML content: %v", e.Err)
		}
		return "empty XML content"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.URL)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// classify turns a transport error into a typed *Error.
func classify(rawURL string, err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	return &Error{Kind: KindConnection, URL: rawURL, Err: err}
}
