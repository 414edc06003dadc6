// Package fetch retrieves raw content from package servers.
package fetch

import (
	"context"
	"fmt"
)

// Fetcher performs the HTTP requests needed to query a package server
type Fetcher interface {
	// Get returns the body of a GET request to url
	Get(ctx context.Context, url string, headers map[string]string) ([]byte, error)

	// Post returns the body of a POST request sending body to url
	Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error)

	// DownloadBinary returns the raw content at url, used for icons
	DownloadBinary(ctx context.Context, url string) ([]byte, error)
}

// Error is a transport level failure
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Reason     string
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: bad status: %s", e.Method, e.URL, e.Reason)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Reason)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}
