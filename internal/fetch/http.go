package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/ralt/spksearch/internal/utils"
)

// Options configures an HTTPFetcher
type Options struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// MaxBodyBytes caps the size of a response body; 0 means no limit
	MaxBodyBytes int64
	// Transport replaces the default HTTP transport when set
	Transport http.RoundTripper
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		RetryMax:     2,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		MaxBodyBytes: 32 << 20,
	}
}

// HTTPFetcher implements Fetcher over HTTP with retries
type HTTPFetcher struct {
	client       *retryablehttp.Client
	maxBodyBytes int64
}

// NewHTTPFetcher creates a new HTTP fetcher
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		client.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		client.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.Transport != nil {
		client.HTTPClient.Transport = opts.Transport
	}
	client.Logger = newLeveledLogger(logrus.WithField("component", "fetch"))

	// Hand the last response back instead of a generic error so the status
	// reaches the caller
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPFetcher{client: client, maxBodyBytes: opts.MaxBodyBytes}
}

// Get returns the body of a GET request to url
func (f *HTTPFetcher) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return f.do(ctx, http.MethodGet, url, nil, headers)
}

// Post returns the body of a POST request sending body to url
func (f *HTTPFetcher) Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error) {
	return f.do(ctx, http.MethodPost, url, body, headers)
}

// DownloadBinary returns the raw content at url without decompressing it
func (f *HTTPFetcher) DownloadBinary(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.send(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return f.readBody(resp, http.MethodGet, url)
}

func (f *HTTPFetcher) do(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, error) {
	resp, err := f.send(ctx, method, url, body, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := f.readBody(resp, method, url)
	if err != nil {
		return nil, err
	}

	// Some servers send compressed bodies without Content-Encoding
	decoded, err := utils.Decompress(content)
	if err != nil {
		return nil, &Error{Method: method, URL: url, Reason: fmt.Sprintf("failed to decompress body: %v", err), Err: err}
	}
	return decoded, nil
}

func (f *HTTPFetcher) send(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, rawBody)
	if err != nil {
		return nil, &Error{Method: method, URL: url, Reason: err.Error(), Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logrus.WithFields(logrus.Fields{"method": method, "url": url}).Debug("Sending request")

	resp, err := f.client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		return nil, &Error{Method: method, URL: url, Reason: reason, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &Error{Method: method, URL: url, StatusCode: resp.StatusCode, Reason: resp.Status}
	}

	return resp, nil
}

func (f *HTTPFetcher) readBody(resp *http.Response, method, url string) ([]byte, error) {
	var reader io.Reader = resp.Body
	if f.maxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBodyBytes+1)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, &Error{Method: method, URL: url, Reason: fmt.Sprintf("failed to read body: %v", err), Err: err}
	}
	if f.maxBodyBytes > 0 && int64(buf.Len()) > f.maxBodyBytes {
		return nil, &Error{Method: method, URL: url, Reason: fmt.Sprintf("body exceeds %d bytes", f.maxBodyBytes)}
	}
	return buf.Bytes(), nil
}
