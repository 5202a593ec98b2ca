// Package transport moves archives and metadata records to and from a cache
// server, over the two hash addressed HTTP resources of the server.
//
// Any non-2xx answer is a failure. Error bodies are drained and discarded, never parsed.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/errors"
	"github.com/oneconcern/cachetransporter/pkg/model"
	"go.uber.org/zap"
)

// ContentType of every body exchanged with the server
const ContentType = "application/octet-stream"

const drainLimit = 64 * 1024

// ErrInvalidURL indicates that the server base URL cannot be used
var ErrInvalidURL = errors.New("invalid server url")

// StatusError is returned whenever the server answers with a non-2xx status
type StatusError struct {
	Op         string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Op, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound tells if an error is a not found answer from the server
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client of a cache server
type Client struct {
	base        *url.URL
	hc          *http.Client
	l           *zap.Logger
	timeout     time.Duration
	dialTimeout time.Duration
}

// NewClient builds a client for the server at baseURL, e.g. http://cache:33813
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrInvalidURL.Detail("a server url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, ErrInvalidURL.Wrap(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, ErrInvalidURL.Detail("%q", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		base: u,
		l:    zap.NewNop(),
	}
	for _, apply := range opts {
		apply(c)
	}
	if c.hc == nil {
		c.hc = c.defaultHTTPClient()
	}
	return c, nil
}

func (c *Client) defaultHTTPClient() *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if c.dialTimeout > 0 {
		tr.DialContext = (&net.Dialer{
			Timeout:   c.dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
	}
	return &http.Client{
		Transport: tr,
		Timeout:   c.timeout,
	}
}

// String representation of the server
func (c *Client) String() string {
	return c.base.String()
}

// URL of an object on the server
func (c *Client) URL(bucket model.Bucket, key cafs.Key) string {
	u := *c.base
	u.Path = u.Path + "/" + bucket.String() + "/" + key.String()
	return u.String()
}

// Put uploads a body under bucket/key. When size is positive or zero, it is sent as the content length.
//
// The body is never closed: the caller keeps ownership of it.
func (c *Client) Put(ctx context.Context, bucket model.Bucket, key cafs.Key, body io.Reader, size int64) error {
	target := c.URL(bucket, key)
	var rc io.ReadCloser = http.NoBody
	if body != nil {
		rc = io.NopCloser(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, rc)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", ContentType)
	if size >= 0 {
		req.ContentLength = size
	}

	start := time.Now()
	c.l.Debug("uploading", zap.String("url", target), zap.Int64("size", size))
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp.Body)

	if !success(resp.StatusCode) {
		return &StatusError{Op: http.MethodPut, URL: target, StatusCode: resp.StatusCode}
	}
	c.l.Debug("uploaded", zap.String("url", target), zap.Duration("duration", time.Since(start)))
	return nil
}

// Get downloads the object at bucket/key. The caller must close the returned body.
func (c *Client) Get(ctx context.Context, bucket model.Bucket, key cafs.Key) (io.ReadCloser, error) {
	target := c.URL(bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", ContentType)

	c.l.Debug("downloading", zap.String("url", target))
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if !success(resp.StatusCode) {
		drain(resp.Body)
		return nil, &StatusError{Op: http.MethodGet, URL: target, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

func success(code int) bool {
	return code >= 200 && code < 300
}

// drain lets the connection be reused
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, drainLimit))
	_ = body.Close()
}
