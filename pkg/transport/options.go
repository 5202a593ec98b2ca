package transport

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option defines some options to the client
type Option func(*Client)

// WithHTTPClient uses a preconfigured http client. Timeouts set with other options are then ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

// WithTimeout bounds every request, body transfer included. 0 disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithDialTimeout bounds the time spent establishing a connection
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.dialTimeout = d
	}
}

// WithLogger sets a logger for the client
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.l = l
		}
	}
}
