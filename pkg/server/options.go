package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	defaultAddr              = "0.0.0.0:33813"
	defaultReadHeaderTimeout = 30 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
)

type settings struct {
	l                 *zap.Logger
	addr              string
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
	maxBodySize       int64
	registry          *prometheus.Registry
}

func defaultSettings() settings {
	return settings{
		l:                 zap.NewNop(),
		addr:              defaultAddr,
		readHeaderTimeout: defaultReadHeaderTimeout,
		shutdownTimeout:   defaultShutdownTimeout,
	}
}

// Option defines some options to the server
type Option func(*settings)

// WithLogger sets the logger for requests and lifecycle events
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.l = l
		}
	}
}

// WithAddr sets the host:port to listen on
func WithAddr(addr string) Option {
	return func(s *settings) {
		s.addr = addr
	}
}

// WithReadHeaderTimeout bounds the time to read request headers
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.readHeaderTimeout = d
	}
}

// WithShutdownTimeout bounds the time given to in-flight requests on shutdown
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.shutdownTimeout = d
	}
}

// WithMaxBodySize limits the size of PUT bodies. 0 disables the limit.
func WithMaxBodySize(n int64) Option {
	return func(s *settings) {
		s.maxBodySize = n
	}
}

// WithRegistry registers the server metrics on a given registry. The default is a new registry per server.
func WithRegistry(r *prometheus.Registry) Option {
	return func(s *settings) {
		s.registry = r
	}
}
