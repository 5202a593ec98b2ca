package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/oneconcern/cachetransporter/pkg/model"
	"go.uber.org/zap"
)

// logRequests writes one access log entry per request
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.l.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", m.Code),
			zap.Int64("bytes", m.Written),
			zap.Int64("received", r.ContentLength),
			zap.Duration("duration", m.Duration),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

// instrument feeds the request metrics
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		bucket := bucketLabel(r.URL.Path)
		s.metrics.requests.WithLabelValues(bucket, r.Method, strconv.Itoa(m.Code)).Inc()
		s.metrics.duration.WithLabelValues(bucket, r.Method).Observe(m.Duration.Seconds())
	})
}

// bucketLabel keeps the cardinality of the bucket label bounded
func bucketLabel(path string) string {
	first := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
	if b, err := model.ParseBucket(first); err == nil {
		return b.String()
	}
	return "none"
}
