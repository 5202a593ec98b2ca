package server

import (
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/justinas/alice"
	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/errors"
	"github.com/oneconcern/cachetransporter/pkg/model"
	"github.com/oneconcern/cachetransporter/pkg/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const contentType = "application/octet-stream"

// Handler serves both buckets, plus /healthz and /metrics
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.GetHead)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Put("/{bucket}/{hash}", s.handlePut)
	r.Get("/{bucket}/{hash}", s.handleGet)

	return alice.New(
		s.logRequests,
		s.instrument,
		middleware.Recoverer,
	).Then(r)
}

// resource resolves and validates the bucket and key of a request, answering the request on failure
func (s *Server) resource(w http.ResponseWriter, r *http.Request) (model.Bucket, cafs.Key, bool) {
	bucket, err := model.ParseBucket(chi.URLParam(r, "bucket"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return "", cafs.Key{}, false
	}
	key, err := cafs.KeyFromString(chi.URLParam(r, "hash"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", cafs.Key{}, false
	}
	return bucket, key, true
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	bucket, key, ok := s.resource(w, r)
	if !ok {
		return
	}

	body := r.Body
	if s.settings.maxBodySize > 0 {
		body = http.MaxBytesReader(w, r.Body, s.settings.maxBodySize)
	}

	err := s.Put(r.Context(), bucket, key, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, storage.ErrHashMismatch):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.As(err, &tooLarge):
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		default:
			s.l.Error("storing object failed", zap.Stringer("bucket", bucket), zap.Stringer("key", key), zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	bucket, key, ok := s.resource(w, r)
	if !ok {
		return
	}

	rc, err := s.Get(r.Context(), bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		s.l.Error("reading object failed", zap.Stringer("bucket", bucket), zap.Stringer("key", key), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer func() {
		_ = rc.Close()
	}()

	w.Header().Set("Content-Type", contentType)
	if st, isFile := rc.(interface{ Stat() (os.FileInfo, error) }); isFile {
		if info, e := st.Stat(); e == nil {
			w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
		}
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err = storage.PipeIO(w, rc); err != nil {
		s.l.Warn("streaming object interrupted", zap.Stringer("bucket", bucket), zap.Stringer("key", key), zap.Error(err))
	}
}
