package server

import (
	"context"
	"net"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run listens on the configured address and serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.settings.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.settings.readHeaderTimeout,
		ErrorLog:          zap.NewStdLog(s.l),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.l.Info("Server listening", zap.String("addr", ln.Addr().String()), zap.String("storage", s.store.String()))
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.l.Info("Server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.settings.shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
