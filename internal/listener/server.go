package listener

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rpattn/sheetfed/internal/ingestion"
	"github.com/rpattn/sheetfed/internal/logging"
)

// Options configures the HTTP surface.
type Options struct {
	Addr           string
	AllowedOrigins []string
	Operation      *regexp.Regexp
	Launcher       Launcher
	Importer       ingestion.Importer
	Logger         *zap.SugaredLogger
}

// Server hosts the job webhook and the staging import endpoints.
type Server struct {
	server *http.Server
	logger *zap.SugaredLogger
}

// NewServer wires the routes. Import routes are only mounted when an importer is set.
func NewServer(opts Options) *Server {
	logger := logging.OrNop(opts.Logger).Named(logging.ComponentListener)

	mux := http.NewServeMux()
	mux.Handle("/events", NewJobEventHandler(opts.Launcher, opts.Operation, logger))
	if opts.Importer != nil {
		mux.Handle("/import", ingestion.NewHTTPHandler(opts.Importer))
		mux.Handle("/revalidate", ingestion.NewRevalidateHandler(opts.Importer))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	return &Server{
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      corsHandler.Handler(LoggingMiddleware(logger)(mux)),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
