package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"appdl/internal/api"
	"appdl/internal/config"
	"appdl/internal/logging"
)

type apiServer struct {
	bind    string
	handler http.Handler
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	handler := api.NewRouter(api.Options{
		Token:          cfg.Paths.APIToken,
		AllowedOrigins: cfg.API.AllowedOrigins,
		Jobs:           d.workflow,
		Notifications:  d.notes,
		Cookies:        d.store,
		Media:          d.store,
		Status:         d.APIStatus,
		Health:         d.Health,
		Logger:         logger,
	})

	return &apiServer{
		bind:    bind,
		handler: handler,
		logger:  logging.NewComponentLogger(logger, "api-server"),
	}
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	// http.Server cannot be reused after Shutdown.
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error",
				logging.String(logging.FieldEventType, "api_serve_failed"),
				logging.Error(err),
			)
		}
	}()

	go func() {
		<-ctx.Done()
		s.shutdown(server)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()
	s.shutdown(server)
}

func (s *apiServer) shutdown(server *http.Server) {
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == server {
		s.server = nil
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
