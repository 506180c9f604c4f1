package main

import (
	"context"
	"time"

	"github.com/JaimeStill/book-search/internal/config"
	"github.com/JaimeStill/book-search/internal/index"
	"github.com/JaimeStill/book-search/internal/infrastructure"
)

// Server coordinates the lifecycle of all subsystems.
type Server struct {
	infra   *infrastructure.Infrastructure
	index   index.System
	modules *Modules
	http    *httpServer
}

// NewServer creates and initializes the service with all subsystems.
func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	c, err := openCatalog(context.Background(), cfg, infra)
	if err != nil {
		return nil, err
	}

	idx := index.New(
		c,
		infra.Storage,
		index.OptionsFromConfig(&cfg.Index),
		infra.Logger,
		infrastructure.MetricsNamespace,
		infra.Registry,
	)

	modules, err := NewModules(infra, idx, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
	)

	return &Server{
		infra:   infra,
		index:   idx,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, cfg.ShutdownTimeoutDuration(), infra.Logger),
	}, nil
}

// Start begins all subsystems and returns once the listener is bound.
// Readiness follows when the index and catalog sync finish.
func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.index.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	if err := s.modules.domain.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

// Shutdown gracefully stops all subsystems within timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
