// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/NVIDIA/alertsd/pkg/coordinator"
	"github.com/NVIDIA/alertsd/pkg/errors"
	"github.com/NVIDIA/alertsd/pkg/fieldmap"
	"github.com/NVIDIA/alertsd/pkg/logging"
	"github.com/NVIDIA/alertsd/pkg/registry"
	"github.com/NVIDIA/alertsd/pkg/resource"
)

// Coordinator is the part of the initialization coordinator the API reads.
// *coordinator.Service implements it.
type Coordinator interface {
	Contexts() []string
	Lookup(context string) (registry.Definition, bool)
	CommonState() coordinator.State
	CommonInitialization() *coordinator.Future
	ContextInitialization(context, namespace string) *coordinator.Future
	EffectiveFieldMap(context string) (fieldmap.FieldMap, error)
	Patterns(context, namespace string) (resource.IndexPatterns, error)
	Status() []coordinator.TaskStatus
}

// Server represents the HTTP server
type Server struct {
	config      *Config
	coord       Coordinator
	httpServer  *http.Server
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and lifecycle logs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server exposing coord. A nil config means NewConfig().
func New(coord Coordinator, config *Config, opts ...Option) (*Server, error) {
	if coord == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "coordinator is required")
	}
	if config == nil {
		config = NewConfig()
	}

	s := &Server{
		config:      config,
		coord:       coord,
		rateLimiter: rate.NewLimiter(config.RateLimit, config.RateLimitBurst),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Address, config.Port),
		Handler:           s.setupRoutes(),
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
		ErrorLog:          logging.NewLogLogger(slog.LevelWarn, false),
	}

	return s, nil
}

// Handler returns the routed handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting server",
		"name", s.config.Name,
		"version", s.config.Version,
		"address", ln.Addr().String(),
		"rateLimit", float64(s.config.RateLimit),
		"rateLimitBurst", s.config.RateLimitBurst,
		"statusTimeout", s.config.StatusTimeout.String(),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server", "timeout", s.config.ShutdownTimeout.String())
	return s.httpServer.Shutdown(shutdownCtx)
}
