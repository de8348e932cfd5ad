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
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NVIDIA/alertsd/pkg/coordinator"
	"github.com/NVIDIA/alertsd/pkg/serializer"
)

var routes = []string{
	"GET /health",
	"GET /ready",
	"GET /metrics",
	"GET /v1/contexts",
	"GET /v1/contexts/{context}",
	"GET /v1/contexts/{context}/status",
	"GET /v1/contexts/{context}/mappings",
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleDefault)

	// System endpoints (no rate limiting)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	// API endpoints with middleware
	mux.HandleFunc("GET /v1/contexts", s.withMiddleware(s.handleListContexts))
	mux.HandleFunc("GET /v1/contexts/{context}", s.withMiddleware(s.handleGetContext))
	mux.HandleFunc("GET /v1/contexts/{context}/status", s.withMiddleware(s.handleContextStatus))
	mux.HandleFunc("GET /v1/contexts/{context}/mappings", s.withMiddleware(s.handleContextMappings))

	return mux
}

func (s *Server) handleDefault(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("handling default route",
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"user_agent", r.UserAgent(),
	)

	resp := struct {
		Name      string   `json:"name"`
		Version   string   `json:"version"`
		Ready     bool     `json:"ready"`
		Timestamp string   `json:"timestamp"`
		Routes    []string `json:"routes"`
	}{
		Name:      s.config.Name,
		Version:   s.config.Version,
		Ready:     s.coord.CommonState() == coordinator.StateSucceeded,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Routes:    routes,
	}

	serializer.RespondJSON(w, http.StatusOK, resp)
}
