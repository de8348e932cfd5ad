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

	"github.com/NVIDIA/alertsd/pkg/coordinator"
	"github.com/NVIDIA/alertsd/pkg/serializer"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string    `json:"status" yaml:"status"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Reason    string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	}

	serializer.RespondJSON(w, http.StatusOK, resp)
}

// handleReady handles GET /ready. The service is ready once the resources
// shared by every context are installed.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	switch s.coord.CommonState() {
	case coordinator.StateSucceeded:
		serializer.RespondJSON(w, http.StatusOK, HealthResponse{
			Status:    "ready",
			Timestamp: time.Now(),
		})
	case coordinator.StateFailed:
		o, _ := s.coord.CommonInitialization().Outcome()
		serializer.RespondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "failed",
			Timestamp: time.Now(),
			Reason:    o.Error,
		})
	default:
		serializer.RespondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not_ready",
			Timestamp: time.Now(),
			Reason:    "common resources are being installed",
		})
	}
}
