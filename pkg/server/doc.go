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

// Package server exposes the alerts resource coordinator over HTTP.
//
// # Architecture
//
// The server is a read-only view of a coordinator.Service:
//
//   - Rate limiting using token bucket algorithm (golang.org/x/time/rate)
//   - Request ID tracking for distributed tracing
//   - Panic recovery for resilience
//   - Graceful shutdown handling
//   - Health and readiness endpoints for Kubernetes
//
// # Usage
//
//	svc, _ := coordinator.New(ctx, coordinator.Options{Backend: b})
//	cfg := server.NewConfig()
//	cfg.Port = 9090
//
//	srv, err := server.New(svc, cfg)
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// # API Endpoints
//
// GET /v1/contexts - Registered contexts and every known installation
//
// GET /v1/contexts/{context} - Definition, default index names and installations
//
// GET /v1/contexts/{context}/status - Installation outcome in a namespace
//
//	Query parameters:
//	  - namespace: namespace to check (default: default). An unseen
//	    namespace of a space aware context is provisioned on first request.
//	  - wait: upper bound on how long to wait for the outcome (e.g. 5s).
//	    It can only shorten the configured status timeout.
//
//	Returns 200 once the installation finished, successfully or not, and
//	202 with the current state when the wait expired first.
//
//	Example:
//	  curl "http://localhost:8080/v1/contexts/observability.logs/status?namespace=space-a"
//
// GET /v1/contexts/{context}/mappings - Effective field map and mapping
//
// GET /health - Health check (Kubernetes liveness check)
//
//	Always returns 200 OK with {"status": "healthy", "timestamp": "..."}
//
// GET /ready - Readiness check (Kubernetes readiness check)
//
//	Returns 200 OK once the common resources are installed, 503 otherwise
//
// GET /metrics - Prometheus metrics
//
// # Error Handling
//
// All errors return a consistent JSON structure:
//
//	{
//	  "code": "UNREGISTERED_CONTEXT",
//	  "message": "Error getting initialized status for context foo - context has not been registered.",
//	  "details": {"context": "foo"},
//	  "requestId": "550e8400-e29b-41d4-a716-446655440000",
//	  "timestamp": "2025-12-22T12:00:00Z",
//	  "retryable": false
//	}
//
// Error codes map to HTTP status through HTTPStatusFromCode.
package server
