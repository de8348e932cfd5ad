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

// Package defaults provides centralized configuration constants for alertsd.
//
// This package defines timeout values, resource names and limits used across
// the codebase. Centralizing these values ensures consistency and makes
// tuning easier.
//
// # Timeout Categories
//
// Timeouts are organized by component:
//
//   - Install timeouts: For backend resource provisioning
//   - Handler timeouts: For HTTP request processing
//   - Server timeouts: For HTTP server configuration
//   - Kubernetes timeouts: For K8s API operations
//   - HTTP client timeouts: For outbound HTTP requests
//
// # Usage
//
// Import and use constants directly:
//
//	import "github.com/NVIDIA/alertsd/pkg/defaults"
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.StatusHandlerTimeout)
//	defer cancel()
//
// # Timeout Guidelines
//
// When choosing timeout values:
//
//   - Installs: unbounded by default; the operator opts into a budget
//   - HTTP handlers: 30s for status, which may wait on a lazy install
//   - K8s operations: 30s per API call
//   - Server shutdown: 30s for graceful shutdown
package defaults
