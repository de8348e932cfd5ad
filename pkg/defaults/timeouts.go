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

package defaults

import "time"

// Installation timeouts for backend resource provisioning.
const (
	// InstallTimeout is the default budget for a single install primitive.
	// Zero means wait indefinitely.
	InstallTimeout time.Duration = 0

	// CLIInstallWaitTimeout bounds how long `alertsd install` waits for all
	// outcomes before giving up.
	CLIInstallWaitTimeout = 30 * time.Minute
)

// Handler timeouts for HTTP request processing.
const (
	// StatusHandlerTimeout is the timeout for readiness status requests.
	// Requests for an unseen namespace block on its installation up to this limit.
	StatusHandlerTimeout = 30 * time.Second
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 45 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// Kubernetes timeouts for K8s API operations.
const (
	// K8sRequestTimeout bounds a single ConfigMap API call made by the
	// Kubernetes backend.
	K8sRequestTimeout = 30 * time.Second
)

// HTTP client timeouts for outbound requests.
const (
	// HTTPClientTimeout is the default total timeout for HTTP requests.
	HTTPClientTimeout = 30 * time.Second

	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPRetryCount is the number of retries for idempotent backend requests.
	HTTPRetryCount = 2

	// HTTPRetryWaitTime is the initial backoff between retries.
	HTTPRetryWaitTime = 500 * time.Millisecond
)
