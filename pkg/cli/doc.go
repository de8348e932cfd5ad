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

// Package cli implements the alertsd command-line interface.
//
// # Commands
//
// serve - Run the coordinator and its HTTP API:
//
//	alertsd serve --config alertsd.yaml --port 8080
//
// Installs the common resources at startup, registers every context in the
// service file and serves the status API until SIGINT or SIGTERM. When run
// under systemd with Type=notify, readiness is reported once the common
// resources are installed.
//
// install - Install every context once:
//
//	alertsd install --config alertsd.yaml --namespace space-a --namespace space-b
//
// Registers the contexts, provisions the default namespace and every
// --namespace given, waits for all outcomes and prints a report. Exits
// non-zero when any installation failed or did not finish in time.
//
// version - Print version information.
//
// # Global Flags
//
//	--config, -c        Service file (ALERTSD_CONFIG)
//	--log-level         debug, info, warn, error (ALERTSD_LOG_LEVEL, LOG_LEVEL)
//	--backend           memory, rest, kubernetes, sqlite (ALERTSD_BACKEND)
//	--url               rest backend URL (ALERTSD_URL)
//	--kubeconfig        kubernetes backend kubeconfig (ALERTSD_KUBECONFIG)
//	--database          sqlite backend path (ALERTSD_DATABASE)
//	--install-timeout   per request install timeout (ALERTSD_INSTALL_TIMEOUT)
//	--trace-exporter    none, stdout, otlp (ALERTSD_TRACE_EXPORTER, OTEL_TRACES_EXPORTER)
//	--otlp-endpoint     OTLP/gRPC collector (ALERTSD_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_ENDPOINT)
//	--otlp-insecure     collector without TLS (ALERTSD_OTLP_INSECURE, OTEL_EXPORTER_OTLP_INSECURE)
//	--trace-sample-ratio fraction of traces kept (ALERTSD_TRACE_SAMPLE_RATIO)
//
// Flags override the values of the service file. Namespaces given to
// install with --namespace must be lowercase letters, digits, '_' or '-'.
//
// # Exit Codes
//
//	0  Success
//	1  General error (invalid arguments, execution failure)
//	2  Context canceled or timeout
//	3  One or more installations failed
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/NVIDIA/alertsd/pkg/cli.version=1.0.0'"
package cli
