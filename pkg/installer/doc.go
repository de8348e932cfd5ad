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

// Package installer provides the idempotent install primitives used to
// provision alerts resources through a backend.Backend.
//
// # Primitives
//
//   - CreateOrUpdateLifecyclePolicy puts the shared lifecycle policy.
//   - CreateOrUpdateComponentTemplate puts a component template. If the put is
//     rejected because an index template composed of it would exceed its
//     total fields limit, the limit of those index templates is raised to the
//     given value and the put is retried once.
//   - CreateOrUpdateIndexTemplate puts a per-namespace index template.
//   - CreateConcreteWriteIndex makes sure the write alias of a pattern has a
//     write index, creating the first one when the alias is unknown.
//
// Every failure is a StructuredError with code RESOURCE_INSTALL carrying the
// backend's message.
//
// # Timeout guard
//
// WithTimeout races a primitive against a timeout and against cancellation of
// the caller's context, which the coordinator ties to process shutdown. When
// the guard fires first it returns TIMEOUT or CANCELED immediately; the
// primitive keeps running on a context that is never canceled and its result
// is discarded. The final state of that resource is unknown and callers must
// treat it as not ready.
//
// # Observability
//
// Each primitive records alertsd_install_operations_total and
// alertsd_install_duration_seconds by resource kind and opens an
// OpenTelemetry span named by SpanName, for example installer.index_template.
// Spans go to the provider set with WithTracerProvider, or to the global
// provider.
package installer
