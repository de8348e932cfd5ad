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

// Package coordinator provisions and tracks the backend resources of every
// registered alerts context.
//
// # Overview
//
// A Service is created once per process. Creating it starts the common
// installation: the shared lifecycle policy and the framework, legacy alert
// and ECS component templates, installed in parallel. Registering a context
// queues its installation in the default namespace; that installation waits
// for the common installation and then installs, in order:
//
//  1. the context component template, if the context declares fields
//  2. the namespace index template
//  3. the concrete write index
//
// # Outcomes
//
// Every (context, namespace) pair is installed at most once per process.
// The first caller creates the task, later callers share its Future, and the
// terminal Outcome is kept for the life of the Service. A failed common
// installation fails every context task without calling the backend. A failed
// context task affects no other key, and nothing is retried automatically.
//
// # Namespaces
//
// ContextInitialization resolves the namespace first: contexts that are not
// space aware always use the default namespace. The first lookup of a new
// namespace of a space aware context starts its installation. Namespaces
// that resource.ValidateNamespace rejects (wildcards or upper case)
// resolve at once with an INVALID_REQUEST failure and are never cached.
//
// # Writers
//
// AcquireWriter is the entry point for consumers that write alerts. It
// returns no writer when the consumer opts out or the context is not ready,
// and never returns an error for either case.
//
// # Shutdown
//
// Canceling the context passed to New, or calling Stop, resolves every
// pending install guard with a CANCELED failure. Backend requests already in
// flight are abandoned, not aborted.
package coordinator
