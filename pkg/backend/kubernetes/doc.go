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

// Package kubernetes implements backend.Backend on Kubernetes ConfigMaps.
//
// Every lifecycle policy, component template, index template and concrete
// index is stored as one ConfigMap in a single namespace, labelled with the
// resource kind and annotated with its original name. Resource names start
// with a dot, which Kubernetes rejects, so object names are derived from the
// kind and a sanitized form of the resource name.
//
// Policies and templates are written with Server-Side Apply, which gives
// create-or-replace semantics in one call. Concrete indices are created with
// a plain Create so that an existing index surfaces as
// backend.ErrAlreadyExists.
//
// The backend stores definitions only; it does not implement
// backend.DocumentWriter.
package kubernetes
