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

// Package sqlite implements backend.Backend and backend.DocumentWriter on an
// embedded SQLite database (modernc.org/sqlite, no cgo).
//
// Lifecycle policies and templates are rows of the resources table keyed by
// (kind, name) and replaced on every put. Concrete indices, their aliases and
// the alert documents written through them live in the indices, aliases and
// documents tables. A partial unique index keeps at most one write index per
// alias.
//
// The backend suits single-node deployments and local development:
//
//	b, err := sqlite.Open("/var/lib/alertsd/alerts.db")
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
package sqlite
