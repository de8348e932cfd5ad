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

// Package backend defines the connection the resource installer drives.
//
// A Backend creates or replaces lifecycle policies and templates, reports
// which indices sit behind an alias, and creates concrete indices. All puts
// are create-or-update. CreateIndex returns ErrAlreadyExists when the index
// exists, so callers can treat a lost race as success after re-checking the
// alias.
//
// Implementations:
//
//   - memory: in-process maps, for tests and single-process trials
//   - rest: a search backend speaking the index/template REST API
//   - kubernetes: resources stored as labelled ConfigMaps
//   - sqlite: resources stored in an embedded SQL database
//
// A backend that can also store alert documents implements DocumentWriter.
package backend
