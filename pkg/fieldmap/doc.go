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

// Package fieldmap models the field definitions an alerts context declares
// and turns them into backend mappings.
//
// A FieldMap is keyed by dotted field path ("kibana.alert.rule.name").
// ToMapping expands the paths into nested "properties" objects, iterating in
// sorted key order so the rendered mapping is deterministic.
//
// # Precedence
//
// Component templates are layered by the backend in composed_of order and the
// later template wins on a conflicting field. Merge applies the same rule to
// in-memory maps, so
//
//	fieldmap.Merge(fieldmap.ECS, contextFields, fieldmap.LegacyAlert, fieldmap.Framework)
//
// yields exactly the effective mapping of an index composed of
// [ecs, <context>, legacy-alert, framework]: framework fields always win.
package fieldmap
