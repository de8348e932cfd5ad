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

// Package serializer renders values as JSON, YAML or tables.
//
// The package supports three output formats:
//   - JSON: indented, machine-readable
//   - YAML: human-readable
//   - Table: columns for values implementing Tabular, flattened
//     FIELD/VALUE pairs for anything else
//
// Usage:
//
//	w := serializer.NewWriter(serializer.FormatTable, os.Stdout)
//	if err := w.Serialize(ctx, report); err != nil {
//		return err
//	}
//
// For HTTP responses:
//
//	serializer.RespondJSON(w, http.StatusOK, data)
//
// RespondJSON encodes into a buffer first so that an encoding failure
// produces a 500 instead of a truncated body.
package serializer
