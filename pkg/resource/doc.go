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

// Package resource builds the names and bodies of the backend resources an
// alerts context needs: the shared lifecycle policy, component templates,
// per-namespace index templates and the concrete write index.
//
// # Naming
//
// For context "stack" in namespace "default":
//
//	component template   .alerts-stack-mappings
//	index template       .alerts-stack.alerts-default-index-template
//	write alias          .alerts-stack.alerts-default
//	index pattern        .internal.alerts-stack.alerts-default-*
//	concrete index       .internal.alerts-stack.alerts-default-000001
//
// The framework component template is .alerts-framework-mappings and the
// shared lifecycle policy is .alerts-ilm-policy.
//
// Bodies are plain structs with JSON tags matching the search backend's
// template API, so any Backend can marshal them as-is.
package resource
