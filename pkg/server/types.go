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

package server

import (
	"github.com/NVIDIA/alertsd/pkg/coordinator"
	"github.com/NVIDIA/alertsd/pkg/errors"
	"github.com/NVIDIA/alertsd/pkg/fieldmap"
	"github.com/NVIDIA/alertsd/pkg/registry"
	"github.com/NVIDIA/alertsd/pkg/resource"
)

// ContextSummary describes one registered context.
type ContextSummary struct {
	Context         string `json:"context"`
	IsSpaceAware    bool   `json:"isSpaceAware"`
	UseECS          bool   `json:"useEcs"`
	UseLegacyAlerts bool   `json:"useLegacyAlerts"`
	SecondaryAlias  string `json:"secondaryAlias,omitempty"`
	Fields          int    `json:"fields"`
}

// ContextListResponse is the body of GET /v1/contexts.
type ContextListResponse struct {
	Common        coordinator.State        `json:"common"`
	Contexts      []ContextSummary         `json:"contexts"`
	Installations []coordinator.TaskStatus `json:"installations"`
}

// ContextResponse is the body of GET /v1/contexts/{context}.
type ContextResponse struct {
	Definition    registry.Definition      `json:"definition"`
	Patterns      resource.IndexPatterns   `json:"patterns"`
	Installations []coordinator.TaskStatus `json:"installations"`
}

// StatusResponse is the body of GET /v1/contexts/{context}/status.
type StatusResponse struct {
	Context   string                 `json:"context"`
	Namespace string                 `json:"namespace"`
	State     coordinator.State      `json:"state"`
	Result    bool                   `json:"result"`
	Error     string                 `json:"error,omitempty"`
	Code      errors.ErrorCode       `json:"code,omitempty"`
	Patterns  resource.IndexPatterns `json:"patterns"`
}

// MappingsResponse is the body of GET /v1/contexts/{context}/mappings.
type MappingsResponse struct {
	Context string            `json:"context"`
	Fields  fieldmap.FieldMap `json:"fields"`
	Mapping map[string]any    `json:"mapping"`
}
