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

package resource

import (
	"maps"
	"math"

	"github.com/NVIDIA/alertsd/pkg/defaults"
	"github.com/NVIDIA/alertsd/pkg/fieldmap"
)

// Settings keys shared by templates and indices.
const (
	SettingTotalFieldsLimit = "index.mapping.total_fields.limit"
	SettingHidden           = "index.hidden"
	SettingLifecycleName    = "index.lifecycle.name"
	SettingRolloverAlias    = "index.lifecycle.rollover_alias"
	SettingAutoExpand       = "index.auto_expand_replicas"
	SettingShards           = "index.number_of_shards"
)

// Phase is a single lifecycle phase.
type Phase struct {
	MinAge  string         `json:"min_age,omitempty"`
	Actions map[string]any `json:"actions"`
}

// PolicyBody is the lifecycle policy definition.
type PolicyBody struct {
	Meta   map[string]any   `json:"_meta,omitempty"`
	Phases map[string]Phase `json:"phases"`
}

// LifecyclePolicy is a named lifecycle policy.
type LifecyclePolicy struct {
	Name   string     `json:"-"`
	Policy PolicyBody `json:"policy"`
}

// AliasSpec describes an alias attached to an index or template.
type AliasSpec struct {
	IsWriteIndex bool `json:"is_write_index"`
}

// TemplateBody is the settings/mappings/aliases block shared by component
// templates, index templates and concrete indices.
type TemplateBody struct {
	Settings map[string]any       `json:"settings,omitempty"`
	Mappings map[string]any       `json:"mappings,omitempty"`
	Aliases  map[string]AliasSpec `json:"aliases,omitempty"`
}

// ComponentTemplate is a reusable named mapping fragment.
type ComponentTemplate struct {
	Name     string         `json:"-"`
	Template TemplateBody   `json:"template"`
	Meta     map[string]any `json:"_meta,omitempty"`
}

// FieldCount returns the number of leaf fields declared by the template.
func (c ComponentTemplate) FieldCount() int {
	return countFields(c.Template.Mappings)
}

// IndexTemplate binds an index pattern to component templates and a policy.
type IndexTemplate struct {
	Name          string         `json:"-"`
	IndexPatterns []string       `json:"index_patterns"`
	ComposedOf    []string       `json:"composed_of"`
	Template      TemplateBody   `json:"template"`
	Meta          map[string]any `json:"_meta,omitempty"`
}

// TotalFieldsLimit returns the configured total fields limit, or 0 if unset.
func (t IndexTemplate) TotalFieldsLimit() int {
	return intSetting(t.Template.Settings, SettingTotalFieldsLimit)
}

// ConcreteIndex is a physical index with its aliases.
type ConcreteIndex struct {
	Name     string               `json:"-"`
	Aliases  map[string]AliasSpec `json:"aliases,omitempty"`
	Settings map[string]any       `json:"settings,omitempty"`
}

// AliasedIndex reports one index behind an alias.
type AliasedIndex struct {
	Index        string `json:"index"`
	Alias        string `json:"alias"`
	IsWriteIndex bool   `json:"isWriteIndex"`
}

// DefaultLifecyclePolicy returns the shared alerts lifecycle policy: roll
// over the hot index after 30 days or 50gb primary shard size.
func DefaultLifecyclePolicy() LifecyclePolicy {
	return LifecyclePolicy{
		Name: defaults.LifecyclePolicyName,
		Policy: PolicyBody{
			Meta: map[string]any{"managed": true},
			Phases: map[string]Phase{
				"hot": {
					Actions: map[string]any{
						"rollover": map[string]any{
							"max_age":                defaults.RolloverMaxAge,
							"max_primary_shard_size": defaults.RolloverMaxPrimaryShardSize,
						},
					},
				},
			},
		},
	}
}

// ComponentTemplateOptions configures NewComponentTemplate.
type ComponentTemplateOptions struct {
	// Name is the context name; empty means the framework template.
	Name            string
	FieldMap        fieldmap.FieldMap
	Dynamic         string
	IncludeSettings bool
}

// NewComponentTemplate renders a field map as a component template. When
// settings are included, the total fields limit is the field count rounded up
// to the next thousand plus 500 of headroom.
func NewComponentTemplate(opts ComponentTemplateOptions) ComponentTemplate {
	mappings := fieldmap.ToMapping(opts.FieldMap)
	mappings["dynamic"] = fieldmap.DynamicValue(opts.Dynamic)

	var settings map[string]any
	if opts.IncludeSettings {
		settings = map[string]any{
			SettingShards:           1,
			SettingTotalFieldsLimit: FieldsLimitFor(len(opts.FieldMap)),
		}
	}

	return ComponentTemplate{
		Name: ComponentTemplateName(opts.Name),
		Template: TemplateBody{
			Settings: settings,
			Mappings: mappings,
		},
		Meta: map[string]any{"managed": true},
	}
}

// FieldsLimitFor returns the total fields limit for a template declaring n fields.
func FieldsLimitFor(n int) int {
	return int(math.Ceil(float64(n)/1000))*1000 + 500
}

// IndexTemplateOptions configures NewIndexTemplate.
type IndexTemplateOptions struct {
	Patterns         IndexPatterns
	ComponentRefs    []string
	PolicyName       string
	Version          string
	Namespace        string
	TotalFieldsLimit int
}

// NewIndexTemplate builds the per-namespace index template of a context.
func NewIndexTemplate(opts IndexTemplateOptions) IndexTemplate {
	meta := map[string]any{
		"kibana":    map[string]any{"version": opts.Version},
		"managed":   true,
		"namespace": opts.Namespace,
	}

	var aliases map[string]AliasSpec
	if opts.Patterns.SecondaryAlias != "" {
		aliases = map[string]AliasSpec{opts.Patterns.SecondaryAlias: {IsWriteIndex: false}}
	}

	return IndexTemplate{
		Name:          opts.Patterns.Template,
		IndexPatterns: []string{opts.Patterns.Pattern},
		ComposedOf:    append([]string(nil), opts.ComponentRefs...),
		Template: TemplateBody{
			Settings: map[string]any{
				SettingAutoExpand:       "0-1",
				SettingHidden:           true,
				SettingLifecycleName:    opts.PolicyName,
				SettingRolloverAlias:    opts.Patterns.Alias,
				SettingTotalFieldsLimit: opts.TotalFieldsLimit,
			},
			Mappings: map[string]any{
				"dynamic": false,
				"_meta":   maps.Clone(meta),
			},
			Aliases: aliases,
		},
		Meta: meta,
	}
}

// NewConcreteIndex builds the first write index for a pattern set.
func NewConcreteIndex(p IndexPatterns, totalFieldsLimit int) ConcreteIndex {
	aliases := map[string]AliasSpec{p.Alias: {IsWriteIndex: true}}
	if p.SecondaryAlias != "" {
		aliases[p.SecondaryAlias] = AliasSpec{IsWriteIndex: false}
	}
	return ConcreteIndex{
		Name:     p.Name,
		Aliases:  aliases,
		Settings: map[string]any{SettingTotalFieldsLimit: totalFieldsLimit},
	}
}

func countFields(mapping map[string]any) int {
	props, ok := mapping["properties"].(map[string]any)
	if !ok {
		return 0
	}
	n := 0
	for _, v := range props {
		node, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if _, typed := node["type"]; typed {
			n++
		}
		n += countFields(node)
	}
	return n
}

func intSetting(settings map[string]any, key string) int {
	switch v := settings[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
