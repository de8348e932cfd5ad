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
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/alertsd/pkg/defaults"
	"github.com/NVIDIA/alertsd/pkg/errors"
	"github.com/NVIDIA/alertsd/pkg/fieldmap"
)

func TestComponentTemplateName(t *testing.T) {
	assert.Equal(t, ".alerts-framework-mappings", ComponentTemplateName(""))
	assert.Equal(t, ".alerts-framework-mappings", ComponentTemplateName(FrameworkContext))
	assert.Equal(t, ".alerts-ecs-mappings", ComponentTemplateName(ECSContext))
	assert.Equal(t, ".alerts-legacy-alert-mappings", ComponentTemplateName(LegacyAlertContext))
	assert.Equal(t, ".alerts-observability.apm-mappings", ComponentTemplateName("observability.apm"))
}

func TestIndexPatternsFor(t *testing.T) {
	tests := []struct {
		name           string
		context        string
		namespace      string
		secondaryAlias string
		want           IndexPatterns
	}{
		{
			name:      "default namespace",
			context:   "stack",
			namespace: "default",
			want: IndexPatterns{
				Template:    ".alerts-stack.alerts-default-index-template",
				Pattern:     ".internal.alerts-stack.alerts-default-*",
				BasePattern: ".alerts-stack.alerts-*",
				Alias:       ".alerts-stack.alerts-default",
				Name:        ".internal.alerts-stack.alerts-default-000001",
			},
		},
		{
			name:    "empty namespace is default",
			context: "stack",
			want: IndexPatterns{
				Template:    ".alerts-stack.alerts-default-index-template",
				Pattern:     ".internal.alerts-stack.alerts-default-*",
				BasePattern: ".alerts-stack.alerts-*",
				Alias:       ".alerts-stack.alerts-default",
				Name:        ".internal.alerts-stack.alerts-default-000001",
			},
		},
		{
			name:           "space with secondary alias",
			context:        "security",
			namespace:      "team-a",
			secondaryAlias: ".siem-signals",
			want: IndexPatterns{
				Template:       ".alerts-security.alerts-team-a-index-template",
				Pattern:        ".internal.alerts-security.alerts-team-a-*",
				BasePattern:    ".alerts-security.alerts-*",
				Alias:          ".alerts-security.alerts-team-a",
				Name:           ".internal.alerts-security.alerts-team-a-000001",
				SecondaryAlias: ".siem-signals-team-a",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IndexPatternsFor(tt.context, tt.namespace, tt.secondaryAlias))
		})
	}
}

func TestValidateNamespace(t *testing.T) {
	tests := []struct {
		namespace string
		valid     bool
	}{
		{namespace: defaults.DefaultNamespace, valid: true},
		{namespace: "space1", valid: true},
		{namespace: "team_a-prod", valid: true},
		{namespace: strings.Repeat("a", MaxNamespaceLength), valid: true},
		{namespace: ""},
		{namespace: "*"},
		{namespace: "space-*"},
		{namespace: "Space1"},
		{namespace: ".."},
		{namespace: "space.1"},
		{namespace: "a/b"},
		{namespace: "a b"},
		{namespace: "a,b"},
		{namespace: strings.Repeat("a", MaxNamespaceLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			err := ValidateNamespace(tt.namespace)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRequest))
		})
	}
}

func TestDefaultLifecyclePolicy(t *testing.T) {
	p := DefaultLifecyclePolicy()
	assert.Equal(t, defaults.LifecyclePolicyName, p.Name)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"policy":{"_meta":{"managed":true},"phases":{"hot":{"actions":{"rollover":{"max_age":"30d","max_primary_shard_size":"50gb"}}}}}}`, string(raw))
}

func TestFieldsLimitFor(t *testing.T) {
	assert.Equal(t, 500, FieldsLimitFor(0))
	assert.Equal(t, 1500, FieldsLimitFor(1))
	assert.Equal(t, 1500, FieldsLimitFor(1000))
	assert.Equal(t, 2500, FieldsLimitFor(1001))
}

func TestNewComponentTemplate(t *testing.T) {
	t.Run("framework with settings", func(t *testing.T) {
		ct := NewComponentTemplate(ComponentTemplateOptions{
			FieldMap:        fieldmap.Framework,
			IncludeSettings: true,
		})
		assert.Equal(t, ".alerts-framework-mappings", ct.Name)
		assert.Equal(t, "strict", ct.Template.Mappings["dynamic"])
		assert.Equal(t, FieldsLimitFor(len(fieldmap.Framework)), ct.Template.Settings[SettingTotalFieldsLimit])
		assert.Equal(t, len(fieldmap.Framework), ct.FieldCount())
		assert.Equal(t, true, ct.Meta["managed"])
	})

	t.Run("context without settings", func(t *testing.T) {
		ct := NewComponentTemplate(ComponentTemplateOptions{
			Name:     "beta",
			FieldMap: fieldmap.FieldMap{"beta.score": {Type: "float"}},
			Dynamic:  fieldmap.DynamicFalse,
		})
		assert.Equal(t, ".alerts-beta-mappings", ct.Name)
		assert.Nil(t, ct.Template.Settings)
		assert.Equal(t, false, ct.Template.Mappings["dynamic"])
		assert.Equal(t, 1, ct.FieldCount())
	})
}

func TestNewIndexTemplate(t *testing.T) {
	p := IndexPatternsFor("security", "team-a", ".siem-signals")
	refs := []string{ComponentTemplateName("security"), ComponentTemplateName("")}

	it := NewIndexTemplate(IndexTemplateOptions{
		Patterns:         p,
		ComponentRefs:    refs,
		PolicyName:       defaults.LifecyclePolicyName,
		Version:          "8.9.0",
		Namespace:        "team-a",
		TotalFieldsLimit: defaults.TotalFieldsLimit,
	})

	assert.Equal(t, p.Template, it.Name)
	assert.Equal(t, []string{p.Pattern}, it.IndexPatterns)
	assert.Equal(t, refs, it.ComposedOf)
	assert.Equal(t, defaults.TotalFieldsLimit, it.TotalFieldsLimit())
	assert.Equal(t, defaults.LifecyclePolicyName, it.Template.Settings[SettingLifecycleName])
	assert.Equal(t, p.Alias, it.Template.Settings[SettingRolloverAlias])
	assert.Equal(t, map[string]AliasSpec{".siem-signals-team-a": {IsWriteIndex: false}}, it.Template.Aliases)
	assert.Equal(t, "team-a", it.Meta["namespace"])

	// composed_of is copied, not aliased
	refs[0] = "mutated"
	assert.Equal(t, ComponentTemplateName("security"), it.ComposedOf[0])
}

func TestNewConcreteIndex(t *testing.T) {
	p := IndexPatternsFor("stack", "default", "")
	idx := NewConcreteIndex(p, 2500)

	assert.Equal(t, p.Name, idx.Name)
	assert.Equal(t, map[string]AliasSpec{p.Alias: {IsWriteIndex: true}}, idx.Aliases)
	assert.Equal(t, 2500, idx.Settings[SettingTotalFieldsLimit])

	withSecondary := NewConcreteIndex(IndexPatternsFor("stack", "default", "legacy"), 2500)
	assert.Len(t, withSecondary.Aliases, 2)
	assert.False(t, withSecondary.Aliases["legacy-default"].IsWriteIndex)
}

func TestIntSetting(t *testing.T) {
	assert.Equal(t, 5, intSetting(map[string]any{"k": 5}, "k"))
	assert.Equal(t, 5, intSetting(map[string]any{"k": float64(5)}, "k"))
	assert.Equal(t, 5, intSetting(map[string]any{"k": int64(5)}, "k"))
	assert.Equal(t, 0, intSetting(map[string]any{"k": "5"}, "k"))
	assert.Equal(t, 0, intSetting(nil, "k"))
}
