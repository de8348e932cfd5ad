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

// Package registry stores the resource definitions of alerts contexts.
//
// A context is registered once. Registering it again with an identical
// definition is a no-op; registering it with a different definition fails
// with a CONFLICT error and the original definition is kept. Definitions are
// copied on the way in and out, so a registered definition never changes.
package registry

import (
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/NVIDIA/alertsd/pkg/errors"
	"github.com/NVIDIA/alertsd/pkg/fieldmap"
	"github.com/NVIDIA/alertsd/pkg/resource"
)

var (
	contextNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

	// reserved names collide with the shared component templates
	reservedContexts = []string{
		resource.FrameworkContext,
		resource.LegacyAlertContext,
		resource.ECSContext,
	}

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("contextname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return contextNamePattern.MatchString(name) && !slices.Contains(reservedContexts, name)
	})
	return v
}

// Definition declares the resources a context needs.
type Definition struct {
	// Context is the unique context name.
	Context string `json:"context" yaml:"context" validate:"required,max=64,contextname"`

	// Mappings are the context specific fields. Empty means the context
	// relies only on the shared templates.
	Mappings fieldmap.Mappings `json:"mappings" yaml:"mappings"`

	// UseECS composes the ECS component template.
	UseECS bool `json:"useEcs" yaml:"useEcs"`

	// UseLegacyAlerts composes the legacy alert component template.
	UseLegacyAlerts bool `json:"useLegacyAlerts" yaml:"useLegacyAlerts"`

	// SecondaryAlias is an extra read alias attached to every index.
	SecondaryAlias string `json:"secondaryAlias,omitempty" yaml:"secondaryAlias,omitempty" validate:"omitempty,max=128"`

	// IsSpaceAware gives each namespace its own resources. Otherwise every
	// namespace resolves to the default namespace.
	IsSpaceAware bool `json:"isSpaceAware" yaml:"isSpaceAware"`
}

// Validate checks the definition.
func (d Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid definition for context %q", d.Context), err)
	}
	if err := d.Mappings.FieldMap.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid mappings for context %q", d.Context), err)
	}
	return nil
}

// normalized returns a deep copy with a non-nil field map, so that a nil and
// an empty map compare equal.
func (d Definition) normalized() Definition {
	out := d
	out.Mappings.FieldMap = maps.Clone(d.Mappings.FieldMap)
	if out.Mappings.FieldMap == nil {
		out.Mappings.FieldMap = fieldmap.FieldMap{}
	}
	return out
}

// Registry is a thread-safe set of context definitions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{defs: map[string]Definition{}}
}

// Register stores a definition. It returns true when the context was added,
// false when an identical definition was already registered.
func (r *Registry) Register(def Definition) (bool, error) {
	if err := def.Validate(); err != nil {
		return false, err
	}
	def = def.normalized()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.defs[def.Context]; ok {
		if !reflect.DeepEqual(existing, def) {
			return false, errors.NewWithContext(errors.ErrCodeConflict,
				fmt.Sprintf("%s has already been registered with different options", def.Context),
				map[string]any{"context": def.Context})
		}
		return false, nil
	}

	r.defs[def.Context] = def
	return true, nil
}

// IsRegistered reports whether a context has been registered.
func (r *Registry) IsRegistered(context string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[context]
	return ok
}

// Lookup returns a copy of a context's definition.
func (r *Registry) Lookup(context string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[context]
	if !ok {
		return Definition{}, false
	}
	return def.normalized(), true
}

// Contexts returns the registered context names in sorted order.
func (r *Registry) Contexts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.defs))
}
