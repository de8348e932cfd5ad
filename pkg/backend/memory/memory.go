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

// Package memory implements an in-process backend.Backend.
//
// It keeps policies, templates, indices and documents in maps guarded by a
// mutex and records every call in order, which makes it the backend of
// choice for tests and for running alertsd without external storage.
// A Hook can fail or delay individual operations.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/NVIDIA/alertsd/pkg/backend"
	"github.com/NVIDIA/alertsd/pkg/resource"
)

// Operation names recorded by the backend and passed to hooks.
const (
	OpPutLifecyclePolicy   = "PutLifecyclePolicy"
	OpPutComponentTemplate = "PutComponentTemplate"
	OpPutIndexTemplate     = "PutIndexTemplate"
	OpSetFieldLimit        = "SetIndexTemplatesFieldLimit"
	OpGetAliasedIndices    = "GetAliasedIndices"
	OpCreateIndex          = "CreateIndex"
	OpUpdateIndexSettings  = "UpdateIndexSettings"
	OpIndexDocuments       = "IndexDocuments"
)

// Operation is one recorded call.
type Operation struct {
	Op   string
	Name string
}

// Hook runs before an operation is applied. A non-nil error fails the call.
type Hook func(ctx context.Context, op, name string) error

type index struct {
	aliases  map[string]resource.AliasSpec
	settings map[string]any
	docs     []map[string]any
}

// Backend is an in-memory backend.Backend and backend.DocumentWriter.
type Backend struct {
	mu                 sync.Mutex
	hook               Hook
	policies           map[string]resource.LifecyclePolicy
	componentTemplates map[string]resource.ComponentTemplate
	indexTemplates     map[string]resource.IndexTemplate
	indices            map[string]*index
	ops                []Operation
}

// Option configures the Backend.
type Option func(*Backend)

// WithHook installs a hook called before every operation.
func WithHook(h Hook) Option {
	return func(b *Backend) {
		b.hook = h
	}
}

// New returns an empty in-memory backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		policies:           map[string]resource.LifecyclePolicy{},
		componentTemplates: map[string]resource.ComponentTemplate{},
		indexTemplates:     map[string]resource.IndexTemplate{},
		indices:            map[string]*index{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

var (
	_ backend.Backend        = (*Backend)(nil)
	_ backend.DocumentWriter = (*Backend)(nil)
)

// before records the call and runs the hook outside the lock so a hook may
// block without stalling unrelated operations.
func (b *Backend) before(ctx context.Context, op, name string) error {
	b.mu.Lock()
	b.ops = append(b.ops, Operation{Op: op, Name: name})
	hook := b.hook
	b.mu.Unlock()

	if hook != nil {
		return hook(ctx, op, name)
	}
	return nil
}

// PutLifecyclePolicy implements backend.Backend.
func (b *Backend) PutLifecyclePolicy(ctx context.Context, policy resource.LifecyclePolicy) error {
	if err := b.before(ctx, OpPutLifecyclePolicy, policy.Name); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.policies[policy.Name] = policy
	return nil
}

// PutComponentTemplate implements backend.Backend. It rejects the template
// with backend.ErrFieldLimitExceeded when an index template composed of it
// would exceed that template's total fields limit.
func (b *Backend) PutComponentTemplate(ctx context.Context, tmpl resource.ComponentTemplate) error {
	if err := b.before(ctx, OpPutComponentTemplate, tmpl.Name); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, it := range b.indexTemplates {
		if !slices.Contains(it.ComposedOf, tmpl.Name) || it.TotalFieldsLimit() == 0 {
			continue
		}
		total := 0
		for _, ref := range it.ComposedOf {
			if ref == tmpl.Name {
				total += tmpl.FieldCount()
				continue
			}
			total += b.componentTemplates[ref].FieldCount()
		}
		if total > it.TotalFieldsLimit() {
			return fmt.Errorf("component template %s in index template %s: %d fields > %d: %w",
				tmpl.Name, it.Name, total, it.TotalFieldsLimit(), backend.ErrFieldLimitExceeded)
		}
	}

	b.componentTemplates[tmpl.Name] = tmpl
	return nil
}

// PutIndexTemplate implements backend.Backend. Every composed component
// template must already exist.
func (b *Backend) PutIndexTemplate(ctx context.Context, tmpl resource.IndexTemplate) error {
	if err := b.before(ctx, OpPutIndexTemplate, tmpl.Name); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ref := range tmpl.ComposedOf {
		if _, ok := b.componentTemplates[ref]; !ok {
			return fmt.Errorf("index template %s references component template %s: %w",
				tmpl.Name, ref, backend.ErrNotFound)
		}
	}
	b.indexTemplates[tmpl.Name] = tmpl
	return nil
}

// SetIndexTemplatesFieldLimit implements backend.Backend.
func (b *Backend) SetIndexTemplatesFieldLimit(ctx context.Context, componentTemplate string, limit int) error {
	if err := b.before(ctx, OpSetFieldLimit, componentTemplate); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, it := range b.indexTemplates {
		if !slices.Contains(it.ComposedOf, componentTemplate) {
			continue
		}
		settings := maps.Clone(it.Template.Settings)
		if settings == nil {
			settings = map[string]any{}
		}
		settings[resource.SettingTotalFieldsLimit] = limit
		it.Template.Settings = settings
		b.indexTemplates[name] = it
	}
	return nil
}

// GetAliasedIndices implements backend.Backend.
func (b *Backend) GetAliasedIndices(ctx context.Context, alias string) ([]resource.AliasedIndex, error) {
	if err := b.before(ctx, OpGetAliasedIndices, alias); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []resource.AliasedIndex
	for _, name := range slices.Sorted(maps.Keys(b.indices)) {
		spec, ok := b.indices[name].aliases[alias]
		if !ok {
			continue
		}
		out = append(out, resource.AliasedIndex{Index: name, Alias: alias, IsWriteIndex: spec.IsWriteIndex})
	}
	return out, nil
}

// CreateIndex implements backend.Backend.
func (b *Backend) CreateIndex(ctx context.Context, idx resource.ConcreteIndex) error {
	if err := b.before(ctx, OpCreateIndex, idx.Name); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.indices[idx.Name]; ok {
		return fmt.Errorf("index %s: %w", idx.Name, backend.ErrAlreadyExists)
	}
	for alias, spec := range idx.Aliases {
		if spec.IsWriteIndex && b.writeIndexLocked(alias) != "" {
			return fmt.Errorf("alias %s already has a write index", alias)
		}
	}

	b.indices[idx.Name] = &index{
		aliases:  maps.Clone(idx.Aliases),
		settings: maps.Clone(idx.Settings),
	}
	return nil
}

// UpdateIndexSettings implements backend.Backend.
func (b *Backend) UpdateIndexSettings(ctx context.Context, name string, totalFieldsLimit int) error {
	if err := b.before(ctx, OpUpdateIndexSettings, name); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok := b.indices[name]
	if !ok {
		return fmt.Errorf("index %s: %w", name, backend.ErrNotFound)
	}
	if idx.settings == nil {
		idx.settings = map[string]any{}
	}
	idx.settings[resource.SettingTotalFieldsLimit] = totalFieldsLimit
	return nil
}

// IndexDocuments implements backend.DocumentWriter.
func (b *Backend) IndexDocuments(ctx context.Context, alias string, docs []map[string]any) error {
	if err := b.before(ctx, OpIndexDocuments, alias); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	name := b.writeIndexLocked(alias)
	if name == "" {
		return fmt.Errorf("no write index for alias %s: %w", alias, backend.ErrNotFound)
	}
	for _, d := range docs {
		b.indices[name].docs = append(b.indices[name].docs, maps.Clone(d))
	}
	return nil
}

func (b *Backend) writeIndexLocked(alias string) string {
	for name, idx := range b.indices {
		if spec, ok := idx.aliases[alias]; ok && spec.IsWriteIndex {
			return name
		}
	}
	return ""
}

// Operations returns a copy of the recorded calls in order.
func (b *Backend) Operations() []Operation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.ops)
}

// Count returns how many times op was called.
func (b *Backend) Count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, o := range b.ops {
		if o.Op == op {
			n++
		}
	}
	return n
}

// LifecyclePolicy returns a stored policy.
func (b *Backend) LifecyclePolicy(name string) (resource.LifecyclePolicy, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.policies[name]
	return p, ok
}

// ComponentTemplate returns a stored component template.
func (b *Backend) ComponentTemplate(name string) (resource.ComponentTemplate, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.componentTemplates[name]
	return t, ok
}

// IndexTemplate returns a stored index template.
func (b *Backend) IndexTemplate(name string) (resource.IndexTemplate, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.indexTemplates[name]
	return t, ok
}

// IndexSettings returns a copy of an index's settings.
func (b *Backend) IndexSettings(name string) (map[string]any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx, ok := b.indices[name]
	if !ok {
		return nil, false
	}
	return maps.Clone(idx.settings), true
}

// Documents returns the documents stored in an index.
func (b *Backend) Documents(name string) []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx, ok := b.indices[name]
	if !ok {
		return nil
	}
	return slices.Clone(idx.docs)
}
