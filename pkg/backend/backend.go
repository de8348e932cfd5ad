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

package backend

import (
	"context"
	"errors"

	"github.com/NVIDIA/alertsd/pkg/resource"
)

var (
	// ErrAlreadyExists is returned by CreateIndex when the index exists.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrNotFound is returned when a referenced resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrFieldLimitExceeded is returned by PutComponentTemplate when an index
	// template composed of the component would exceed its total fields limit.
	ErrFieldLimitExceeded = errors.New("total fields limit exceeded")

	// ErrWritesUnsupported is returned when documents are written to a
	// backend that only stores resource definitions.
	ErrWritesUnsupported = errors.New("backend does not support document writes")
)

// Backend is the connection handle the installer provisions resources through.
type Backend interface {
	// PutLifecyclePolicy creates or replaces a lifecycle policy.
	PutLifecyclePolicy(ctx context.Context, policy resource.LifecyclePolicy) error

	// PutComponentTemplate creates or replaces a component template.
	PutComponentTemplate(ctx context.Context, tmpl resource.ComponentTemplate) error

	// PutIndexTemplate creates or replaces an index template.
	PutIndexTemplate(ctx context.Context, tmpl resource.IndexTemplate) error

	// SetIndexTemplatesFieldLimit sets the total fields limit of every index
	// template composed of the named component template.
	SetIndexTemplatesFieldLimit(ctx context.Context, componentTemplate string, limit int) error

	// GetAliasedIndices lists the indices behind an alias. A missing alias
	// yields an empty list and no error.
	GetAliasedIndices(ctx context.Context, alias string) ([]resource.AliasedIndex, error)

	// CreateIndex creates a concrete index with its aliases.
	CreateIndex(ctx context.Context, index resource.ConcreteIndex) error

	// UpdateIndexSettings applies the total fields limit to an existing index.
	UpdateIndexSettings(ctx context.Context, index string, totalFieldsLimit int) error
}

// DocumentWriter stores alert documents through a write alias.
type DocumentWriter interface {
	IndexDocuments(ctx context.Context, alias string, docs []map[string]any) error
}

// Closer is implemented by backends holding connections or files.
type Closer interface {
	Close() error
}
