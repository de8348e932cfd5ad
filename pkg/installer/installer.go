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

package installer

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NVIDIA/alertsd/pkg/backend"
	"github.com/NVIDIA/alertsd/pkg/errors"
	"github.com/NVIDIA/alertsd/pkg/resource"
)

// Resource kinds used in errors, metrics and spans.
const (
	KindLifecyclePolicy   = "lifecycle policy"
	KindComponentTemplate = "component template"
	KindIndexTemplate     = "index template"
	KindConcreteIndex     = "concrete write index"
)

// TracerName is the instrumentation scope of installer spans.
const TracerName = "github.com/NVIDIA/alertsd/pkg/installer"

// Installer provisions resources through a backend.
type Installer struct {
	backend backend.Backend
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures the Installer.
type Option func(*Installer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(i *Installer) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithTracerProvider sets the provider of install spans. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(i *Installer) {
		if tp != nil {
			i.tracer = tp.Tracer(TracerName)
		}
	}
}

// New returns an Installer bound to a backend.
func New(b backend.Backend, opts ...Option) *Installer {
	i := &Installer{
		backend: b,
		logger:  slog.Default(),
		tracer:  otel.GetTracerProvider().Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// CreateOrUpdateLifecyclePolicy installs or replaces a lifecycle policy.
func (i *Installer) CreateOrUpdateLifecyclePolicy(ctx context.Context, policy resource.LifecyclePolicy) error {
	return i.observe(ctx, KindLifecyclePolicy, policy.Name, func(ctx context.Context) error {
		i.logger.Info("installing lifecycle policy", "name", policy.Name)
		if err := i.backend.PutLifecyclePolicy(ctx, policy); err != nil {
			return installError(KindLifecyclePolicy, policy.Name, err)
		}
		return nil
	})
}

// CreateOrUpdateComponentTemplate installs or replaces a component template.
func (i *Installer) CreateOrUpdateComponentTemplate(ctx context.Context, tmpl resource.ComponentTemplate, totalFieldsLimit int) error {
	return i.observe(ctx, KindComponentTemplate, tmpl.Name, func(ctx context.Context) error {
		i.logger.Info("installing component template", "name", tmpl.Name)

		err := i.backend.PutComponentTemplate(ctx, tmpl)
		if stderrors.Is(err, backend.ErrFieldLimitExceeded) {
			i.logger.Info("raising total fields limit of index templates using component template",
				"name", tmpl.Name,
				"limit", totalFieldsLimit)
			if err := i.backend.SetIndexTemplatesFieldLimit(ctx, tmpl.Name, totalFieldsLimit); err != nil {
				return installError(KindComponentTemplate, tmpl.Name, err)
			}
			err = i.backend.PutComponentTemplate(ctx, tmpl)
		}
		if err != nil {
			return installError(KindComponentTemplate, tmpl.Name, err)
		}
		return nil
	})
}

// CreateOrUpdateIndexTemplate installs or replaces an index template.
func (i *Installer) CreateOrUpdateIndexTemplate(ctx context.Context, tmpl resource.IndexTemplate) error {
	return i.observe(ctx, KindIndexTemplate, tmpl.Name, func(ctx context.Context) error {
		i.logger.Info("installing index template", "name", tmpl.Name, "composedOf", tmpl.ComposedOf)
		if err := i.backend.PutIndexTemplate(ctx, tmpl); err != nil {
			return installError(KindIndexTemplate, tmpl.Name, err)
		}
		return nil
	})
}

// CreateConcreteWriteIndex ensures the pattern's alias has a write index.
//
// Existing indices behind the alias get their total fields limit refreshed.
// If one of them is the write index the call is a no-op, if none is it fails.
// Otherwise the first index is created with the alias as its write alias; a
// concurrent creation is accepted when the existing index turns out to be
// the alias's write index.
func (i *Installer) CreateConcreteWriteIndex(ctx context.Context, p resource.IndexPatterns, totalFieldsLimit int) error {
	return i.observe(ctx, KindConcreteIndex, p.Alias, func(ctx context.Context) error {
		existing, err := i.backend.GetAliasedIndices(ctx, p.Alias)
		if err != nil {
			return installError(KindConcreteIndex, p.Alias, fmt.Errorf("error fetching aliases: %w", err))
		}

		if len(existing) > 0 {
			for _, idx := range existing {
				if err := i.backend.UpdateIndexSettings(ctx, idx.Index, totalFieldsLimit); err != nil {
					return installError(KindConcreteIndex, idx.Index, fmt.Errorf("failed to update index settings: %w", err))
				}
			}
			if hasWriteIndex(existing, p.Alias) {
				i.logger.Debug("found write index for alias", "alias", p.Alias)
				return nil
			}
			return installError(KindConcreteIndex, p.Alias, fmt.Errorf(
				"indices matching pattern %s exist but none are set as the write index for alias %s",
				p.Pattern, p.Alias))
		}

		i.logger.Info("creating concrete write index", "index", p.Name, "alias", p.Alias)
		err = i.backend.CreateIndex(ctx, resource.NewConcreteIndex(p, totalFieldsLimit))
		if err == nil {
			return nil
		}
		if !stderrors.Is(err, backend.ErrAlreadyExists) {
			return installError(KindConcreteIndex, p.Name, err)
		}

		existing, aerr := i.backend.GetAliasedIndices(ctx, p.Alias)
		if aerr != nil {
			return installError(KindConcreteIndex, p.Alias, fmt.Errorf("error fetching aliases: %w", aerr))
		}
		if !hasWriteIndex(existing, p.Alias) {
			return installError(KindConcreteIndex, p.Name, fmt.Errorf(
				"attempted to create index %s as the write index for alias %s, but the index already exists and is not the write index for the alias",
				p.Name, p.Alias))
		}
		return nil
	})
}

func hasWriteIndex(indices []resource.AliasedIndex, alias string) bool {
	for _, idx := range indices {
		if idx.Alias == alias && idx.IsWriteIndex {
			return true
		}
	}
	return false
}

func installError(kind, name string, cause error) error {
	return errors.WrapWithContext(errors.ErrCodeResourceInstall,
		fmt.Sprintf("failure during installation of %s %s", kind, name),
		cause,
		map[string]any{
			"kind": kind,
			"name": name,
		})
}

// SpanName returns the span name of an install primitive, for example
// "installer.index_template".
func SpanName(kind string) string {
	return "installer." + strings.ReplaceAll(kind, " ", "_")
}

// observe wraps a primitive with a span and metrics.
func (i *Installer) observe(ctx context.Context, kind, name string, fn func(context.Context) error) error {
	ctx, span := i.tracer.Start(ctx, SpanName(kind),
		trace.WithAttributes(
			attribute.String("resource.kind", kind),
			attribute.String("resource.name", name),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	recordInstall(kind, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
