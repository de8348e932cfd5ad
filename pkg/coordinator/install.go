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

package coordinator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/alertsd/pkg/defaults"
	"github.com/NVIDIA/alertsd/pkg/fieldmap"
	"github.com/NVIDIA/alertsd/pkg/installer"
	"github.com/NVIDIA/alertsd/pkg/registry"
	"github.com/NVIDIA/alertsd/pkg/resource"
)

// Span names.
const (
	SpanCommon  = "coordinator.common"
	SpanContext = "coordinator.context"
)

type step struct {
	name string
	fn   installer.Install
}

// commonSteps lists the resources shared by every context.
func (s *Service) commonSteps() []step {
	component := func(name string, fm fieldmap.FieldMap) step {
		tmpl := resource.NewComponentTemplate(resource.ComponentTemplateOptions{
			Name:            name,
			FieldMap:        fm,
			Dynamic:         fieldmap.DynamicStrict,
			IncludeSettings: true,
		})
		return step{name: tmpl.Name, fn: func(ctx context.Context) error {
			return s.installer.CreateOrUpdateComponentTemplate(ctx, tmpl, defaults.TotalFieldsLimit)
		}}
	}

	return []step{
		{name: s.policy.Name, fn: func(ctx context.Context) error {
			return s.installer.CreateOrUpdateLifecyclePolicy(ctx, s.policy)
		}},
		component(resource.FrameworkContext, fieldmap.Framework),
		component(resource.LegacyAlertContext, fieldmap.LegacyAlert),
		component(resource.ECSContext, fieldmap.ECS),
	}
}

// runCommon installs the shared resources in parallel and resolves the
// common future. The first failure decides the outcome.
func (s *Service) runCommon() {
	ctx, span := s.tracer.Start(s.ctx, SpanCommon)

	start := time.Now()
	s.logger.Debug("initializing common resources")

	g, gctx := errgroup.WithContext(ctx)
	for _, st := range s.commonSteps() {
		g.Go(func() error {
			return installer.WithTimeout(gctx, s.timeout, st.fn)
		})
	}
	err := g.Wait()

	o := outcomeOf(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("error installing common resources", "error", err)
	} else {
		s.logger.Info("common resources installed", "duration", time.Since(start))
	}
	span.End()
	recordOutcome(scopeCommon, o)
	s.common.resolve(o)
}

// contextSteps lists the installs of one (context, namespace) pair in order.
func (s *Service) contextSteps(def registry.Definition, namespace string) []step {
	patterns := resource.IndexPatternsFor(def.Context, namespace, def.SecondaryAlias)
	var steps []step

	if !def.Mappings.IsEmpty() {
		tmpl := resource.NewComponentTemplate(resource.ComponentTemplateOptions{
			Name:     def.Context,
			FieldMap: def.Mappings.FieldMap,
			Dynamic:  def.Mappings.Dynamic,
		})
		steps = append(steps, step{name: tmpl.Name, fn: func(ctx context.Context) error {
			return s.installer.CreateOrUpdateComponentTemplate(ctx, tmpl, defaults.TotalFieldsLimit)
		}})
	}

	index := resource.NewIndexTemplate(resource.IndexTemplateOptions{
		Patterns:         patterns,
		ComponentRefs:    componentTemplateRefs(def),
		PolicyName:       s.policy.Name,
		Version:          s.version,
		Namespace:        namespace,
		TotalFieldsLimit: defaults.TotalFieldsLimit,
	})
	steps = append(steps,
		step{name: index.Name, fn: func(ctx context.Context) error {
			return s.installer.CreateOrUpdateIndexTemplate(ctx, index)
		}},
		step{name: patterns.Name, fn: func(ctx context.Context) error {
			return s.installer.CreateConcreteWriteIndex(ctx, patterns, defaults.TotalFieldsLimit)
		}},
	)
	return steps
}

// initializeContext runs the installs of one (context, namespace) pair,
// stopping at the first failure.
func (s *Service) initializeContext(ctx context.Context, def registry.Definition, namespace string, timeout time.Duration) error {
	ctx, span := s.tracer.Start(ctx, SpanContext)
	defer span.End()
	span.SetAttributes(
		attribute.String("alerts.context", def.Context),
		attribute.String("alerts.namespace", namespace),
	)

	s.logger.Debug("initializing context", "context", def.Context, "namespace", namespace)
	for _, st := range s.contextSteps(def, namespace) {
		if err := installer.WithTimeout(ctx, timeout, st.fn); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Debug("context install step failed",
				"context", def.Context,
				"namespace", namespace,
				"step", st.name)
			return err
		}
	}
	s.logger.Info("context initialized", "context", def.Context, "namespace", namespace)
	return nil
}

// componentTemplateRefs returns the composed_of list of a context. The
// backend applies it last-wins, so the framework template always wins.
func componentTemplateRefs(def registry.Definition) []string {
	var refs []string
	if def.UseECS {
		refs = append(refs, resource.ComponentTemplateName(resource.ECSContext))
	}
	if !def.Mappings.IsEmpty() {
		refs = append(refs, resource.ComponentTemplateName(def.Context))
	}
	if def.UseLegacyAlerts {
		refs = append(refs, resource.ComponentTemplateName(resource.LegacyAlertContext))
	}
	return append(refs, resource.ComponentTemplateName(resource.FrameworkContext))
}
