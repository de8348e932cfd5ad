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
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/NVIDIA/alertsd/pkg/backend"
	"github.com/NVIDIA/alertsd/pkg/defaults"
	"github.com/NVIDIA/alertsd/pkg/errors"
	"github.com/NVIDIA/alertsd/pkg/fieldmap"
	"github.com/NVIDIA/alertsd/pkg/installer"
	"github.com/NVIDIA/alertsd/pkg/registry"
	"github.com/NVIDIA/alertsd/pkg/resource"
)

// Options configures a Service.
type Options struct {
	// Backend receives every install request. Required.
	Backend backend.Backend

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Version is stamped into index template metadata.
	Version string

	// Timeout bounds each install primitive of the common installation and of
	// contexts registered without their own timeout. Zero waits indefinitely.
	Timeout time.Duration

	// LifecyclePolicy overrides the default shared lifecycle policy.
	LifecyclePolicy *resource.LifecyclePolicy

	// TracerProvider receives coordinator and installer spans. Defaults to
	// the global provider.
	TracerProvider trace.TracerProvider
}

// TracerName is the instrumentation scope of coordinator spans.
const TracerName = "github.com/NVIDIA/alertsd/pkg/coordinator"

// Service coordinates resource installation for every registered context.
type Service struct {
	ctx       context.Context
	cancel    context.CancelFunc
	backend   backend.Backend
	installer *installer.Installer
	logger    *slog.Logger
	tracer    trace.Tracer
	version   string
	timeout   time.Duration
	policy    resource.LifecyclePolicy

	// regMu orders registration against lazy provisioning of the same key.
	regMu    sync.Mutex
	registry *registry.Registry
	timeouts *timeoutTable
	common   *Future
	helper   *installationHelper
}

// New creates the Service and starts the common installation. Canceling ctx
// has the same effect as Stop.
func New(ctx context.Context, opts Options) (*Service, error) {
	if opts.Backend == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	policy := resource.DefaultLifecyclePolicy()
	if opts.LifecyclePolicy != nil {
		policy = *opts.LifecyclePolicy
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Service{
		ctx:       sctx,
		cancel:    cancel,
		backend:   opts.Backend,
		installer: installer.New(opts.Backend, installer.WithLogger(logger), installer.WithTracerProvider(tp)),
		logger:    logger,
		tracer:    tp.Tracer(TracerName),
		version:   opts.Version,
		timeout:   opts.Timeout,
		policy:    policy,
		registry:  registry.New(),
		timeouts:  newTimeoutTable(),
		common:    newFuture(),
	}
	s.helper = newInstallationHelper(sctx, logger, s.common, s.initializeContext)

	go s.runCommon()
	return s, nil
}

// Stop signals shutdown. Pending install guards resolve with CANCELED.
func (s *Service) Stop() {
	s.cancel()
}

// Register adds a context definition and queues its default namespace
// installation. Registering an identical definition again is a no-op; a
// different definition under the same name is a CONFLICT error. A timeout
// of zero uses the service timeout.
func (s *Service) Register(def registry.Definition, timeout time.Duration) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	added, err := s.registry.Register(def)
	if err != nil {
		return err
	}
	if !added {
		s.logger.Debug("context already registered", "context", def.Context)
		return nil
	}
	registeredContexts.Inc()

	if timeout <= 0 {
		timeout = s.timeout
	}
	s.timeouts.set(def.Context, timeout)

	s.logger.Info("registered context",
		"context", def.Context,
		"spaceAware", def.IsSpaceAware,
		"fields", len(def.Mappings.FieldMap))

	stored, _ := s.registry.Lookup(def.Context)
	s.helper.add(stored, defaults.DefaultNamespace, timeout)
	return nil
}

// IsRegistered reports whether a context has been registered.
func (s *Service) IsRegistered(context string) bool {
	return s.registry.IsRegistered(context)
}

// Lookup returns a copy of a registered definition.
func (s *Service) Lookup(context string) (registry.Definition, bool) {
	return s.registry.Lookup(context)
}

// Contexts returns the registered context names in order.
func (s *Service) Contexts() []string {
	return s.registry.Contexts()
}

// IsInitialized reports whether the common installation succeeded.
func (s *Service) IsInitialized() bool {
	o, ok := s.common.Outcome()
	return ok && o.Result
}

// CommonInitialization returns the common installation future.
func (s *Service) CommonInitialization() *Future {
	return s.common
}

// ContextInitialization returns the installation future for a context in a
// namespace. Unregistered contexts resolve immediately with an
// UNREGISTERED_CONTEXT failure. Contexts that are not space aware always use
// the default namespace; for the others, the first lookup of a namespace
// starts its installation. An invalid namespace resolves immediately with an
// INVALID_REQUEST failure and is not cached.
func (s *Service) ContextInitialization(context, namespace string) *Future {
	def, ok := s.registry.Lookup(context)
	if !ok {
		o := unregistered(context)
		s.logger.Error(o.Error)
		return resolvedFuture(o)
	}

	ns := ResolveNamespace(def, namespace)
	if err := resource.ValidateNamespace(ns); err != nil {
		s.logger.Warn("rejected namespace", "context", context, "namespace", ns, "error", err)
		return resolvedFuture(outcomeOf(err))
	}
	if f, ok := s.helper.get(context, ns); ok {
		return f
	}

	s.regMu.Lock()
	defer s.regMu.Unlock()
	s.logger.Debug("provisioning new namespace", "context", context, "namespace", ns)
	return s.helper.add(def, ns, s.timeouts.get(context, s.timeout))
}

// EffectiveFieldMap returns the fields a context's indices end up with, in
// the order the index template composes its component templates.
func (s *Service) EffectiveFieldMap(context string) (fieldmap.FieldMap, error) {
	def, ok := s.registry.Lookup(context)
	if !ok {
		return nil, unregistered(context).Err()
	}

	var layers []fieldmap.FieldMap
	if def.UseECS {
		layers = append(layers, fieldmap.ECS)
	}
	if !def.Mappings.IsEmpty() {
		layers = append(layers, def.Mappings.FieldMap)
	}
	if def.UseLegacyAlerts {
		layers = append(layers, fieldmap.LegacyAlert)
	}
	layers = append(layers, fieldmap.Framework)
	return fieldmap.Merge(layers...), nil
}

// CommonState returns the state of the common installation.
func (s *Service) CommonState() State {
	o, ok := s.common.Outcome()
	switch {
	case !ok:
		return StateRunning
	case o.Result:
		return StateSucceeded
	default:
		return StateFailed
	}
}

// Status returns a snapshot of every (context, namespace) installation.
func (s *Service) Status() []TaskStatus {
	return s.helper.statuses()
}

// Patterns returns the index names of a context in a namespace, after
// namespace resolution. An invalid namespace is an INVALID_REQUEST error.
func (s *Service) Patterns(context, namespace string) (resource.IndexPatterns, error) {
	def, ok := s.registry.Lookup(context)
	if !ok {
		return resource.IndexPatterns{}, unregistered(context).Err()
	}
	ns := ResolveNamespace(def, namespace)
	if err := resource.ValidateNamespace(ns); err != nil {
		return resource.IndexPatterns{}, err
	}
	return resource.IndexPatternsFor(def.Context, ns, def.SecondaryAlias), nil
}

// ResolveNamespace returns the namespace a context's resources live in.
// Contexts that are not space aware always use the default namespace.
func ResolveNamespace(def registry.Definition, namespace string) string {
	if !def.IsSpaceAware || namespace == "" {
		return defaults.DefaultNamespace
	}
	return namespace
}
