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
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/alertsd/pkg/backend/memory"
	"github.com/NVIDIA/alertsd/pkg/errors"
	"github.com/NVIDIA/alertsd/pkg/fieldmap"
	"github.com/NVIDIA/alertsd/pkg/registry"
	"github.com/NVIDIA/alertsd/pkg/writer"
)

const waitLimit = 5 * time.Second

func newService(t *testing.T, b *memory.Backend) *Service {
	t.Helper()
	s, err := New(context.Background(), Options{Backend: b, Version: "8.0.0"})
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func waitOutcome(t *testing.T, f *Future) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitLimit)
	defer cancel()
	o, err := f.Wait(ctx)
	require.NoError(t, err, "outcome not resolved in time")
	return o
}

// opsFor returns the recorded operations whose resource name mentions the
// given context.
func opsFor(b *memory.Backend, context string) []memory.Operation {
	var out []memory.Operation
	for _, op := range b.Operations() {
		if strings.Contains(op.Name, "-"+context+"-") || strings.Contains(op.Name, "-"+context+".") {
			out = append(out, op)
		}
	}
	return out
}

func opNames(ops []memory.Operation) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.Op)
	}
	return out
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRequest))
}

func TestCommonInitialization(t *testing.T) {
	b := memory.New()
	s := newService(t, b)

	o := waitOutcome(t, s.CommonInitialization())
	require.True(t, o.Result, o.Error)
	assert.True(t, s.IsInitialized())
	assert.Equal(t, StateSucceeded, s.CommonState())

	assert.Equal(t, 1, b.Count(memory.OpPutLifecyclePolicy))
	assert.Equal(t, 3, b.Count(memory.OpPutComponentTemplate))
	for _, name := range []string{".alerts-framework-mappings", ".alerts-legacy-alert-mappings", ".alerts-ecs-mappings"} {
		tmpl, ok := b.ComponentTemplate(name)
		require.True(t, ok, name)
		assert.NotNil(t, tmpl.Template.Settings, name)
	}
}

func TestRegisterQueuesDefaultNamespace(t *testing.T) {
	b := memory.New()
	s := newService(t, b)

	before := testutil.ToFloat64(registeredContexts)
	require.NoError(t, s.Register(registry.Definition{Context: "alpha"}, 0))
	assert.Equal(t, before+1, testutil.ToFloat64(registeredContexts))
	assert.True(t, s.IsRegistered("alpha"))
	assert.False(t, s.IsRegistered("beta"))

	o := waitOutcome(t, s.ContextInitialization("alpha", "default"))
	require.True(t, o.Result, o.Error)

	_, ok := b.IndexTemplate(".alerts-alpha.alerts-default-index-template")
	assert.True(t, ok)
	_, ok = b.IndexSettings(".internal.alerts-alpha.alerts-default-000001")
	assert.True(t, ok)
}

func TestRegisterIdenticalDefinitionIsNoop(t *testing.T) {
	b := memory.New()
	s := newService(t, b)
	def := registry.Definition{Context: "alpha", IsSpaceAware: true}

	before := testutil.ToFloat64(registeredContexts)
	require.NoError(t, s.Register(def, 0))
	require.NoError(t, s.Register(def, 0))
	assert.Equal(t, before+1, testutil.ToFloat64(registeredContexts))

	o := waitOutcome(t, s.ContextInitialization("alpha", "default"))
	require.True(t, o.Result, o.Error)
	assert.Equal(t, 1, countOp(opsFor(b, "alpha"), memory.OpPutIndexTemplate))
}

func TestRegisterConflictKeepsOriginal(t *testing.T) {
	s := newService(t, memory.New())

	require.NoError(t, s.Register(registry.Definition{Context: "alpha"}, 0))
	err := s.Register(registry.Definition{Context: "alpha", UseECS: true}, 0)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
	assert.Contains(t, err.Error(), "alpha has already been registered with different options")

	def, ok := s.Lookup("alpha")
	require.True(t, ok)
	assert.False(t, def.UseECS)
}

func TestRegisterInvalidDefinition(t *testing.T) {
	s := newService(t, memory.New())

	err := s.Register(registry.Definition{Context: "framework"}, 0)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRequest))
	assert.False(t, s.IsRegistered("framework"))
}

func TestContextInitializationUnregistered(t *testing.T) {
	b := memory.New()
	s := newService(t, b)
	waitOutcome(t, s.CommonInitialization())
	calls := len(b.Operations())

	f := s.ContextInitialization("missing", "default")
	o, ok := f.Outcome()
	require.True(t, ok, "unregistered context must resolve immediately")
	assert.False(t, o.Result)
	assert.Equal(t, errors.ErrCodeUnregisteredContext, o.Code)
	assert.Equal(t, "Error getting initialized status for context missing - context has not been registered.", o.Error)
	assert.Len(t, b.Operations(), calls)
	assert.Empty(t, s.Status())
}

func TestContextWithoutFields(t *testing.T) {
	b := memory.New()
	s := newService(t, b)

	require.NoError(t, s.Register(registry.Definition{Context: "alpha"}, 0))
	o := waitOutcome(t, s.ContextInitialization("alpha", "default"))
	require.True(t, o.Result, o.Error)

	assert.Equal(t,
		[]string{memory.OpPutIndexTemplate, memory.OpGetAliasedIndices, memory.OpCreateIndex},
		opNames(opsFor(b, "alpha")))

	tmpl, ok := b.IndexTemplate(".alerts-alpha.alerts-default-index-template")
	require.True(t, ok)
	assert.Equal(t, []string{".alerts-framework-mappings"}, tmpl.ComposedOf)
}

func TestContextWithFields(t *testing.T) {
	b := memory.New()
	s := newService(t, b)

	def := registry.Definition{
		Context: "beta",
		Mappings: fieldmap.Mappings{FieldMap: fieldmap.FieldMap{
			"beta.score": {Type: "long"},
		}},
	}
	require.NoError(t, s.Register(def, 0))
	o := waitOutcome(t, s.ContextInitialization("beta", "default"))
	require.True(t, o.Result, o.Error)

	assert.Equal(t,
		[]string{memory.OpPutComponentTemplate, memory.OpPutIndexTemplate, memory.OpGetAliasedIndices, memory.OpCreateIndex},
		opNames(opsFor(b, "beta")))

	tmpl, ok := b.IndexTemplate(".alerts-beta.alerts-default-index-template")
	require.True(t, ok)
	assert.Equal(t, []string{".alerts-beta-mappings", ".alerts-framework-mappings"}, tmpl.ComposedOf)
}

func TestComponentTemplateRefs(t *testing.T) {
	tests := []struct {
		name string
		def  registry.Definition
		want []string
	}{
		{
			name: "framework only",
			def:  registry.Definition{Context: "a"},
			want: []string{".alerts-framework-mappings"},
		},
		{
			name: "all layers",
			def: registry.Definition{
				Context:         "a",
				UseECS:          true,
				UseLegacyAlerts: true,
				Mappings:        fieldmap.Mappings{FieldMap: fieldmap.FieldMap{"x": {Type: "keyword"}}},
			},
			want: []string{
				".alerts-ecs-mappings",
				".alerts-a-mappings",
				".alerts-legacy-alert-mappings",
				".alerts-framework-mappings",
			},
		},
		{
			name: "legacy without fields",
			def:  registry.Definition{Context: "a", UseLegacyAlerts: true},
			want: []string{".alerts-legacy-alert-mappings", ".alerts-framework-mappings"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, componentTemplateRefs(tt.def))
		})
	}
}

func TestConcurrentCallersShareOneAttempt(t *testing.T) {
	b := memory.New()
	s := newService(t, b)
	require.NoError(t, s.Register(registry.Definition{Context: "alpha", IsSpaceAware: true}, 0))

	const callers = 50
	futures := make([]*Future, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			futures[i] = s.ContextInitialization("alpha", "space1")
		}()
	}
	wg.Wait()

	for _, f := range futures {
		assert.Same(t, futures[0], f)
	}
	o := waitOutcome(t, futures[0])
	require.True(t, o.Result, o.Error)

	var calls int
	for _, op := range b.Operations() {
		if op.Op == memory.OpPutIndexTemplate && op.Name == ".alerts-alpha.alerts-space1-index-template" {
			calls++
		}
	}
	assert.Equal(t, 1, calls)
}

func TestLazyNamespaceProvisioning(t *testing.T) {
	b := memory.New()
	s := newService(t, b)
	require.NoError(t, s.Register(registry.Definition{Context: "alpha", IsSpaceAware: true}, 0))

	first := s.ContextInitialization("alpha", "space1")
	o := waitOutcome(t, first)
	require.True(t, o.Result, o.Error)
	assert.Same(t, first, s.ContextInitialization("alpha", "space1"))

	_, ok := b.IndexTemplate(".alerts-alpha.alerts-space1-index-template")
	assert.True(t, ok)

	var namespaces []string
	for _, st := range s.Status() {
		namespaces = append(namespaces, st.Namespace)
	}
	assert.Equal(t, []string{"default", "space1"}, namespaces)
}

func TestInvalidNamespaceIsRejected(t *testing.T) {
	b := memory.New()
	s := newService(t, b)
	require.NoError(t, s.Register(registry.Definition{Context: "alpha", IsSpaceAware: true}, 0))
	require.True(t, waitOutcome(t, s.ContextInitialization("alpha", "default")).Result)

	for _, ns := range []string{"*", "space-*", "Space1", "..", "a/b", "space.1", strings.Repeat("a", 101)} {
		t.Run(ns, func(t *testing.T) {
			o := waitOutcome(t, s.ContextInitialization("alpha", ns))
			assert.False(t, o.Result)
			assert.Equal(t, errors.ErrCodeInvalidRequest, o.Code)

			_, err := s.Patterns("alpha", ns)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRequest), "got %v", err)
		})
	}

	assert.Len(t, s.Status(), 1, "rejected namespaces must not be cached")
	for _, op := range b.Operations() {
		assert.NotContains(t, op.Name, "*")
	}

	// a later legitimate namespace still installs
	assert.True(t, waitOutcome(t, s.ContextInitialization("alpha", "space1")).Result)
}

func TestInvalidNamespaceIgnoredWhenNotSpaceAware(t *testing.T) {
	s := newService(t, memory.New())
	require.NoError(t, s.Register(registry.Definition{Context: "alpha"}, 0))

	o := waitOutcome(t, s.ContextInitialization("alpha", "*"))
	assert.True(t, o.Result, o.Error)
	assert.Same(t, s.ContextInitialization("alpha", ""), s.ContextInitialization("alpha", "*"))
}

func TestNonSpaceAwareUsesDefaultNamespace(t *testing.T) {
	b := memory.New()
	s := newService(t, b)
	require.NoError(t, s.Register(registry.Definition{Context: "alpha"}, 0))

	def := s.ContextInitialization("alpha", "default")
	assert.Same(t, def, s.ContextInitialization("alpha", "space1"))
	assert.Same(t, def, s.ContextInitialization("alpha", ""))
	waitOutcome(t, def)

	for _, op := range b.Operations() {
		assert.NotContains(t, op.Name, "space1")
	}
	assert.Len(t, s.Status(), 1)
}

func TestCommonFailurePropagates(t *testing.T) {
	b := memory.New(memory.WithHook(func(_ context.Context, op, _ string) error {
		if op == memory.OpPutLifecyclePolicy {
			return stderrors.New("cluster unavailable")
		}
		return nil
	}))
	s := newService(t, b)
	require.NoError(t, s.Register(registry.Definition{Context: "alpha"}, 0))
	require.NoError(t, s.Register(registry.Definition{Context: "beta"}, 0))

	common := waitOutcome(t, s.CommonInitialization())
	assert.False(t, common.Result)
	assert.Equal(t, errors.ErrCodeResourceInstall, common.Code)
	assert.False(t, s.IsInitialized())
	assert.Equal(t, StateFailed, s.CommonState())

	for _, name := range []string{"alpha", "beta"} {
		o := waitOutcome(t, s.ContextInitialization(name, "default"))
		assert.False(t, o.Result)
		assert.True(t, strings.HasPrefix(o.Error,
			"Failure during installation of common resources shared by all indices. "), o.Error)
		assert.Contains(t, o.Error, "cluster unavailable")
		assert.Empty(t, opsFor(b, name))
	}
}

func TestContextFailureIsIsolated(t *testing.T) {
	b := memory.New(memory.WithHook(func(_ context.Context, op, name string) error {
		if op == memory.OpCreateIndex && strings.Contains(name, "-alpha.") {
			return stderrors.New("disk full")
		}
		return nil
	}))
	s := newService(t, b)
	require.NoError(t, s.Register(registry.Definition{Context: "alpha"}, 0))
	require.NoError(t, s.Register(registry.Definition{Context: "beta"}, 0))

	alpha := waitOutcome(t, s.ContextInitialization("alpha", "default"))
	assert.False(t, alpha.Result)
	assert.Equal(t, errors.ErrCodeResourceInstall, alpha.Code)
	assert.Contains(t, alpha.Error, "disk full")

	beta := waitOutcome(t, s.ContextInitialization("beta", "default"))
	assert.True(t, beta.Result, beta.Error)
	assert.True(t, s.IsInitialized())
}

func TestTimeoutIsCachedAndNotRetried(t *testing.T) {
	release := make(chan struct{})
	b := memory.New(memory.WithHook(func(_ context.Context, op, name string) error {
		if op == memory.OpPutIndexTemplate && strings.Contains(name, "-gamma.") {
			<-release
		}
		return nil
	}))
	s := newService(t, b)
	require.NoError(t, s.Register(registry.Definition{Context: "gamma"}, 50*time.Millisecond))

	f := s.ContextInitialization("gamma", "default")
	o := waitOutcome(t, f)
	assert.False(t, o.Result)
	assert.Equal(t, errors.ErrCodeTimeout, o.Code)
	assert.Contains(t, o.Error, "timeout: it took more than 50ms")

	close(release)
	assert.Same(t, f, s.ContextInitialization("gamma", "default"))
	again := waitOutcome(t, s.ContextInitialization("gamma", "default"))
	assert.Equal(t, o, again)

	assert.Equal(t, 1, countOp(opsFor(b, "gamma"), memory.OpPutIndexTemplate))
	assert.Zero(t, countOp(opsFor(b, "gamma"), memory.OpCreateIndex))
}

func TestStopCancelsPendingInstalls(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	b := memory.New(memory.WithHook(func(_ context.Context, op, _ string) error {
		if op == memory.OpPutLifecyclePolicy {
			<-release
		}
		return nil
	}))
	s := newService(t, b)
	require.NoError(t, s.Register(registry.Definition{Context: "alpha"}, 0))

	s.Stop()

	common := waitOutcome(t, s.CommonInitialization())
	assert.False(t, common.Result)
	assert.Equal(t, errors.ErrCodeCanceled, common.Code)

	o := waitOutcome(t, s.ContextInitialization("alpha", "default"))
	assert.False(t, o.Result)
	assert.Contains(t, o.Error, "server is stopping")
}

func TestParentContextCancellationStops(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	b := memory.New(memory.WithHook(func(_ context.Context, op, _ string) error {
		if op == memory.OpPutLifecyclePolicy {
			<-release
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	s, err := New(ctx, Options{Backend: b})
	require.NoError(t, err)
	cancel()

	o := waitOutcome(t, s.CommonInitialization())
	assert.Equal(t, errors.ErrCodeCanceled, o.Code)
}

func TestEffectiveFieldMap(t *testing.T) {
	s := newService(t, memory.New())
	require.NoError(t, s.Register(registry.Definition{
		Context:         "alpha",
		UseECS:          true,
		UseLegacyAlerts: true,
		Mappings: fieldmap.Mappings{FieldMap: fieldmap.FieldMap{
			"alpha.value":  {Type: "double"},
			"event.action": {Type: "text"},
		}},
	}, 0))

	fm, err := s.EffectiveFieldMap("alpha")
	require.NoError(t, err)
	assert.Equal(t, "double", fm["alpha.value"].Type)
	assert.Equal(t, fieldmap.Framework["event.action"], fm["event.action"])
	for k := range fieldmap.LegacyAlert {
		assert.Contains(t, fm, k)
	}

	_, err = s.EffectiveFieldMap("missing")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnregisteredContext))
}

func TestAcquireWriter(t *testing.T) {
	b := memory.New()
	s := newService(t, b)
	require.NoError(t, s.Register(registry.Definition{Context: "alpha", IsSpaceAware: true}, 0))
	ctx := context.Background()

	t.Run("skip writes", func(t *testing.T) {
		w, err := s.AcquireWriter(ctx, "alpha", "default", Consumer{SkipWrites: true})
		require.NoError(t, err)
		assert.Nil(t, w)
	})

	t.Run("ready", func(t *testing.T) {
		rule := writer.Rule{ID: "rule-1", Name: "cpu", TypeID: "metrics.threshold", Consumer: "infra"}
		w, err := s.AcquireWriter(ctx, "alpha", "space1", Consumer{Rule: rule})
		require.NoError(t, err)
		require.NotNil(t, w)
		assert.Equal(t, "alpha", w.Context())
		assert.Equal(t, "space1", w.Namespace())
		assert.Equal(t, ".alerts-alpha.alerts-space1", w.Alias())

		ids, err := w.Write(ctx, []map[string]any{{"message": "high cpu"}})
		require.NoError(t, err)
		require.Len(t, ids, 1)

		docs := b.Documents(".internal.alerts-alpha.alerts-space1-000001")
		require.Len(t, docs, 1)
		assert.Equal(t, ids[0], docs[0][writer.FieldAlertUUID])
	})

	t.Run("unregistered", func(t *testing.T) {
		w, err := s.AcquireWriter(ctx, "missing", "default", Consumer{})
		require.NoError(t, err)
		assert.Nil(t, w)
	})
}

func TestAcquireWriterInitializationFailed(t *testing.T) {
	b := memory.New(memory.WithHook(func(_ context.Context, op, _ string) error {
		if op == memory.OpCreateIndex {
			return stderrors.New("disk full")
		}
		return nil
	}))
	logs := &syncBuffer{}
	s, err := New(context.Background(), Options{
		Backend: b,
		Logger:  slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	require.NoError(t, s.Register(registry.Definition{Context: "alpha"}, 0))

	w, err := s.AcquireWriter(context.Background(), "alpha", "default", Consumer{})
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.Equal(t, 1, b.Count(memory.OpCreateIndex))

	var warning map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		if rec["msg"] == "error installing namespace-level resources" {
			warning = rec
		}
	}
	require.NotNil(t, warning, logs.String())
	assert.Equal(t, "alpha", warning["context"])
	assert.Equal(t, "default", warning["namespace"])
	assert.Equal(t, string(errors.ErrCodeResourceInstall), warning["code"])
	assert.Contains(t, warning["error"], "disk full")
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a logger.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAcquireWriterCallerContextEnds(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	b := memory.New(memory.WithHook(func(_ context.Context, op, _ string) error {
		if op == memory.OpPutLifecyclePolicy {
			<-release
		}
		return nil
	}))
	s := newService(t, b)
	require.NoError(t, s.Register(registry.Definition{Context: "alpha"}, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	w, err := s.AcquireWriter(ctx, "alpha", "default", Consumer{})
	assert.Nil(t, w)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStatusReportsStates(t *testing.T) {
	release := make(chan struct{})
	b := memory.New(memory.WithHook(func(_ context.Context, op, name string) error {
		if op == memory.OpPutIndexTemplate && strings.Contains(name, "-beta.") {
			<-release
		}
		return nil
	}))
	s := newService(t, b)
	require.NoError(t, s.Register(registry.Definition{Context: "alpha"}, 0))
	require.NoError(t, s.Register(registry.Definition{Context: "beta"}, 0))

	waitOutcome(t, s.ContextInitialization("alpha", "default"))
	require.Eventually(t, func() bool {
		for _, st := range s.Status() {
			if st.Context == "beta" {
				return st.State == StateRunning
			}
		}
		return false
	}, waitLimit, 5*time.Millisecond)

	status := s.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "alpha", status[0].Context)
	assert.Equal(t, StateSucceeded, status[0].State)
	assert.NotNil(t, status[0].FinishedAt)
	assert.Nil(t, status[1].FinishedAt)

	close(release)
	waitOutcome(t, s.ContextInitialization("beta", "default"))
	assert.Equal(t, StateSucceeded, s.Status()[1].State)
}

func TestOutcomeErr(t *testing.T) {
	assert.NoError(t, successResult().Err())

	err := errorResult(errors.ErrCodeTimeout, "timeout: it took more than 1s").Err()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
	assert.Contains(t, err.Error(), "timeout: it took more than 1s")
}

func countOp(ops []memory.Operation, op string) int {
	n := 0
	for _, o := range ops {
		if o.Op == op {
			n++
		}
	}
	return n
}
