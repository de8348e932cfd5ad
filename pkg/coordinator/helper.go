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
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/NVIDIA/alertsd/pkg/errors"
	"github.com/NVIDIA/alertsd/pkg/registry"
)

type taskKey struct {
	context   string
	namespace string
}

func (k taskKey) String() string {
	return k.context + "_" + k.namespace
}

type task struct {
	key        taskKey
	future     *Future
	state      State
	startedAt  time.Time
	finishedAt time.Time
}

// TaskStatus is a point-in-time view of one (context, namespace) installation.
type TaskStatus struct {
	Context    string     `json:"context"`
	Namespace  string     `json:"namespace"`
	State      State      `json:"state"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

type contextInitFn func(ctx context.Context, def registry.Definition, namespace string, timeout time.Duration) error

// installationHelper owns the per-key task cache. Each key gets exactly one
// task; the task waits for the common installation before running.
type installationHelper struct {
	ctx    context.Context
	logger *slog.Logger
	common *Future
	initFn contextInitFn

	mu    sync.Mutex
	tasks map[taskKey]*task
}

func newInstallationHelper(ctx context.Context, logger *slog.Logger, common *Future, fn contextInitFn) *installationHelper {
	return &installationHelper{
		ctx:    ctx,
		logger: logger,
		common: common,
		initFn: fn,
		tasks:  map[taskKey]*task{},
	}
}

// add returns the task future for (def.Context, namespace), starting the
// task if this is the first request for the key.
func (h *installationHelper) add(def registry.Definition, namespace string, timeout time.Duration) *Future {
	key := taskKey{context: def.Context, namespace: namespace}

	h.mu.Lock()
	if t, ok := h.tasks[key]; ok {
		h.mu.Unlock()
		return t.future
	}
	t := &task{key: key, future: newFuture(), state: StatePending}
	h.tasks[key] = t
	h.mu.Unlock()

	go h.run(t, def, timeout)
	return t.future
}

// get returns the future of an existing task.
func (h *installationHelper) get(context, namespace string) (*Future, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.tasks[taskKey{context: context, namespace: namespace}]
	if !ok {
		return nil, false
	}
	return t.future, true
}

func (h *installationHelper) run(t *task, def registry.Definition, timeout time.Duration) {
	common, _ := h.common.Wait(context.Background())
	if !common.Result {
		h.finish(t, errorResult(common.Code, fmt.Sprintf(
			"Failure during installation of common resources shared by all indices. %s", common.Error)))
		return
	}

	h.mu.Lock()
	t.state = StateRunning
	t.startedAt = time.Now()
	h.mu.Unlock()

	err := h.initFn(h.ctx, def, t.key.namespace, timeout)
	if err != nil {
		h.logger.Error("error initializing context",
			"context", t.key.context,
			"namespace", t.key.namespace,
			"error", err)
	}
	h.finish(t, outcomeOf(err))
}

func (h *installationHelper) finish(t *task, o Outcome) {
	h.mu.Lock()
	t.finishedAt = time.Now()
	if o.Result {
		t.state = StateSucceeded
	} else {
		t.state = StateFailed
	}
	h.mu.Unlock()

	recordOutcome(scopeContext, o)
	t.future.resolve(o)
}

// statuses returns every task ordered by context then namespace.
func (h *installationHelper) statuses() []TaskStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	keys := slices.SortedFunc(maps.Keys(h.tasks), func(a, b taskKey) int {
		if c := strings.Compare(a.context, b.context); c != 0 {
			return c
		}
		return strings.Compare(a.namespace, b.namespace)
	})

	out := make([]TaskStatus, 0, len(keys))
	for _, k := range keys {
		t := h.tasks[k]
		st := TaskStatus{Context: k.context, Namespace: k.namespace, State: t.state}
		if o, ok := t.future.Outcome(); ok && !o.Result {
			st.Error = o.Error
		}
		if !t.startedAt.IsZero() {
			st.StartedAt = &t.startedAt
		}
		if !t.finishedAt.IsZero() {
			st.FinishedAt = &t.finishedAt
		}
		out = append(out, st)
	}
	return out
}

func unregistered(context string) Outcome {
	return errorResult(errors.ErrCodeUnregisteredContext, fmt.Sprintf(
		"Error getting initialized status for context %s - context has not been registered.", context))
}
