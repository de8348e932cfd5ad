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

	"github.com/NVIDIA/alertsd/pkg/errors"
)

// State is the lifecycle state of an installation.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Outcome is the terminal result of an installation.
type Outcome struct {
	Result bool             `json:"result"`
	Error  string           `json:"error,omitempty"`
	Code   errors.ErrorCode `json:"code,omitempty"`
}

func successResult() Outcome {
	return Outcome{Result: true}
}

func errorResult(code errors.ErrorCode, msg string) Outcome {
	return Outcome{Result: false, Error: msg, Code: code}
}

// outcomeOf converts an install error into an Outcome, keeping its code.
func outcomeOf(err error) Outcome {
	if err == nil {
		return successResult()
	}
	code := errors.CodeOf(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return errorResult(code, err.Error())
}

// Err returns nil for a successful outcome and a StructuredError otherwise.
func (o Outcome) Err() error {
	if o.Result {
		return nil
	}
	return errors.New(o.Code, o.Error)
}

// Future is a pending Outcome shared by every caller interested in it.
type Future struct {
	done    chan struct{}
	outcome Outcome
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func resolvedFuture(o Outcome) *Future {
	f := newFuture()
	f.resolve(o)
	return f
}

// resolve must be called exactly once.
func (f *Future) resolve(o Outcome) {
	f.outcome = o
	close(f.done)
}

// Done is closed once the outcome is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the outcome is available or ctx ends.
func (f *Future) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-f.done:
		return f.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Outcome returns the outcome without blocking. ok is false while pending.
func (f *Future) Outcome() (o Outcome, ok bool) {
	select {
	case <-f.done:
		return f.outcome, true
	default:
		return Outcome{}, false
	}
}
