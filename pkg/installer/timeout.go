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
	"fmt"
	"time"

	"github.com/NVIDIA/alertsd/pkg/errors"
)

// Install is an install primitive bound to its arguments.
type Install func(ctx context.Context) error

// WithTimeout runs fn and returns its result, unless the timeout elapses or
// ctx is canceled first. A timeout of zero or less waits indefinitely.
//
// fn runs on a context detached from ctx's cancellation: when the guard gives
// up, the in-flight request is abandoned, not aborted. If ctx is already
// canceled, fn is not started.
func WithTimeout(ctx context.Context, timeout time.Duration, fn Install) error {
	if err := ctx.Err(); err != nil {
		return stopping(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- fn(context.WithoutCancel(ctx))
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case err := <-done:
		return err
	case <-expired:
		return errors.NewWithContext(errors.ErrCodeTimeout,
			fmt.Sprintf("timeout: it took more than %s", timeout),
			map[string]any{"timeout": timeout.String()})
	case <-ctx.Done():
		return stopping(ctx.Err())
	}
}

func stopping(cause error) error {
	return errors.Wrap(errors.ErrCodeCanceled, "server is stopping; must stop all async operations", cause)
}
