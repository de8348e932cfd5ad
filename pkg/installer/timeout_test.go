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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/alertsd/pkg/errors"
)

func TestWithTimeoutReturnsResult(t *testing.T) {
	boom := stderrors.New("boom")

	err := WithTimeout(context.Background(), 0, func(context.Context) error { return nil })
	assert.NoError(t, err)

	err = WithTimeout(context.Background(), time.Second, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestWithTimeoutExpires(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	err := WithTimeout(context.Background(), 20*time.Millisecond, func(context.Context) error {
		<-release
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
	assert.Contains(t, err.Error(), "timeout")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWithTimeoutShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	var innerCtx context.Context
	errCh := make(chan error, 1)
	go func() {
		errCh <- WithTimeout(ctx, 0, func(c context.Context) error {
			innerCtx = c
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeCanceled))
	case <-time.After(5 * time.Second):
		t.Fatal("guard did not resolve after shutdown")
	}

	// the abandoned call keeps a live context
	assert.NoError(t, innerCtx.Err())
}

func TestWithTimeoutAlreadyStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := WithTimeout(ctx, 0, func(context.Context) error {
		called = true
		return nil
	})

	assert.True(t, errors.IsCode(err, errors.ErrCodeCanceled))
	assert.False(t, called)
}

func TestResultLabel(t *testing.T) {
	assert.Equal(t, "success", resultLabel(nil))
	assert.Equal(t, "TIMEOUT", resultLabel(errors.New(errors.ErrCodeTimeout, "x")))
	assert.Equal(t, "error", resultLabel(stderrors.New("x")))
}
