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
	"sync"
	"time"
)

// timeoutTable keeps the install timeout chosen at registration, so that
// lazily provisioned namespaces reuse it.
type timeoutTable struct {
	mu sync.RWMutex
	m  map[string]time.Duration
}

func newTimeoutTable() *timeoutTable {
	return &timeoutTable{m: map[string]time.Duration{}}
}

func (t *timeoutTable) set(context string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[context] = d
}

func (t *timeoutTable) get(context string, fallback time.Duration) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if d, ok := t.m[context]; ok {
		return d
	}
	return fallback
}
