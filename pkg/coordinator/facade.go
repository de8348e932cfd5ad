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

	"github.com/NVIDIA/alertsd/pkg/backend"
	"github.com/NVIDIA/alertsd/pkg/resource"
	"github.com/NVIDIA/alertsd/pkg/writer"
)

// Consumer describes the caller of AcquireWriter.
type Consumer struct {
	// SkipWrites opts the consumer out of alert writing.
	SkipWrites bool

	// Rule is stamped into every alert written through the writer.
	Rule writer.Rule
}

// AcquireWriter waits for a context to be ready in a namespace and returns a
// writer bound to it.
//
// It returns a nil writer and a nil error when the consumer skips writes or
// the initialization failed; the failure is logged as a warning and is not
// retried. The error is non-nil only when ctx ends before the outcome is
// known.
func (s *Service) AcquireWriter(ctx context.Context, name, namespace string, c Consumer) (*writer.Writer, error) {
	if c.SkipWrites {
		s.logger.Debug("consumer skips alert writes", "context", name, "rule", c.Rule.ID)
		return nil, nil
	}

	o, err := s.ContextInitialization(name, namespace).Wait(ctx)
	if err != nil {
		return nil, err
	}
	if !o.Result {
		s.logger.Warn("error installing namespace-level resources",
			"context", name,
			"namespace", namespace,
			"error", o.Error,
			"code", o.Code)
		return nil, nil
	}

	def, ok := s.registry.Lookup(name)
	if !ok {
		return nil, unregistered(name).Err()
	}
	ns := ResolveNamespace(def, namespace)
	patterns := resource.IndexPatternsFor(def.Context, ns, def.SecondaryAlias)

	sink, _ := s.backend.(backend.DocumentWriter)
	return writer.New(def.Context, ns, patterns, c.Rule, sink), nil
}
