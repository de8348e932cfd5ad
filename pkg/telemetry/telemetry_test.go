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


package telemetry

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/NVIDIA/alertsd/pkg/errors"
)

// restoreGlobal puts back the global tracer provider after a test installs one.
func restoreGlobal(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestInitNone(t *testing.T) {
	restoreGlobal(t)
	before := otel.GetTracerProvider()

	for _, exporter := range []string{"", ExporterNone, " None "} {
		shutdown, err := Init(context.Background(), Config{Exporter: exporter})
		require.NoError(t, err, exporter)
		require.NotNil(t, shutdown)
		assert.NoError(t, shutdown(context.Background()))
	}
	assert.Equal(t, before, otel.GetTracerProvider(), "none must not replace the global provider")
}

func TestInitUnknownExporter(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Exporter: "zipkin"})
	require.Error(t, err)
	assert.Nil(t, shutdown)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRequest))
	assert.Contains(t, err.Error(), "zipkin")
}

func TestInitStdout(t *testing.T) {
	restoreGlobal(t)

	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Config{
		ServiceName:    "alertsd",
		ServiceVersion: "1.2.3",
		Exporter:       ExporterStdout,
		Writer:         &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "coordinator.context")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, shutdown(ctx))

	out := buf.String()
	assert.Contains(t, out, `"Name":"coordinator.context"`)
	assert.Contains(t, out, "alertsd")
	assert.Contains(t, out, "1.2.3")
}

func TestInitOTLP(t *testing.T) {
	for _, endpoint := range []string{"127.0.0.1:4317", "http://127.0.0.1:4317"} {
		t.Run(endpoint, func(t *testing.T) {
			restoreGlobal(t)

			shutdown, err := Init(context.Background(), Config{
				ServiceName:  "alertsd",
				Exporter:     ExporterOTLP,
				OTLPEndpoint: endpoint,
				OTLPInsecure: true,
			})
			require.NoError(t, err, "the gRPC exporter connects lazily")
			require.NotNil(t, shutdown)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = shutdown(ctx)
		})
	}
}

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", sampler(0).Description())
	assert.Equal(t, "AlwaysOnSampler", sampler(1).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
