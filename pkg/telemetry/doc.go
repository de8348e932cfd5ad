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


// Package telemetry installs the OpenTelemetry tracer provider that receives
// the coordinator and installer spans.
//
// The exporter is chosen by name:
//
//	none    no provider is installed; spans go to the no-op global provider
//	stdout  spans are written as JSON, to stderr unless Config.Writer is set
//	otlp    spans are sent over OTLP/gRPC to Config.OTLPEndpoint
//
// Usage:
//
//	shutdown, err := telemetry.Init(ctx, telemetry.Config{
//	    ServiceName:    "alertsd",
//	    ServiceVersion: version,
//	    Exporter:       telemetry.ExporterOTLP,
//	    OTLPEndpoint:   "otel-collector:4317",
//	    OTLPInsecure:   true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
//
// The alertsd binary reads the exporter from --trace-exporter
// (OTEL_TRACES_EXPORTER) and the endpoint from --otlp-endpoint
// (OTEL_EXPORTER_OTLP_ENDPOINT).
package telemetry
