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

package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/alertsd/pkg/backend"
	k8sbackend "github.com/NVIDIA/alertsd/pkg/backend/kubernetes"
	"github.com/NVIDIA/alertsd/pkg/backend/memory"
	"github.com/NVIDIA/alertsd/pkg/backend/rest"
	"github.com/NVIDIA/alertsd/pkg/backend/sqlite"
	"github.com/NVIDIA/alertsd/pkg/config"
	"github.com/NVIDIA/alertsd/pkg/coordinator"
	"github.com/NVIDIA/alertsd/pkg/defaults"
	"github.com/NVIDIA/alertsd/pkg/k8s/client"
	"github.com/NVIDIA/alertsd/pkg/serializer"
	"github.com/NVIDIA/alertsd/pkg/telemetry"
)

const (
	flagConfig         = "config"
	flagLogLevel       = "log-level"
	flagBackend        = "backend"
	flagURL            = "url"
	flagKubeconfig     = "kubeconfig"
	flagDatabase       = "database"
	flagInstallTimeout = "install-timeout"
	flagFormat         = "format"
	flagTraceExporter  = "trace-exporter"
	flagOTLPEndpoint   = "otlp-endpoint"
	flagOTLPInsecure   = "otlp-insecure"
	flagTraceSample    = "trace-sample-ratio"
)

var formatFlag = &cli.StringFlag{
	Name:    flagFormat,
	Aliases: []string{"t"},
	Value:   string(serializer.FormatTable),
	Usage:   fmt.Sprintf("Output format (supported values: %s)", serializer.SupportedFormats()),
}

// parseOutputFormat reads the format flag.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f, err := serializer.ParseFormat(cmd.String(flagFormat))
	if err != nil {
		return "", fmt.Errorf("invalid --%s: %w", flagFormat, err)
	}
	return f, nil
}

// loadConfig reads the service file, if any, and applies flag overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	if path := cmd.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if cmd.IsSet(flagBackend) {
		cfg.Backend.Type = cmd.String(flagBackend)
	}
	if cmd.IsSet(flagURL) {
		if cfg.Backend.REST == nil {
			cfg.Backend.REST = &config.RESTBackend{}
		}
		cfg.Backend.REST.URL = cmd.String(flagURL)
	}
	if cmd.IsSet(flagKubeconfig) {
		if cfg.Backend.Kubernetes == nil {
			cfg.Backend.Kubernetes = &config.KubernetesBackend{}
		}
		cfg.Backend.Kubernetes.Kubeconfig = cmd.String(flagKubeconfig)
	}
	if cmd.IsSet(flagDatabase) {
		if cfg.Backend.SQLite == nil {
			cfg.Backend.SQLite = &config.SQLiteBackend{}
		}
		cfg.Backend.SQLite.Path = cmd.String(flagDatabase)
	}
	if cmd.IsSet(flagInstallTimeout) {
		cfg.InstallTimeout = cmd.Duration(flagInstallTimeout)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildBackend creates the configured backend. The returned func releases
// it and is never nil.
func buildBackend(cfg *config.Config) (backend.Backend, func(), error) {
	var b backend.Backend

	switch cfg.Backend.Type {
	case config.BackendREST:
		rc := cfg.Backend.REST
		opts := []rest.Option{rest.WithInsecureSkipVerify(rc.InsecureSkipVerify)}
		if rc.Username != "" {
			opts = append(opts, rest.WithBasicAuth(rc.Username, rc.Password))
		}
		if rc.APIKey != "" {
			opts = append(opts, rest.WithAPIKey(rc.APIKey))
		}
		if rc.Timeout > 0 {
			opts = append(opts, rest.WithTimeout(rc.Timeout))
		}
		if rc.RetryCount != nil {
			opts = append(opts, rest.WithRetryCount(*rc.RetryCount))
		}
		b = rest.New(rc.URL, opts...)
	case config.BackendKubernetes:
		kc := cfg.Backend.Kubernetes
		c, err := client.New(kc.Kubeconfig)
		if err != nil {
			return nil, func() {}, err
		}
		b = k8sbackend.New(c, kc.Namespace, k8sbackend.WithLogger(slog.Default()))
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Backend.SQLite.Path)
		if err != nil {
			return nil, func() {}, fmt.Errorf("failed to open database %s: %w", cfg.Backend.SQLite.Path, err)
		}
		b = db
	default:
		b = memory.New()
	}

	release := func() {
		if c, ok := b.(backend.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("failed to close backend", "backend", cfg.Backend.Type, "error", err)
			}
		}
	}

	slog.Debug("backend ready", "backend", cfg.Backend.Type)
	return b, release, nil
}

// telemetryConfig reads the tracing flags.
func telemetryConfig(cmd *cli.Command) telemetry.Config {
	return telemetry.Config{
		ServiceName:    name,
		ServiceVersion: version,
		Exporter:       cmd.String(flagTraceExporter),
		OTLPEndpoint:   cmd.String(flagOTLPEndpoint),
		OTLPInsecure:   cmd.Bool(flagOTLPInsecure),
		SampleRatio:    cmd.Float(flagTraceSample),
	}
}

// startTelemetry installs the tracer provider selected by the tracing flags.
// The returned func flushes pending spans and is never nil.
func startTelemetry(ctx context.Context, cmd *cli.Command) (func(), error) {
	shutdown, err := telemetry.Init(ctx, telemetryConfig(cmd))
	if err != nil {
		return func() {}, err
	}
	return func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaults.ServerShutdownTimeout)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}, nil
}

// startCoordinator creates the coordinator and registers every context of
// the service file. Canceling ctx stops it.
func startCoordinator(ctx context.Context, cfg *config.Config, b backend.Backend) (*coordinator.Service, error) {
	svc, err := coordinator.New(ctx, coordinator.Options{
		Backend: b,
		Logger:  slog.Default(),
		Version: cfg.Version,
		Timeout: cfg.InstallTimeout,
	})
	if err != nil {
		return nil, err
	}

	for _, c := range cfg.Contexts {
		if err := svc.Register(c.Definition, c.Timeout); err != nil {
			svc.Stop()
			return nil, fmt.Errorf("failed to register context %s: %w", c.Context, err)
		}
	}
	return svc, nil
}
