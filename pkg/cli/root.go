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
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/alertsd/pkg/logging"
	"github.com/NVIDIA/alertsd/pkg/telemetry"
)

const (
	name           = "alertsd"
	versionDefault = "dev"

	exitFailure  = 1
	exitCanceled = 2
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Execute runs the CLI with the process arguments. SIGINT and SIGTERM cancel
// the command context, which serve treats as the shutdown signal.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().Run(ctx, os.Args)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	var ec cli.ExitCoder
	switch {
	case stderrors.As(err, &ec):
		return ec.ExitCode()
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return exitCanceled
	default:
		return exitFailure
	}
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "Install and track the resources of alerts contexts",
		Version:               fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		EnableShellCompletion: true,
		Description: `alertsd installs the resources alerts are written to: a shared lifecycle
policy and component templates, then one index template and concrete write
index per registered context and namespace.

serve   - run the coordinator and its HTTP API
install - install every context once and report the outcome`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "Path to the service file with the backend and context definitions",
				Sources: cli.EnvVars("ALERTSD_CONFIG"),
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("ALERTSD_LOG_LEVEL", logging.EnvVarLogLevel),
			},
			&cli.StringFlag{
				Name:    flagBackend,
				Usage:   "Backend type, overrides the service file (memory, rest, kubernetes, sqlite)",
				Sources: cli.EnvVars("ALERTSD_BACKEND"),
			},
			&cli.StringFlag{
				Name:    flagURL,
				Usage:   "Search engine URL for the rest backend, overrides the service file",
				Sources: cli.EnvVars("ALERTSD_URL"),
			},
			&cli.StringFlag{
				Name:    flagKubeconfig,
				Usage:   "Kubeconfig for the kubernetes backend, overrides the service file",
				Sources: cli.EnvVars("ALERTSD_KUBECONFIG"),
			},
			&cli.StringFlag{
				Name:    flagDatabase,
				Usage:   "Database path for the sqlite backend, overrides the service file",
				Sources: cli.EnvVars("ALERTSD_DATABASE"),
			},
			&cli.DurationFlag{
				Name:    flagInstallTimeout,
				Usage:   "Timeout of each install request (0 waits indefinitely), overrides the service file",
				Sources: cli.EnvVars("ALERTSD_INSTALL_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    flagTraceExporter,
				Value:   telemetry.ExporterNone,
				Usage:   fmt.Sprintf("Trace exporter (%s)", strings.Join(telemetry.Exporters(), ", ")),
				Sources: cli.EnvVars("ALERTSD_TRACE_EXPORTER", "OTEL_TRACES_EXPORTER"),
			},
			&cli.StringFlag{
				Name:    flagOTLPEndpoint,
				Value:   telemetry.DefaultOTLPEndpoint,
				Usage:   "OTLP/gRPC collector endpoint for the otlp trace exporter",
				Sources: cli.EnvVars("ALERTSD_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"),
			},
			&cli.BoolFlag{
				Name:    flagOTLPInsecure,
				Usage:   "Connect to the OTLP collector without TLS",
				Sources: cli.EnvVars("ALERTSD_OTLP_INSECURE", "OTEL_EXPORTER_OTLP_INSECURE"),
			},
			&cli.FloatFlag{
				Name:    flagTraceSample,
				Value:   1,
				Usage:   "Fraction of traces to keep",
				Sources: cli.EnvVars("ALERTSD_TRACE_SAMPLE_RATIO"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String(flagLogLevel))
			slog.Debug("starting",
				"name", name,
				"version", version,
				"commit", commit,
				"date", date)
			return ctx, nil
		},
		// Exit codes are applied by Execute so that commands stay testable.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			serveCmd(),
			installCmd(),
			versionCmd(),
		},
	}
}
