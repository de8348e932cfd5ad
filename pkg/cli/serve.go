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
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/alertsd/pkg/coordinator"
	"github.com/NVIDIA/alertsd/pkg/server"
)

const (
	flagAddress       = "address"
	flagPort          = "port"
	flagStatusTimeout = "status-timeout"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the coordinator and its HTTP API",
		Description: `Installs the common resources, registers every context of the service file
and serves the status API. SIGINT or SIGTERM stop pending installs and shut
the server down gracefully.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagAddress,
				Usage:   "Address to listen on (default: all interfaces)",
				Sources: cli.EnvVars("ALERTSD_ADDRESS"),
			},
			&cli.IntFlag{
				Name:    flagPort,
				Usage:   "Port to listen on (default: 8080, or PORT)",
				Sources: cli.EnvVars("ALERTSD_PORT"),
			},
			&cli.DurationFlag{
				Name:    flagStatusTimeout,
				Usage:   "How long a status request waits for an installation",
				Sources: cli.EnvVars("ALERTSD_STATUS_TIMEOUT"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			b, release, err := buildBackend(cfg)
			if err != nil {
				return err
			}
			defer release()

			flush, err := startTelemetry(ctx, cmd)
			if err != nil {
				return err
			}
			defer flush()

			svc, err := startCoordinator(ctx, cfg, b)
			if err != nil {
				return err
			}
			defer svc.Stop()

			scfg := server.NewConfig()
			scfg.Name = name
			scfg.Version = version
			if cmd.IsSet(flagAddress) {
				scfg.Address = cmd.String(flagAddress)
			}
			if cmd.IsSet(flagPort) {
				scfg.Port = cmd.Int(flagPort)
			}
			if cmd.IsSet(flagStatusTimeout) {
				scfg.StatusTimeout = cmd.Duration(flagStatusTimeout)
			}

			srv, err := server.New(svc, scfg, server.WithLogger(slog.Default()))
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Start(gctx)
			})
			g.Go(func() error {
				notifyReady(gctx, svc)
				return nil
			})

			err = g.Wait()
			notify(daemon.SdNotifyStopping)
			if err != nil {
				return err
			}
			slog.Info("server stopped gracefully")
			return nil
		},
	}
}

// notifyReady reports readiness to systemd once the common resources are
// installed. Nothing is reported if they fail.
func notifyReady(ctx context.Context, svc *coordinator.Service) {
	o, err := svc.CommonInitialization().Wait(ctx)
	if err != nil {
		return
	}
	if !o.Result {
		slog.Error("common resources were not installed, readiness not reported", "error", o.Error)
		return
	}
	notify(daemon.SdNotifyReady)
}

func notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	switch {
	case err != nil:
		slog.Warn("failed to notify systemd", "state", state, "error", err)
	case sent:
		slog.Debug("notified systemd", "state", state)
	}
}
