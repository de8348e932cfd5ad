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
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/NVIDIA/alertsd/pkg/coordinator"
	"github.com/NVIDIA/alertsd/pkg/defaults"
	"github.com/NVIDIA/alertsd/pkg/errors"
	"github.com/NVIDIA/alertsd/pkg/resource"
	"github.com/NVIDIA/alertsd/pkg/serializer"
)

const (
	flagNamespace = "namespace"
	flagWait      = "wait"

	exitInstallFailed = 3

	commonScope = "*"
)

var stateCaser = cases.Title(language.English)

// installResult is the outcome of one (context, namespace) installation.
type installResult struct {
	Context   string            `json:"context" yaml:"context"`
	Namespace string            `json:"namespace" yaml:"namespace"`
	State     coordinator.State `json:"state" yaml:"state"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty"`
	Code      errors.ErrorCode  `json:"code,omitempty" yaml:"code,omitempty"`
}

// installReport is printed by the install command.
type installReport struct {
	Common  installResult   `json:"common" yaml:"common"`
	Results []installResult `json:"results" yaml:"results"`
}

func (r installReport) Header() []string {
	return []string{"CONTEXT", "NAMESPACE", "STATE", "ERROR"}
}

func (r installReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Results)+1)
	for _, res := range append([]installResult{r.Common}, r.Results...) {
		rows = append(rows, []string{res.Context, res.Namespace, stateCaser.String(string(res.State)), res.Error})
	}
	return rows
}

// Failed returns the number of installations that did not succeed.
func (r installReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.State != coordinator.StateSucceeded {
			n++
		}
	}
	if r.Common.State != coordinator.StateSucceeded && len(r.Results) == 0 {
		n++
	}
	return n
}

func installCmd() *cli.Command {
	return &cli.Command{
		Name:  "install",
		Usage: "Install the resources of every context once and report the outcome",
		Description: `Registers every context of the service file, provisions the default namespace
and the namespaces given with --namespace, then waits for every outcome.
Namespaces only apply to space aware contexts; other contexts always use the
default namespace.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    flagNamespace,
				Aliases: []string{"n"},
				Usage:   "Additional namespace to provision (repeatable)",
				Sources: cli.EnvVars("ALERTSD_NAMESPACES"),
			},
			&cli.DurationFlag{
				Name:    flagWait,
				Value:   defaults.CLIInstallWaitTimeout,
				Usage:   "How long to wait for every installation",
				Sources: cli.EnvVars("ALERTSD_WAIT"),
			},
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			namespaces := cmd.StringSlice(flagNamespace)
			for _, ns := range namespaces {
				if err := resource.ValidateNamespace(ns); err != nil {
					return err
				}
			}

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

			wctx, cancel := context.WithTimeout(ctx, cmd.Duration(flagWait))
			defer cancel()

			report := runInstall(wctx, svc, namespaces)

			if err := serializer.NewWriter(format, cmd.Root().Writer).Serialize(ctx, report); err != nil {
				return err
			}

			if n := report.Failed(); n > 0 {
				return cli.Exit(fmt.Sprintf("%d installation(s) did not succeed", n), exitInstallFailed)
			}
			return nil
		},
	}
}

// runInstall provisions namespaces for every registered context and waits
// for all outcomes until ctx ends. Unfinished installations are reported
// with their current state.
func runInstall(ctx context.Context, svc *coordinator.Service, namespaces []string) installReport {
	type pending struct {
		context   string
		namespace string
		future    *coordinator.Future
	}

	var all []pending
	for _, name := range svc.Contexts() {
		def, _ := svc.Lookup(name)
		seen := map[string]bool{}
		for _, ns := range append([]string{defaults.DefaultNamespace}, namespaces...) {
			ns = coordinator.ResolveNamespace(def, ns)
			if seen[ns] {
				continue
			}
			seen[ns] = true
			all = append(all, pending{context: name, namespace: ns, future: svc.ContextInitialization(name, ns)})
		}
	}

	report := installReport{
		Common:  resultOf(ctx, svc.CommonInitialization(), commonScope, commonScope),
		Results: make([]installResult, 0, len(all)),
	}
	for _, p := range all {
		report.Results = append(report.Results, resultOf(ctx, p.future, p.context, p.namespace))
	}

	// Unfinished tasks carry their live state.
	states := map[[2]string]coordinator.State{}
	for _, st := range svc.Status() {
		states[[2]string{st.Context, st.Namespace}] = st.State
	}
	for i, res := range report.Results {
		if !res.State.IsTerminal() {
			if st, ok := states[[2]string{res.Context, res.Namespace}]; ok {
				report.Results[i].State = st
			}
		}
	}

	slices.SortFunc(report.Results, func(a, b installResult) int {
		if c := cmp.Compare(a.Context, b.Context); c != 0 {
			return c
		}
		return cmp.Compare(a.Namespace, b.Namespace)
	})
	return report
}

func resultOf(ctx context.Context, f *coordinator.Future, name, namespace string) installResult {
	res := installResult{Context: name, Namespace: namespace}
	o, err := f.Wait(ctx)
	switch {
	case err != nil:
		res.State = coordinator.StateRunning
		res.Error = "did not finish in time"
		res.Code = errors.ErrCodeTimeout
	case o.Result:
		res.State = coordinator.StateSucceeded
	default:
		res.State = coordinator.StateFailed
		res.Error = o.Error
		res.Code = o.Code
	}
	return res
}
