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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NVIDIA/alertsd/pkg/errors"
)

var (
	installOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertsd_install_operations_total",
			Help: "Total number of resource install operations",
		},
		[]string{"kind", "result"},
	)

	installDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alertsd_install_duration_seconds",
			Help:    "Resource install latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func recordInstall(kind string, d time.Duration, err error) {
	installOperations.WithLabelValues(kind, resultLabel(err)).Inc()
	installDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}
