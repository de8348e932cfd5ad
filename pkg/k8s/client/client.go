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

package client

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

const (
	userAgent = "alertsd"

	// defaultQPS and defaultBurst cover one ConfigMap write per resource
	// during a burst of namespace provisioning.
	defaultQPS   = 20
	defaultBurst = 50
)

// Interface is an alias for kubernetes.Interface so callers and tests can
// use fake.NewClientset().
type Interface = kubernetes.Interface

// ResolveKubeconfig returns the kubeconfig path to use, or "" when the
// in-cluster configuration should be used. Resolution order:
//  1. the explicit path
//  2. the KUBECONFIG environment variable
//  3. ~/.kube/config, if it exists
func ResolveKubeconfig(kubeconfig string) string {
	if kubeconfig != "" {
		return kubeconfig
	}
	if env := os.Getenv("KUBECONFIG"); env != "" {
		return env
	}
	home := filepath.Join(homedir.HomeDir(), ".kube", "config")
	if _, err := os.Stat(home); err == nil {
		return home
	}
	return ""
}

// BuildConfig builds the rest configuration for kubeconfig.
func BuildConfig(kubeconfig string) (*rest.Config, error) {
	path := ResolveKubeconfig(kubeconfig)

	var (
		config *rest.Config
		err    error
	)

	// Use InClusterConfig directly when no kubeconfig is available
	// This avoids the warning: "Neither --kubeconfig nor --master was specified"
	if path == "" {
		config, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
		}
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", path)
		if err != nil {
			return nil, fmt.Errorf("failed to build kube config from %s: %w", path, err)
		}
	}

	config.UserAgent = userAgent
	if config.QPS == 0 {
		config.QPS = defaultQPS
	}
	if config.Burst == 0 {
		config.Burst = defaultBurst
	}
	return config, nil
}

// New creates a Kubernetes client for the kubeconfig, see ResolveKubeconfig.
func New(kubeconfig string) (Interface, error) {
	config, err := BuildConfig(kubeconfig)
	if err != nil {
		return nil, err
	}

	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return client, nil
}
