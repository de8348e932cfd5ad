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

// Package client builds Kubernetes clients for the ConfigMap backend.
//
// Configuration is discovered from, in order:
//   - an explicit kubeconfig path (--kubeconfig or the service file)
//   - the KUBECONFIG environment variable
//   - ~/.kube/config
//   - the in-cluster service account, when running as a Pod
//
// Usage:
//
//	c, err := client.New(cfg.Backend.Kubernetes.Kubeconfig)
//	if err != nil {
//	    return fmt.Errorf("failed to build client: %w", err)
//	}
//	b := kubernetes.New(c, cfg.Backend.Kubernetes.Namespace)
package client
