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

package defaults

// Naming and sizing of alert resources.
const (
	// DefaultNamespace is the tenant namespace every registered context is
	// provisioned in at registration time.
	DefaultNamespace = "default"

	// TotalFieldsLimit caps the number of mapped fields per alerts index.
	TotalFieldsLimit = 2500

	// ResourcePrefix prefixes every alias, template and policy name.
	ResourcePrefix = ".alerts"

	// InternalIndexPrefix prefixes concrete backing index names.
	InternalIndexPrefix = ".internal.alerts"

	// LifecyclePolicyName is the shared ILM policy bound to every alerts index.
	LifecyclePolicyName = ".alerts-ilm-policy"

	// RolloverMaxAge is the hot phase rollover age of the shared policy.
	RolloverMaxAge = "30d"

	// RolloverMaxPrimaryShardSize is the hot phase rollover size of the shared policy.
	RolloverMaxPrimaryShardSize = "50gb"
)
