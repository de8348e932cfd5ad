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

// Package config loads the alertsd service file.
//
// The service file is YAML. It selects and configures the backend, sets the
// product version stamped into index templates and the default install
// timeout, and lists the contexts registered at startup:
//
//	version: 8.18.0
//	installTimeout: 20m
//	backend:
//	  type: rest
//	  rest:
//	    url: https://search.internal:9200
//	    apiKey: ${ALERTSD_REST_API_KEY}
//	contexts:
//	  - context: observability.metrics
//	    isSpaceAware: true
//	    useEcs: true
//	    mappings:
//	      fieldMap:
//	        kibana.alert.evaluation.threshold:
//	          type: scaled_float
//	          scalingFactor: 100
//
// Environment references of the form ${NAME} are expanded before parsing.
// Unknown keys are rejected. Files are validated with
// go-playground/validator; context definitions are validated with the same
// rules Register applies.
package config
