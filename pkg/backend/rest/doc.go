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

// Package rest implements backend.Backend against an Elasticsearch
// compatible REST API using resty.
//
// Resource definitions map onto the search engine's own endpoints:
//
//	PutLifecyclePolicy      PUT  /_ilm/policy/{name}
//	PutComponentTemplate    PUT  /_component_template/{name}
//	PutIndexTemplate        PUT  /_index_template/{name}
//	GetAliasedIndices       GET  /_alias/{alias}
//	CreateIndex             PUT  /{index}
//	UpdateIndexSettings     PUT  /{index}/_settings
//	IndexDocuments          POST /_bulk
//
// Error responses are mapped onto the backend sentinel errors:
// resource_already_exists_exception becomes backend.ErrAlreadyExists, a 404
// becomes backend.ErrNotFound, and an illegal_argument_exception about the
// total fields limit becomes backend.ErrFieldLimitExceeded.
//
// Usage:
//
//	b := rest.New("https://search.internal:9200",
//	    rest.WithBasicAuth("elastic", password),
//	    rest.WithRetryCount(3))
package rest
