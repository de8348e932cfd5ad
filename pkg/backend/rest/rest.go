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

package rest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/NVIDIA/alertsd/pkg/backend"
	"github.com/NVIDIA/alertsd/pkg/defaults"
	"github.com/NVIDIA/alertsd/pkg/resource"
)

const userAgent = "alertsd"

// Option configures the Backend.
type Option func(*Backend)

// Backend talks to the search engine over HTTP.
type Backend struct {
	client *resty.Client

	timeout            time.Duration
	retryCount         int
	retryWait          time.Duration
	insecureSkipVerify bool
	username           string
	password           string
	apiKey             string
	httpClient         *http.Client
}

var (
	_ backend.Backend        = (*Backend)(nil)
	_ backend.DocumentWriter = (*Backend)(nil)
)

// WithTimeout sets the total timeout of a single request.
func WithTimeout(d time.Duration) Option {
	return func(b *Backend) {
		b.timeout = d
	}
}

// WithRetryCount sets how many times a request failing with a transport
// error, 429 or 5xx is retried.
func WithRetryCount(n int) Option {
	return func(b *Backend) {
		b.retryCount = n
	}
}

// WithRetryWaitTime sets the initial backoff between retries.
func WithRetryWaitTime(d time.Duration) Option {
	return func(b *Backend) {
		b.retryWait = d
	}
}

// WithBasicAuth authenticates every request with a username and password.
func WithBasicAuth(username, password string) Option {
	return func(b *Backend) {
		b.username = username
		b.password = password
	}
}

// WithAPIKey authenticates every request with an API key.
func WithAPIKey(key string) Option {
	return func(b *Backend) {
		b.apiKey = key
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(skip bool) Option {
	return func(b *Backend) {
		b.insecureSkipVerify = skip
	}
}

// WithHTTPClient replaces the underlying HTTP client. Transport options are
// ignored when a client is supplied.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) {
		b.httpClient = c
	}
}

// New returns a Backend for the given base URL.
func New(baseURL string, opts ...Option) *Backend {
	b := &Backend{
		timeout:    defaults.HTTPClientTimeout,
		retryCount: defaults.HTTPRetryCount,
		retryWait:  defaults.HTTPRetryWaitTime,
	}
	for _, opt := range opts {
		opt(b)
	}

	var c *resty.Client
	if b.httpClient != nil {
		c = resty.NewWithClient(b.httpClient)
	} else {
		c = resty.New().SetTransport(newTransport(b.insecureSkipVerify))
	}

	c.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(b.timeout).
		SetRetryCount(b.retryCount).
		SetRetryWaitTime(b.retryWait).
		SetHeader("User-Agent", userAgent).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	switch {
	case b.apiKey != "":
		c.SetAuthScheme("ApiKey").SetAuthToken(b.apiKey)
	case b.username != "":
		c.SetBasicAuth(b.username, b.password)
	}

	b.client = c
	return b
}

func newTransport(insecure bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaults.HTTPConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaults.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   defaults.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: insecure, //nolint:gosec // G402: enabled only by --insecure-skip-verify
		},
	}
}

// PutLifecyclePolicy implements backend.Backend.
func (b *Backend) PutLifecyclePolicy(ctx context.Context, policy resource.LifecyclePolicy) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("name", policy.Name).
		SetBody(policy).
		Put("/_ilm/policy/{name}")
	return check("put lifecycle policy", policy.Name, resp, err)
}

// PutComponentTemplate implements backend.Backend.
func (b *Backend) PutComponentTemplate(ctx context.Context, tmpl resource.ComponentTemplate) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("name", tmpl.Name).
		SetBody(tmpl).
		Put("/_component_template/{name}")
	return check("put component template", tmpl.Name, resp, err)
}

// PutIndexTemplate implements backend.Backend.
func (b *Backend) PutIndexTemplate(ctx context.Context, tmpl resource.IndexTemplate) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("name", tmpl.Name).
		SetBody(tmpl).
		Put("/_index_template/{name}")
	return check("put index template", tmpl.Name, resp, err)
}

type indexTemplateList struct {
	IndexTemplates []struct {
		Name          string                 `json:"name"`
		IndexTemplate resource.IndexTemplate `json:"index_template"`
	} `json:"index_templates"`
}

// SetIndexTemplatesFieldLimit implements backend.Backend. Only the managed
// index templates are considered.
func (b *Backend) SetIndexTemplatesFieldLimit(ctx context.Context, componentTemplate string, limit int) error {
	var list indexTemplateList
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("pattern", defaults.ResourcePrefix+"*").
		SetResult(&list).
		Get("/_index_template/{pattern}")
	if err := check("get index templates", defaults.ResourcePrefix+"*", resp, err); err != nil {
		return err
	}

	for _, it := range list.IndexTemplates {
		if !slices.Contains(it.IndexTemplate.ComposedOf, componentTemplate) {
			continue
		}
		tmpl := it.IndexTemplate
		tmpl.Name = it.Name
		if tmpl.Template.Settings == nil {
			tmpl.Template.Settings = map[string]any{}
		}
		tmpl.Template.Settings[resource.SettingTotalFieldsLimit] = limit
		if err := b.PutIndexTemplate(ctx, tmpl); err != nil {
			return err
		}
	}
	return nil
}

type aliasEntry struct {
	Aliases map[string]struct {
		IsWriteIndex *bool `json:"is_write_index"`
	} `json:"aliases"`
}

// GetAliasedIndices implements backend.Backend.
func (b *Backend) GetAliasedIndices(ctx context.Context, alias string) ([]resource.AliasedIndex, error) {
	var entries map[string]aliasEntry
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("alias", alias).
		SetResult(&entries).
		Get("/_alias/{alias}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if err := check("get aliases", alias, resp, err); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]resource.AliasedIndex, 0, len(names))
	for _, name := range names {
		spec, ok := entries[name].Aliases[alias]
		if !ok {
			continue
		}
		out = append(out, resource.AliasedIndex{
			Index:        name,
			Alias:        alias,
			IsWriteIndex: spec.IsWriteIndex != nil && *spec.IsWriteIndex,
		})
	}
	return out, nil
}

// CreateIndex implements backend.Backend.
func (b *Backend) CreateIndex(ctx context.Context, idx resource.ConcreteIndex) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("index", idx.Name).
		SetBody(idx).
		Put("/{index}")
	return check("create index", idx.Name, resp, err)
}

// UpdateIndexSettings implements backend.Backend.
func (b *Backend) UpdateIndexSettings(ctx context.Context, index string, totalFieldsLimit int) error {
	resp, err := b.client.R().
		SetContext(ctx).
		SetPathParam("index", index).
		SetBody(map[string]any{resource.SettingTotalFieldsLimit: totalFieldsLimit}).
		Put("/{index}/_settings")
	return check("update index settings", index, resp, err)
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int             `json:"status"`
		Error  json.RawMessage `json:"error,omitempty"`
	} `json:"items"`
}

// IndexDocuments implements backend.DocumentWriter. Documents are created
// through the alias, which must exist.
func (b *Backend) IndexDocuments(ctx context.Context, alias string, docs []map[string]any) error {
	if len(docs) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, d := range docs {
		if err := enc.Encode(map[string]any{"create": map[string]any{"_index": alias}}); err != nil {
			return fmt.Errorf("encoding bulk action: %w", err)
		}
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encoding alert document: %w", err)
		}
	}

	var result bulkResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-ndjson").
		SetQueryParam("require_alias", "true").
		SetQueryParam("refresh", "wait_for").
		SetBody(body.Bytes()).
		SetResult(&result).
		Post("/_bulk")
	if err := check("bulk index", alias, resp, err); err != nil {
		return err
	}

	if result.Errors {
		failed := 0
		var first string
		for _, item := range result.Items {
			for _, r := range item {
				if r.Status >= http.StatusBadRequest {
					failed++
					if first == "" {
						first = string(r.Error)
					}
				}
			}
		}
		return fmt.Errorf("bulk index into %s: %d of %d documents failed: %s", alias, failed, len(docs), first)
	}
	return nil
}
