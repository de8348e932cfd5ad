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
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/alertsd/pkg/backend"
	"github.com/NVIDIA/alertsd/pkg/resource"
)

type request struct {
	Method string
	Path   string
	Query  string
	Body   string
	Auth   string
}

// fakeSearch serves canned responses keyed by "METHOD path" and records
// every request.
type fakeSearch struct {
	mu        sync.Mutex
	requests  []request
	responses map[string]func(w http.ResponseWriter)
}

func newFakeSearch(t *testing.T) (*fakeSearch, *httptest.Server) {
	t.Helper()
	f := &fakeSearch{responses: map[string]func(w http.ResponseWriter){}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeSearch) on(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method+" "+path] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (f *fakeSearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   string(body),
		Auth:   r.Header.Get("Authorization"),
	})
	h, ok := f.responses[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
		return
	}
	h(w)
}

func (f *fakeSearch) recorded() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request(nil), f.requests...)
}

func newTestBackend(srv *httptest.Server, opts ...Option) *Backend {
	opts = append([]Option{WithRetryCount(0)}, opts...)
	return New(srv.URL, opts...)
}

func TestPutResources(t *testing.T) {
	f, srv := newFakeSearch(t)
	b := newTestBackend(srv)
	ctx := context.Background()

	require.NoError(t, b.PutLifecyclePolicy(ctx, resource.DefaultLifecyclePolicy()))
	require.NoError(t, b.PutComponentTemplate(ctx, resource.ComponentTemplate{
		Name:     ".alerts-framework-mappings",
		Template: resource.TemplateBody{Mappings: map[string]any{"dynamic": "strict"}},
	}))
	require.NoError(t, b.PutIndexTemplate(ctx, resource.IndexTemplate{
		Name:          ".alerts-a.alerts-default-index-template",
		IndexPatterns: []string{".internal.alerts-a.alerts-default-*"},
		ComposedOf:    []string{".alerts-framework-mappings"},
	}))

	reqs := f.recorded()
	require.Len(t, reqs, 3)
	assert.Equal(t, "/_ilm/policy/.alerts-ilm-policy", reqs[0].Path)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Contains(t, reqs[0].Body, `"policy"`)
	assert.NotContains(t, reqs[0].Body, `"Name"`)

	assert.Equal(t, "/_component_template/.alerts-framework-mappings", reqs[1].Path)
	assert.JSONEq(t, `{"template":{"mappings":{"dynamic":"strict"}}}`, reqs[1].Body)

	assert.Equal(t, "/_index_template/.alerts-a.alerts-default-index-template", reqs[2].Path)
	assert.Contains(t, reqs[2].Body, `"composed_of":[".alerts-framework-mappings"]`)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{
			name:   "already exists",
			status: http.StatusBadRequest,
			body:   `{"error":{"type":"resource_already_exists_exception","reason":"index [x/abc] already exists"},"status":400}`,
			want:   backend.ErrAlreadyExists,
		},
		{
			name:   "field limit",
			status: http.StatusBadRequest,
			body:   `{"error":{"type":"illegal_argument_exception","reason":"Limit of total fields [2500] has been exceeded"},"status":400}`,
			want:   backend.ErrFieldLimitExceeded,
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"error":{"type":"index_not_found_exception","reason":"no such index"},"status":404}`,
			want:   backend.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, srv := newFakeSearch(t)
			f.on(http.MethodPut, "/x", tt.status, tt.body)

			err := newTestBackend(srv).CreateIndex(context.Background(), resource.ConcreteIndex{Name: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOtherErrorsKeepReason(t *testing.T) {
	f, srv := newFakeSearch(t)
	f.on(http.MethodPut, "/_index_template/t", http.StatusBadRequest,
		`{"error":{"type":"illegal_argument_exception","reason":"composable template [t] template after composition is invalid"},"status":400}`)

	err := newTestBackend(srv).PutIndexTemplate(context.Background(), resource.IndexTemplate{Name: "t"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, backend.ErrFieldLimitExceeded)
	assert.Contains(t, err.Error(), "illegal_argument_exception")
	assert.Contains(t, err.Error(), "template after composition is invalid")
}

func TestGetAliasedIndices(t *testing.T) {
	f, srv := newFakeSearch(t)
	f.on(http.MethodGet, "/_alias/a", http.StatusOK, `{
		"idx-000002": {"aliases": {"a": {"is_write_index": true}}},
		"idx-000001": {"aliases": {"a": {}}}
	}`)
	f.on(http.MethodGet, "/_alias/missing", http.StatusNotFound, `{"error":"alias [missing] missing","status":404}`)
	b := newTestBackend(srv)

	got, err := b.GetAliasedIndices(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []resource.AliasedIndex{
		{Index: "idx-000001", Alias: "a", IsWriteIndex: false},
		{Index: "idx-000002", Alias: "a", IsWriteIndex: true},
	}, got)

	got, err = b.GetAliasedIndices(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSetIndexTemplatesFieldLimit(t *testing.T) {
	f, srv := newFakeSearch(t)
	f.on(http.MethodGet, "/_index_template/.alerts*", http.StatusOK, `{"index_templates":[
		{"name":"uses","index_template":{"index_patterns":["p-*"],"composed_of":[".alerts-a-mappings"],"template":{"settings":{"index.hidden":true}}}},
		{"name":"other","index_template":{"index_patterns":["q-*"],"composed_of":[".alerts-b-mappings"],"template":{}}}
	]}`)
	b := newTestBackend(srv)

	require.NoError(t, b.SetIndexTemplatesFieldLimit(context.Background(), ".alerts-a-mappings", 3500))

	var puts []request
	for _, r := range f.recorded() {
		if r.Method == http.MethodPut {
			puts = append(puts, r)
		}
	}
	require.Len(t, puts, 1)
	assert.Equal(t, "/_index_template/uses", puts[0].Path)

	var body resource.IndexTemplate
	require.NoError(t, json.Unmarshal([]byte(puts[0].Body), &body))
	assert.InDelta(t, 3500, body.Template.Settings[resource.SettingTotalFieldsLimit], 0)
	assert.Equal(t, true, body.Template.Settings["index.hidden"])
}

func TestUpdateIndexSettings(t *testing.T) {
	f, srv := newFakeSearch(t)
	require.NoError(t, newTestBackend(srv).UpdateIndexSettings(context.Background(), "idx-000001", 2500))

	reqs := f.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/idx-000001/_settings", reqs[0].Path)
	assert.JSONEq(t, `{"index.mapping.total_fields.limit":2500}`, reqs[0].Body)
}

func TestIndexDocuments(t *testing.T) {
	f, srv := newFakeSearch(t)
	f.on(http.MethodPost, "/_bulk", http.StatusOK, `{"errors":false,"items":[{"create":{"status":201}},{"create":{"status":201}}]}`)
	b := newTestBackend(srv)

	docs := []map[string]any{{"n": 1}, {"n": 2}}
	require.NoError(t, b.IndexDocuments(context.Background(), "alias-a", docs))

	reqs := f.recorded()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Query, "require_alias=true")

	var lines []string
	sc := bufio.NewScanner(strings.NewReader(reqs[0].Body))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"create":{"_index":"alias-a"}}`, lines[0])
	assert.JSONEq(t, `{"n":1}`, lines[1])
	assert.JSONEq(t, `{"n":2}`, lines[3])
}

func TestIndexDocumentsPartialFailure(t *testing.T) {
	f, srv := newFakeSearch(t)
	f.on(http.MethodPost, "/_bulk", http.StatusOK, `{"errors":true,"items":[
		{"create":{"status":201}},
		{"create":{"status":400,"error":{"type":"mapper_parsing_exception"}}}
	]}`)

	err := newTestBackend(srv).IndexDocuments(context.Background(), "alias-a", []map[string]any{{}, {}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 documents failed")
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestIndexDocumentsEmpty(t *testing.T) {
	f, srv := newFakeSearch(t)
	require.NoError(t, newTestBackend(srv).IndexDocuments(context.Background(), "alias-a", nil))
	assert.Empty(t, f.recorded())
}

func TestAuthentication(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		f, srv := newFakeSearch(t)
		b := newTestBackend(srv, WithBasicAuth("elastic", "changeme"))
		require.NoError(t, b.UpdateIndexSettings(context.Background(), "i", 1))
		assert.True(t, strings.HasPrefix(f.recorded()[0].Auth, "Basic "))
	})

	t.Run("api key", func(t *testing.T) {
		f, srv := newFakeSearch(t)
		b := newTestBackend(srv, WithAPIKey("abc123"), WithBasicAuth("ignored", "x"))
		require.NoError(t, b.UpdateIndexSettings(context.Background(), "i", 1))
		assert.Equal(t, "ApiKey abc123", f.recorded()[0].Auth)
	})
}

func TestRetriesServerErrors(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"acknowledged":true}`)
	}))
	defer srv.Close()

	b := New(srv.URL, WithRetryCount(2), WithRetryWaitTime(time.Millisecond))
	require.NoError(t, b.UpdateIndexSettings(context.Background(), "i", 1))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls)
}

func TestParseError(t *testing.T) {
	assert.Equal(t, errorCause{Type: "x", Reason: "y"}, parseError([]byte(`{"error":{"type":"x","reason":"y"}}`)))
	assert.Equal(t, errorCause{Reason: "alias [a] missing"}, parseError([]byte(`{"error":"alias [a] missing","status":404}`)))
	assert.Equal(t, errorCause{Reason: "Bad Gateway"}, parseError([]byte("Bad Gateway\n")))
}
