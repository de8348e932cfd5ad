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

// Package writer provides the handle through which a consumer writes alert
// documents once a context is ready in a namespace.
//
// Building a Writer has no side effects: it only captures the coordinates
// (context, namespace, write alias) and the document sink. Documents are
// stamped with the framework fields the coordinator owns (alert uuid, space
// ids, timestamp, rule identity) before being handed to the sink.
package writer

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/NVIDIA/alertsd/pkg/backend"
	"github.com/NVIDIA/alertsd/pkg/resource"
)

// Framework field names stamped on every document.
const (
	FieldTimestamp    = "@timestamp"
	FieldAlertUUID    = "kibana.alert.uuid"
	FieldSpaceIDs     = "kibana.space_ids"
	FieldRuleUUID     = "kibana.alert.rule.uuid"
	FieldRuleName     = "kibana.alert.rule.name"
	FieldRuleTypeID   = "kibana.alert.rule.rule_type_id"
	FieldRuleConsumer = "kibana.alert.rule.consumer"
)

// Rule identifies the rule producing the alerts.
type Rule struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	TypeID   string `json:"typeId" yaml:"typeId"`
	Consumer string `json:"consumer" yaml:"consumer"`
}

// Writer writes alert documents for one (context, namespace).
type Writer struct {
	context   string
	namespace string
	patterns  resource.IndexPatterns
	rule      Rule
	sink      backend.DocumentWriter
	now       func() time.Time
}

// New returns a Writer. sink may be nil, in which case Write fails with
// backend.ErrWritesUnsupported.
func New(context, namespace string, patterns resource.IndexPatterns, rule Rule, sink backend.DocumentWriter) *Writer {
	return &Writer{
		context:   context,
		namespace: namespace,
		patterns:  patterns,
		rule:      rule,
		sink:      sink,
		now:       time.Now,
	}
}

// Context returns the context the writer is bound to.
func (w *Writer) Context() string { return w.context }

// Namespace returns the resolved namespace the writer is bound to.
func (w *Writer) Namespace() string { return w.namespace }

// Alias returns the write alias documents are sent to.
func (w *Writer) Alias() string { return w.patterns.Alias }

// Write stamps and stores the documents. Caller-provided framework fields
// other than the alert uuid are overwritten.
func (w *Writer) Write(ctx context.Context, alerts []map[string]any) ([]string, error) {
	if w.sink == nil {
		return nil, fmt.Errorf("writing to %s: %w", w.patterns.Alias, backend.ErrWritesUnsupported)
	}
	if len(alerts) == 0 {
		return nil, nil
	}

	ts := w.now().UTC().Format(time.RFC3339Nano)
	docs := make([]map[string]any, 0, len(alerts))
	ids := make([]string, 0, len(alerts))

	for _, a := range alerts {
		doc := maps.Clone(a)
		if doc == nil {
			doc = map[string]any{}
		}
		id, _ := doc[FieldAlertUUID].(string)
		if id == "" {
			id = uuid.NewString()
		}
		doc[FieldAlertUUID] = id
		doc[FieldTimestamp] = ts
		doc[FieldSpaceIDs] = []string{w.namespace}
		if w.rule.ID != "" {
			doc[FieldRuleUUID] = w.rule.ID
			doc[FieldRuleName] = w.rule.Name
			doc[FieldRuleTypeID] = w.rule.TypeID
			doc[FieldRuleConsumer] = w.rule.Consumer
		}
		docs = append(docs, doc)
		ids = append(ids, id)
	}

	if err := w.sink.IndexDocuments(ctx, w.patterns.Alias, docs); err != nil {
		return nil, fmt.Errorf("writing %d alerts to %s: %w", len(docs), w.patterns.Alias, err)
	}
	return ids, nil
}
