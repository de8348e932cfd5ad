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

package kubernetes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	accorev1 "k8s.io/client-go/applyconfigurations/core/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/utils/ptr"

	"github.com/NVIDIA/alertsd/pkg/backend"
	"github.com/NVIDIA/alertsd/pkg/defaults"
	"github.com/NVIDIA/alertsd/pkg/resource"
)

// Labels and annotations set on every managed ConfigMap.
const (
	LabelName      = "app.kubernetes.io/name"
	LabelManagedBy = "app.kubernetes.io/managed-by"
	LabelKind      = "alertsd.nvidia.com/kind"
	AnnotationName = "alertsd.nvidia.com/name"

	// FieldManager owns the fields written by this backend.
	FieldManager = "alertsd"
)

const (
	managedByValue  = "alertsd"
	keyBody         = "body.json"
	keyAliases      = "aliases.json"
	keySettings     = "settings.json"
	maxObjectName   = 253
	hashSuffixBytes = 4
)

// Kinds stored in the LabelKind label.
const (
	KindLifecyclePolicy   = "lifecycle-policy"
	KindComponentTemplate = "component-template"
	KindIndexTemplate     = "index-template"
	KindIndex             = "index"
)

// Backend stores resources as ConfigMaps.
type Backend struct {
	client    kubernetes.Interface
	namespace string
	logger    *slog.Logger
}

var _ backend.Backend = (*Backend)(nil)

// Option configures the Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = l
	}
}

// New returns a Backend storing ConfigMaps in namespace.
func New(client kubernetes.Interface, namespace string, opts ...Option) *Backend {
	b := &Backend{
		client:    client,
		namespace: namespace,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ObjectName returns the ConfigMap name for a resource of the given kind.
func ObjectName(kind, name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	clean := strings.Trim(sb.String(), ".-")
	out := "alertsd-" + kind + "-" + clean

	if len(out) > maxObjectName {
		sum := sha256.Sum256([]byte(name))
		suffix := hex.EncodeToString(sum[:hashSuffixBytes])
		out = strings.TrimRight(out[:maxObjectName-len(suffix)-1], ".-") + "-" + suffix
	}
	return out
}

func managedLabels(kind string) map[string]string {
	return map[string]string{
		LabelName:      managedByValue,
		LabelManagedBy: managedByValue,
		LabelKind:      kind,
	}
}

// apply writes a resource body with Server-Side Apply.
func (b *Backend) apply(ctx context.Context, kind, name string, body any) error {
	ctx, cancel := context.WithTimeout(ctx, defaults.K8sRequestTimeout)
	defer cancel()

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", kind, name, err)
	}

	cm := accorev1.ConfigMap(ObjectName(kind, name), b.namespace).
		WithLabels(managedLabels(kind)).
		WithAnnotations(map[string]string{AnnotationName: name}).
		WithData(map[string]string{keyBody: string(data)})

	b.logger.Debug("applying configmap", "kind", kind, "name", name, "namespace", b.namespace)
	_, err = b.client.CoreV1().ConfigMaps(b.namespace).Apply(ctx, cm, metav1.ApplyOptions{
		FieldManager: FieldManager,
		Force:        true,
	})
	if err != nil {
		return fmt.Errorf("failed to apply %s %s: %w", kind, name, err)
	}
	return nil
}

func (b *Backend) get(ctx context.Context, kind, name string) (*corev1.ConfigMap, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.K8sRequestTimeout)
	defer cancel()

	cm, err := b.client.CoreV1().ConfigMaps(b.namespace).Get(ctx, ObjectName(kind, name), metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, fmt.Errorf("%s %s: %w", kind, name, backend.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", kind, name, err)
	}
	return cm, nil
}

func (b *Backend) list(ctx context.Context, kind string) ([]corev1.ConfigMap, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.K8sRequestTimeout)
	defer cancel()

	list, err := b.client.CoreV1().ConfigMaps(b.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labels.SelectorFromSet(managedLabels(kind)).String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s configmaps: %w", kind, err)
	}
	items := list.Items
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// PutLifecyclePolicy implements backend.Backend.
func (b *Backend) PutLifecyclePolicy(ctx context.Context, policy resource.LifecyclePolicy) error {
	return b.apply(ctx, KindLifecyclePolicy, policy.Name, policy)
}

// PutComponentTemplate implements backend.Backend.
func (b *Backend) PutComponentTemplate(ctx context.Context, tmpl resource.ComponentTemplate) error {
	return b.apply(ctx, KindComponentTemplate, tmpl.Name, tmpl)
}

// PutIndexTemplate implements backend.Backend. Every composed component
// template must already exist.
func (b *Backend) PutIndexTemplate(ctx context.Context, tmpl resource.IndexTemplate) error {
	for _, ref := range tmpl.ComposedOf {
		if _, err := b.get(ctx, KindComponentTemplate, ref); err != nil {
			return fmt.Errorf("index template %s references component template %s: %w", tmpl.Name, ref, err)
		}
	}
	return b.apply(ctx, KindIndexTemplate, tmpl.Name, tmpl)
}

// SetIndexTemplatesFieldLimit implements backend.Backend.
func (b *Backend) SetIndexTemplatesFieldLimit(ctx context.Context, componentTemplate string, limit int) error {
	items, err := b.list(ctx, KindIndexTemplate)
	if err != nil {
		return err
	}
	for _, cm := range items {
		var tmpl resource.IndexTemplate
		if err := json.Unmarshal([]byte(cm.Data[keyBody]), &tmpl); err != nil {
			return fmt.Errorf("failed to decode index template %s: %w", cm.Name, err)
		}
		if !slices.Contains(tmpl.ComposedOf, componentTemplate) {
			continue
		}
		tmpl.Name = cm.Annotations[AnnotationName]
		if tmpl.Template.Settings == nil {
			tmpl.Template.Settings = map[string]any{}
		}
		tmpl.Template.Settings[resource.SettingTotalFieldsLimit] = limit
		if err := b.apply(ctx, KindIndexTemplate, tmpl.Name, tmpl); err != nil {
			return err
		}
	}
	return nil
}

func decodeAliases(cm corev1.ConfigMap) (map[string]resource.AliasSpec, error) {
	aliases := map[string]resource.AliasSpec{}
	if raw := cm.Data[keyAliases]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &aliases); err != nil {
			return nil, fmt.Errorf("failed to decode aliases of %s: %w", cm.Name, err)
		}
	}
	return aliases, nil
}

// GetAliasedIndices implements backend.Backend.
func (b *Backend) GetAliasedIndices(ctx context.Context, alias string) ([]resource.AliasedIndex, error) {
	items, err := b.list(ctx, KindIndex)
	if err != nil {
		return nil, err
	}

	var out []resource.AliasedIndex
	for _, cm := range items {
		aliases, err := decodeAliases(cm)
		if err != nil {
			return nil, err
		}
		spec, ok := aliases[alias]
		if !ok {
			continue
		}
		out = append(out, resource.AliasedIndex{
			Index:        cm.Annotations[AnnotationName],
			Alias:        alias,
			IsWriteIndex: spec.IsWriteIndex,
		})
	}
	return out, nil
}

// CreateIndex implements backend.Backend. An alias may have only one write
// index.
func (b *Backend) CreateIndex(ctx context.Context, idx resource.ConcreteIndex) error {
	for alias, spec := range idx.Aliases {
		if !spec.IsWriteIndex {
			continue
		}
		existing, err := b.GetAliasedIndices(ctx, alias)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.IsWriteIndex && e.Index != idx.Name {
				return fmt.Errorf("alias %s already has write index %s", alias, e.Index)
			}
		}
	}

	aliases, err := json.Marshal(idx.Aliases)
	if err != nil {
		return fmt.Errorf("failed to marshal aliases of %s: %w", idx.Name, err)
	}
	settings, err := json.Marshal(idx.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings of %s: %w", idx.Name, err)
	}

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:        ObjectName(KindIndex, idx.Name),
			Namespace:   b.namespace,
			Labels:      managedLabels(KindIndex),
			Annotations: map[string]string{AnnotationName: idx.Name},
		},
		Immutable: ptr.To(false),
		Data: map[string]string{
			keyAliases:  string(aliases),
			keySettings: string(settings),
		},
	}

	cctx, cancel := context.WithTimeout(ctx, defaults.K8sRequestTimeout)
	defer cancel()

	_, err = b.client.CoreV1().ConfigMaps(b.namespace).Create(cctx, cm, metav1.CreateOptions{FieldManager: FieldManager})
	if apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("index %s: %w", idx.Name, backend.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", idx.Name, err)
	}
	return nil
}

// UpdateIndexSettings implements backend.Backend.
func (b *Backend) UpdateIndexSettings(ctx context.Context, index string, totalFieldsLimit int) error {
	cm, err := b.get(ctx, KindIndex, index)
	if err != nil {
		return err
	}

	settings := map[string]any{}
	if raw := cm.Data[keySettings]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return fmt.Errorf("failed to decode settings of %s: %w", index, err)
		}
	}
	settings[resource.SettingTotalFieldsLimit] = totalFieldsLimit

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings of %s: %w", index, err)
	}
	if cm.Data == nil {
		cm.Data = map[string]string{}
	}
	cm.Data[keySettings] = string(data)

	uctx, cancel := context.WithTimeout(ctx, defaults.K8sRequestTimeout)
	defer cancel()

	if _, err := b.client.CoreV1().ConfigMaps(b.namespace).Update(uctx, cm, metav1.UpdateOptions{FieldManager: FieldManager}); err != nil {
		return fmt.Errorf("failed to update settings of %s: %w", index, err)
	}
	return nil
}

// IndexSettings returns the stored settings of an index.
func (b *Backend) IndexSettings(ctx context.Context, index string) (map[string]any, error) {
	cm, err := b.get(ctx, KindIndex, index)
	if err != nil {
		return nil, err
	}
	settings := map[string]any{}
	if raw := cm.Data[keySettings]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return nil, fmt.Errorf("failed to decode settings of %s: %w", index, err)
		}
	}
	return settings, nil
}
