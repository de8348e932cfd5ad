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

package resource

import (
	"fmt"
	"regexp"

	"github.com/NVIDIA/alertsd/pkg/defaults"
	"github.com/NVIDIA/alertsd/pkg/errors"
)

const (
	// FrameworkContext names the component template holding framework fields.
	FrameworkContext = "framework"
	// LegacyAlertContext names the component template holding legacy alert fields.
	LegacyAlertContext = "legacy-alert"
	// ECSContext names the component template holding ECS fields.
	ECSContext = "ecs"

	firstIndexSuffix = "000001"

	// MaxNamespaceLength bounds a namespace so derived index names stay
	// within the backend's name limit.
	MaxNamespaceLength = 100
)

// namespaces end up in index, alias and template names, and in the
// wildcard pattern of the index template
var namespacePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// ValidateNamespace checks that a namespace is a lowercase space id made of
// letters, digits, '_' and '-'. Wildcards, dots and separators are rejected.
func ValidateNamespace(namespace string) error {
	if len(namespace) > MaxNamespaceLength {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("namespace is longer than %d characters", MaxNamespaceLength),
			map[string]any{"namespace": namespace})
	}
	if !namespacePattern.MatchString(namespace) {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid namespace %q: only lowercase letters, digits, '_' and '-' are allowed", namespace),
			map[string]any{"namespace": namespace})
	}
	return nil
}

// ComponentTemplateName returns the component template name for a context.
// An empty name returns the framework template name.
func ComponentTemplateName(name string) string {
	if name == "" {
		name = FrameworkContext
	}
	return fmt.Sprintf("%s-%s-mappings", defaults.ResourcePrefix, name)
}

// IndexPatterns holds every name derived from a (context, namespace) pair.
type IndexPatterns struct {
	Template       string `json:"template"`
	Pattern        string `json:"pattern"`
	BasePattern    string `json:"basePattern"`
	Alias          string `json:"alias"`
	Name           string `json:"name"`
	SecondaryAlias string `json:"secondaryAlias,omitempty"`
}

// IndexPatternsFor derives the index names for a context in a namespace.
// An empty namespace means the default namespace.
func IndexPatternsFor(context, namespace, secondaryAlias string) IndexPatterns {
	if namespace == "" {
		namespace = defaults.DefaultNamespace
	}
	base := fmt.Sprintf("%s-%s.alerts", defaults.ResourcePrefix, context)
	internal := fmt.Sprintf("%s-%s.alerts", defaults.InternalIndexPrefix, context)

	p := IndexPatterns{
		Template:    fmt.Sprintf("%s-%s-index-template", base, namespace),
		Pattern:     fmt.Sprintf("%s-%s-*", internal, namespace),
		BasePattern: base + "-*",
		Alias:       fmt.Sprintf("%s-%s", base, namespace),
		Name:        fmt.Sprintf("%s-%s-%s", internal, namespace, firstIndexSuffix),
	}
	if secondaryAlias != "" {
		p.SecondaryAlias = fmt.Sprintf("%s-%s", secondaryAlias, namespace)
	}
	return p
}
