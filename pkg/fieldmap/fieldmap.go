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

package fieldmap

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Dynamic mapping policies accepted in Mappings.Dynamic.
const (
	DynamicStrict = "strict"
	DynamicTrue   = "true"
	DynamicFalse  = "false"
)

// Field describes a single mapped field.
type Field struct {
	Type          string  `json:"type" yaml:"type" validate:"required"`
	Required      bool    `json:"required,omitempty" yaml:"required,omitempty"`
	Array         bool    `json:"array,omitempty" yaml:"array,omitempty"`
	Index         *bool   `json:"index,omitempty" yaml:"index,omitempty"`
	IgnoreAbove   int     `json:"ignoreAbove,omitempty" yaml:"ignoreAbove,omitempty" validate:"gte=0"`
	ScalingFactor float64 `json:"scalingFactor,omitempty" yaml:"scalingFactor,omitempty" validate:"gte=0"`
	Format        string  `json:"format,omitempty" yaml:"format,omitempty"`
	Dynamic       string  `json:"dynamic,omitempty" yaml:"dynamic,omitempty" validate:"omitempty,oneof=strict true false"`
}

// FieldMap maps a dotted field path to its definition.
type FieldMap map[string]Field

// Mappings is the field mapping block of a context definition.
type Mappings struct {
	Dynamic  string   `json:"dynamic,omitempty" yaml:"dynamic,omitempty" validate:"omitempty,oneof=strict true false"`
	FieldMap FieldMap `json:"fieldMap,omitempty" yaml:"fieldMap,omitempty" validate:"dive,keys,required,endkeys"`
}

// IsEmpty reports whether the mappings declare no fields.
func (m Mappings) IsEmpty() bool {
	return len(m.FieldMap) == 0
}

// Keys returns the field paths in sorted order.
func (fm FieldMap) Keys() []string {
	return slices.Sorted(maps.Keys(fm))
}

// Merge combines maps left to right. A key present in more than one map
// takes the definition from the last map that declares it.
func Merge(fms ...FieldMap) FieldMap {
	out := FieldMap{}
	for _, fm := range fms {
		maps.Copy(out, fm)
	}
	return out
}

// Overrides lists, in sorted order, the keys whose definition in a later map
// differs from the one it replaces in an earlier map.
func Overrides(fms ...FieldMap) []string {
	seen := FieldMap{}
	var overridden []string
	for _, fm := range fms {
		for _, k := range fm.Keys() {
			prev, ok := seen[k]
			if ok && !prev.equal(fm[k]) && !slices.Contains(overridden, k) {
				overridden = append(overridden, k)
			}
			seen[k] = fm[k]
		}
	}
	slices.Sort(overridden)
	return overridden
}

func (f Field) equal(o Field) bool {
	if (f.Index == nil) != (o.Index == nil) {
		return false
	}
	if f.Index != nil && *f.Index != *o.Index {
		return false
	}
	a, b := f, o
	a.Index, b.Index = nil, nil
	return a == b
}

// ToMapping expands a field map into a nested properties mapping:
//
//	{"properties": {"kibana": {"properties": {"alert": {...}}}}}
//
// Intermediate objects are created as needed. A field that is both declared
// and used as a parent of other fields keeps its own attributes next to the
// child properties.
func ToMapping(fm FieldMap) map[string]any {
	root := map[string]any{"properties": map[string]any{}}

	for _, path := range fm.Keys() {
		parts := strings.Split(path, ".")
		props := root["properties"].(map[string]any)

		for _, part := range parts[:len(parts)-1] {
			node, ok := props[part].(map[string]any)
			if !ok {
				node = map[string]any{}
				props[part] = node
			}
			child, ok := node["properties"].(map[string]any)
			if !ok {
				child = map[string]any{}
				node["properties"] = child
			}
			props = child
		}

		leaf := parts[len(parts)-1]
		node, ok := props[leaf].(map[string]any)
		if !ok {
			node = map[string]any{}
			props[leaf] = node
		}
		maps.Copy(node, fm[path].mapping())
	}

	return root
}

func (f Field) mapping() map[string]any {
	m := map[string]any{"type": f.Type}
	if f.Index != nil {
		m["index"] = *f.Index
	}
	if f.IgnoreAbove > 0 {
		m["ignore_above"] = f.IgnoreAbove
	}
	if f.ScalingFactor > 0 {
		m["scaling_factor"] = f.ScalingFactor
	}
	if f.Format != "" {
		m["format"] = f.Format
	}
	if f.Dynamic != "" {
		m["dynamic"] = dynamicValue(f.Dynamic)
	}
	return m
}

// DynamicValue renders a dynamic policy the way the backend expects it:
// booleans for "true" and "false", the string otherwise. Empty means strict.
func DynamicValue(d string) any {
	if d == "" {
		return DynamicStrict
	}
	return dynamicValue(d)
}

func dynamicValue(d string) any {
	switch d {
	case DynamicTrue:
		return true
	case DynamicFalse:
		return false
	default:
		return d
	}
}

// Validate checks that every path is well formed and every field has a type.
func (fm FieldMap) Validate() error {
	for _, k := range fm.Keys() {
		if k == "" || strings.HasPrefix(k, ".") || strings.HasSuffix(k, ".") || strings.Contains(k, "..") {
			return fmt.Errorf("invalid field path %q", k)
		}
		if fm[k].Type == "" {
			return fmt.Errorf("field %q has no type", k)
		}
	}
	return nil
}
