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

package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/alertsd/pkg/errors"
	"github.com/NVIDIA/alertsd/pkg/fieldmap"
)

func betaDefinition() Definition {
	return Definition{
		Context: "beta",
		Mappings: fieldmap.Mappings{
			Dynamic:  fieldmap.DynamicFalse,
			FieldMap: fieldmap.FieldMap{"beta.score": {Type: "float"}},
		},
		UseECS:       true,
		IsSpaceAware: true,
	}
}

func TestRegisterIdenticalIsNoop(t *testing.T) {
	r := New()

	added, err := r.Register(betaDefinition())
	require.NoError(t, err)
	assert.True(t, added)

	added, err = r.Register(betaDefinition())
	require.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, []string{"beta"}, r.Contexts())
}

func TestRegisterNilAndEmptyFieldMapAreIdentical(t *testing.T) {
	r := New()

	_, err := r.Register(Definition{Context: "alpha"})
	require.NoError(t, err)

	added, err := r.Register(Definition{Context: "alpha", Mappings: fieldmap.Mappings{FieldMap: fieldmap.FieldMap{}}})
	require.NoError(t, err)
	assert.False(t, added)
}

func TestRegisterConflict(t *testing.T) {
	r := New()
	_, err := r.Register(betaDefinition())
	require.NoError(t, err)

	changed := betaDefinition()
	changed.Mappings.FieldMap = fieldmap.FieldMap{"beta.score": {Type: "long"}}

	added, err := r.Register(changed)
	require.Error(t, err)
	assert.False(t, added)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
	assert.Contains(t, err.Error(), "beta has already been registered with different options")

	got, ok := r.Lookup("beta")
	require.True(t, ok)
	assert.Equal(t, "float", got.Mappings.FieldMap["beta.score"].Type)
}

func TestRegisteredDefinitionIsImmutable(t *testing.T) {
	r := New()
	def := betaDefinition()
	_, err := r.Register(def)
	require.NoError(t, err)

	def.Mappings.FieldMap["beta.injected"] = fieldmap.Field{Type: "keyword"}
	got, _ := r.Lookup("beta")
	got.Mappings.FieldMap["beta.other"] = fieldmap.Field{Type: "keyword"}

	again, _ := r.Lookup("beta")
	assert.Len(t, again.Mappings.FieldMap, 1)
}

func TestLookupAndIsRegistered(t *testing.T) {
	r := New()
	assert.False(t, r.IsRegistered("beta"))
	_, ok := r.Lookup("beta")
	assert.False(t, ok)

	_, err := r.Register(betaDefinition())
	require.NoError(t, err)
	assert.True(t, r.IsRegistered("beta"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr bool
	}{
		{"valid", betaDefinition(), false},
		{"dotted name", Definition{Context: "observability.apm"}, false},
		{"empty name", Definition{}, true},
		{"uppercase name", Definition{Context: "Beta"}, true},
		{"leading dash", Definition{Context: "-beta"}, true},
		{"reserved framework", Definition{Context: "framework"}, true},
		{"reserved ecs", Definition{Context: "ecs"}, true},
		{"reserved legacy", Definition{Context: "legacy-alert"}, true},
		{"bad dynamic", Definition{Context: "beta", Mappings: fieldmap.Mappings{Dynamic: "runtime"}}, true},
		{"untyped field", Definition{Context: "beta", Mappings: fieldmap.Mappings{FieldMap: fieldmap.FieldMap{"a": {}}}}, true},
		{"bad field path", Definition{Context: "beta", Mappings: fieldmap.Mappings{FieldMap: fieldmap.FieldMap{"a..b": {Type: "keyword"}}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRequest))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConcurrentRegister(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	added := make(chan bool, 20)

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.Register(betaDefinition())
			assert.NoError(t, err)
			added <- ok
		}()
	}
	wg.Wait()
	close(added)

	n := 0
	for ok := range added {
		if ok {
			n++
		}
	}
	assert.Equal(t, 1, n)
}
