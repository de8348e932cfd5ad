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


package version

import (
	"errors"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Version
		wantErr error
	}{
		{name: "full", input: "8.9.0", want: Version{Major: 8, Minor: 9, Patch: 0, Precision: 3}},
		{name: "v prefix", input: "v8.9.1", want: Version{Major: 8, Minor: 9, Patch: 1, Precision: 3}},
		{name: "major minor", input: "8.9", want: Version{Major: 8, Minor: 9, Precision: 2}},
		{name: "major only", input: "8", want: Version{Major: 8, Precision: 1}},
		{name: "snapshot", input: "8.9.0-SNAPSHOT", want: Version{Major: 8, Minor: 9, Precision: 3, Extras: "-SNAPSHOT"}},
		{name: "build metadata with dots", input: "8.9.0+build.7", want: Version{Major: 8, Minor: 9, Precision: 3, Extras: "+build.7"}},
		{name: "empty", input: "", wantErr: ErrEmptyVersion},
		{name: "too many", input: "1.2.3.4", wantErr: ErrTooManyComponents},
		{name: "non numeric", input: "a.b", wantErr: ErrNonNumeric},
		{name: "empty component", input: "1..2", wantErr: ErrNonNumeric},
		{name: "negative", input: "-1", wantErr: ErrNegativeComponent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseVersion(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVersion(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	tests := []struct {
		input string
		str   string
		full  string
	}{
		{"8", "8", "8"},
		{"8.9", "8.9", "8.9"},
		{"v8.9.0", "8.9.0", "8.9.0"},
		{"8.9.0-SNAPSHOT", "8.9.0", "8.9.0-SNAPSHOT"},
	}
	for _, tt := range tests {
		v := MustParseVersion(tt.input)
		if v.String() != tt.str {
			t.Errorf("String(%q) = %q, want %q", tt.input, v.String(), tt.str)
		}
		if v.Full() != tt.full {
			t.Errorf("Full(%q) = %q, want %q", tt.input, v.Full(), tt.full)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"8.9.0", "8.9.0", 0},
		{"8.9.0", "8.10.0", -1},
		{"9.0.0", "8.10.0", 1},
		{"8.9.1", "8.9.0", 1},
		{"8.9", "8.9.7", 0},
		{"8", "8.1.1", 0},
		{"8.9.0-SNAPSHOT", "8.9.0", 0},
	}
	for _, tt := range tests {
		got := MustParseVersion(tt.a).Compare(MustParseVersion(tt.b))
		if got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMustParseVersionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParseVersion did not panic on invalid input")
		}
	}()
	MustParseVersion("not-a-version")
}

func TestIsValid(t *testing.T) {
	if (Version{}).IsValid() {
		t.Error("zero Version should not be valid")
	}
	if !(Version{Major: 1, Precision: 1}).IsValid() {
		t.Error("1 should be valid")
	}
	if (Version{Major: -1, Precision: 1}).IsValid() {
		t.Error("negative major should not be valid")
	}
}
