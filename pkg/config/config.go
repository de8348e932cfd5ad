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

package config

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/NVIDIA/alertsd/pkg/defaults"
	"github.com/NVIDIA/alertsd/pkg/errors"
	"github.com/NVIDIA/alertsd/pkg/registry"
	"github.com/NVIDIA/alertsd/pkg/version"
)

// Backend types.
const (
	BackendMemory     = "memory"
	BackendREST       = "rest"
	BackendKubernetes = "kubernetes"
	BackendSQLite     = "sqlite"
)

// Default values applied by Load.
const (
	DefaultKubernetesNamespace = "alerts-system"
	DefaultSQLitePath          = "alertsd.db"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the service file.
type Config struct {
	// Version is stamped into index template metadata.
	Version string `yaml:"version" validate:"omitempty,max=64"`

	// InstallTimeout bounds each install primitive. Zero waits indefinitely.
	InstallTimeout time.Duration `yaml:"installTimeout" validate:"gte=0"`

	Backend Backend `yaml:"backend"`

	Contexts []Context `yaml:"contexts"`
}

// Backend selects and configures the resource backend.
type Backend struct {
	Type       string             `yaml:"type" validate:"required,oneof=memory rest kubernetes sqlite"`
	REST       *RESTBackend       `yaml:"rest,omitempty" validate:"required_if=Type rest"`
	Kubernetes *KubernetesBackend `yaml:"kubernetes,omitempty"`
	SQLite     *SQLiteBackend     `yaml:"sqlite,omitempty"`
}

// RESTBackend configures the search engine REST backend.
type RESTBackend struct {
	URL                string        `yaml:"url" validate:"required,url"`
	Username           string        `yaml:"username,omitempty" validate:"required_with=Password"`
	Password           string        `yaml:"password,omitempty"`
	APIKey             string        `yaml:"apiKey,omitempty" validate:"excluded_with=Username"`
	InsecureSkipVerify bool          `yaml:"insecureSkipVerify,omitempty"`
	Timeout            time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	RetryCount         *int          `yaml:"retryCount,omitempty" validate:"omitempty,gte=0,lte=10"`
}

// KubernetesBackend configures the ConfigMap backend.
type KubernetesBackend struct {
	Namespace  string `yaml:"namespace" validate:"required,max=63"`
	Kubeconfig string `yaml:"kubeconfig,omitempty"`
}

// SQLiteBackend configures the embedded database backend.
type SQLiteBackend struct {
	Path string `yaml:"path" validate:"required"`
}

// Context is a context definition with its install timeout.
type Context struct {
	registry.Definition `yaml:",inline"`

	// Timeout overrides InstallTimeout for this context.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		InstallTimeout: defaults.InstallTimeout,
		Backend:        Backend{Type: BackendMemory},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads and validates a service file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, fmt.Sprintf("failed to open config %s", path), err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, fmt.Sprintf("invalid config %s", path), err)
	}
	return cfg, nil
}

// Parse decodes and validates a service file.
func Parse(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(raw)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in the backend type and the settings of the selected
// backend. Load and Parse call it; callers that change the backend after
// loading call it again.
func (c *Config) ApplyDefaults() {
	if c.Backend.Type == "" {
		c.Backend.Type = BackendMemory
	}
	switch c.Backend.Type {
	case BackendKubernetes:
		if c.Backend.Kubernetes == nil {
			c.Backend.Kubernetes = &KubernetesBackend{}
		}
		if c.Backend.Kubernetes.Namespace == "" {
			c.Backend.Kubernetes.Namespace = DefaultKubernetesNamespace
		}
	case BackendSQLite:
		if c.Backend.SQLite == nil {
			c.Backend.SQLite = &SQLiteBackend{}
		}
		if c.Backend.SQLite.Path == "" {
			c.Backend.SQLite.Path = DefaultSQLitePath
		}
	}
}

// Validate checks the configuration and every context definition. Context
// names must be unique and a non-empty version must parse.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest, "invalid configuration", err)
	}
	if c.Version != "" {
		if _, err := version.ParseVersion(c.Version); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid version %q", c.Version), err)
		}
	}

	seen := make(map[string]struct{}, len(c.Contexts))
	for i, ctx := range c.Contexts {
		if err := ctx.Definition.Validate(); err != nil {
			return errors.WrapWithContext(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid context at index %d", i), err,
				map[string]any{"index": i})
		}
		if ctx.Timeout < 0 {
			return errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("context %s: timeout must not be negative", ctx.Context))
		}
		if _, dup := seen[ctx.Context]; dup {
			return errors.New(errors.ErrCodeConflict,
				fmt.Sprintf("context %s is listed more than once", ctx.Context))
		}
		seen[ctx.Context] = struct{}{}
	}
	return nil
}
