// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package config loads YAML configuration files overlaid with environment
// variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Validator can optionally be implemented by configuration to do cross-field
// validation.
type Validator interface {
	IsValid() error
}

// EnvMapping maps an environment variable onto a configuration.
type EnvMapping[T any] struct {
	Required bool
	Func     func(cfg *T, val string) error
}

// Load fills cfg from the YAML file at path (if path is non-empty), then from
// the environment, then calls IsValid if cfg implements Validator.
func Load[T any](cfg *T, path string, env map[string]EnvMapping[T]) error {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()
		if err := MergeYAML(cfg, f); err != nil {
			return err
		}
	}
	if err := MergeEnv(cfg, env); err != nil {
		return err
	}
	if v, ok := any(cfg).(Validator); ok {
		if err := v.IsValid(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return nil
}

// MergeYAML decodes YAML from r into cfg. References of the form ${VAR} are
// expanded from the environment first; ${VAR:-default} supplies a default for
// unset variables. Unknown keys are rejected.
func MergeYAML[T any](cfg *T, r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	var missing []string
	expanded := os.Expand(string(raw), func(key string) string {
		if i := strings.Index(key, ":-"); i != -1 {
			if val, ok := os.LookupEnv(key[:i]); ok {
				return val
			}
			return key[i+2:]
		}
		val, ok := os.LookupEnv(key)
		if !ok {
			missing = append(missing, key)
		}
		return val
	})
	if len(missing) > 0 {
		return fmt.Errorf("config expects the following environment variables to be set: %v", missing)
	}
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// MergeEnv applies every mapping whose variable is set. It reports all
// failures rather than stopping at the first.
func MergeEnv[T any](cfg *T, mappings map[string]EnvMapping[T]) error {
	var errs error
	for key, m := range mappings {
		val, ok := os.LookupEnv(key)
		if !ok {
			if m.Required {
				errs = errors.Join(errs, fmt.Errorf("missing required env variable %s", key))
			}
			continue
		}
		if err := m.Func(cfg, val); err != nil {
			errs = errors.Join(errs, fmt.Errorf("env variable %s: %w", key, err))
		}
	}
	return errs
}
