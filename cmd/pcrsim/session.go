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

package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/go-pcrsim/digest"
	"github.com/google/go-pcrsim/internal/config"
	"github.com/google/go-pcrsim/register"
)

// SessionConfig describes a scripted simulator session.
type SessionConfig struct {
	Algorithm    string              `yaml:"algorithm"`
	LogLevel     string              `yaml:"log_level"`
	Measurements []MeasurementConfig `yaml:"measurements"`
	Replays      []ReplayConfig      `yaml:"replays"`
	Expect       []ExpectConfig      `yaml:"expect"`
}

// MeasurementConfig is a single logged extend.
type MeasurementConfig struct {
	Description string `yaml:"description"`
	PCR         int    `yaml:"pcr"`
	Value       string `yaml:"value"`
}

// ReplayConfig replays either a measurement file or an inline list into one
// PCR. Relative file paths resolve against the config file's directory.
type ReplayConfig struct {
	PCR          int      `yaml:"pcr"`
	File         string   `yaml:"file"`
	Measurements []string `yaml:"measurements"`
	Expect       string   `yaml:"expect"`
}

// ExpectConfig is a PCR value checked once the session has run.
type ExpectConfig struct {
	PCR   int    `yaml:"pcr"`
	Value string `yaml:"value"`
}

func defaultSessionConfig() SessionConfig {
	return SessionConfig{
		Algorithm: "sha256",
		LogLevel:  "info",
	}
}

var sessionEnv = map[string]config.EnvMapping[SessionConfig]{
	"PCRSIM_ALGORITHM": {
		Func: func(cfg *SessionConfig, val string) error {
			cfg.Algorithm = val
			return nil
		},
	},
	"PCRSIM_LOG_LEVEL": {
		Func: func(cfg *SessionConfig, val string) error {
			cfg.LogLevel = val
			return nil
		},
	},
}

// IsValid implements config.Validator.
func (c *SessionConfig) IsValid() error {
	var errs error
	if _, ok := digest.ParseAlgorithm(c.Algorithm); !ok {
		errs = errors.Join(errs, fmt.Errorf("unknown algorithm %q", c.Algorithm))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = errors.Join(errs, err)
	}
	for i, m := range c.Measurements {
		if err := checkPCR(m.PCR); err != nil {
			errs = errors.Join(errs, fmt.Errorf("measurements[%d]: %w", i, err))
		}
		if m.Value == "" {
			errs = errors.Join(errs, fmt.Errorf("measurements[%d]: value is required", i))
		}
	}
	for i, r := range c.Replays {
		if err := checkPCR(r.PCR); err != nil {
			errs = errors.Join(errs, fmt.Errorf("replays[%d]: %w", i, err))
		}
		if r.File != "" && len(r.Measurements) > 0 {
			errs = errors.Join(errs, fmt.Errorf("replays[%d]: file and measurements are mutually exclusive", i))
		}
	}
	for i, e := range c.Expect {
		if err := checkPCR(e.PCR); err != nil {
			errs = errors.Join(errs, fmt.Errorf("expect[%d]: %w", i, err))
		}
	}
	return errs
}

func (c *SessionConfig) algorithm() digest.Algorithm {
	alg, _ := digest.ParseAlgorithm(c.Algorithm)
	return alg
}

func checkPCR(index int) error {
	if index < 0 || index >= register.NumPCRs {
		return fmt.Errorf("pcr %d: %w", index, register.ErrInvalidIndex)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}
