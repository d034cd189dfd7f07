// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package config loads the [cray-slingshot] section of the broker's TOML
// configuration.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// MaxVNIsPerJob is the CXI service VNI-list capacity (CXI_SVC_MAX_VNIS in
// the reference implementation); vnis-per-job and any per-job vnicount
// request are bounded by it.
const MaxVNIsPerJob = 4

// DefaultVNIPool is the universe handed to the pool when no vni-pool
// directive is present.
const DefaultVNIPool = "1024-65535"

// Config holds the validated [cray-slingshot] configuration table.
type Config struct {
	// VNIPool is an idset range spec of the VNIs available for
	// reservation. Empty means the pool is unconfigured: jobtap loads
	// without error, but every request for one or more VNIs fails with
	// an exhaustion error, which fails the run handler when
	// VNIReserveFatal is set and otherwise yields an empty-reason event.
	VNIPool string `toml:"vni-pool"`

	// VNIsPerJob is the default reservation size for jobs that don't
	// specify cray-slingshot.vnicount as a shell option.
	VNIsPerJob int `toml:"vnis-per-job"`

	// VNIReserveFatal, when true, raises a job exception on a failed
	// reservation instead of posting an empty-reason event.
	VNIReserveFatal bool `toml:"vni-reserve-fatal"`
}

// table is the top-level TOML document shape this package decodes.
type table struct {
	CraySlingshot Config `toml:"cray-slingshot"`
}

// NewDefault returns the configuration jobtap starts with before any
// conf.update callback has run.
func NewDefault() *Config {
	return &Config{
		VNIPool:         DefaultVNIPool,
		VNIsPerJob:      1,
		VNIReserveFatal: true,
	}
}

// Load reads and decodes the [cray-slingshot] table from the TOML file at
// path, overlaying NewDefault() so an omitted key keeps its default.
func Load(path string) (*Config, error) {
	cfg := NewDefault()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.KindValidation, "config.load", err, "reading %s", path)
	}
	if err := DecodeInto(cfg, data); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DecodeInto overlays the [cray-slingshot] table found in data onto cfg.
// Keys absent from data leave cfg's current value untouched, matching the
// broker's "unspecified keys keep their previous value" conf.update
// semantics.
func DecodeInto(cfg *Config, data []byte) error {
	t := table{CraySlingshot: *cfg}
	if _, err := toml.Decode(string(data), &t); err != nil {
		return errors.Wrap(errors.KindValidation, "config.decode", err, "malformed cray-slingshot config")
	}
	*cfg = t.CraySlingshot
	return nil
}

// Validate checks invariants Load and DecodeInto cannot enforce through
// decoding alone.
func (c *Config) Validate() error {
	if c.VNIsPerJob < 0 || c.VNIsPerJob > MaxVNIsPerJob {
		return errors.Validation("config.validate", "vnis-per-job %d out of range [0, %d]", c.VNIsPerJob, MaxVNIsPerJob)
	}
	return nil
}
