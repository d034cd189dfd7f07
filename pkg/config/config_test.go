// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultVNIPool, cfg.VNIPool)
	assert.Equal(t, 1, cfg.VNIsPerJob)
	assert.True(t, cfg.VNIReserveFatal)
	assert.NoError(t, cfg.Validate())
}

func TestDecodeInto_OverlaysOnlyPresentKeys(t *testing.T) {
	cfg := NewDefault()
	err := DecodeInto(cfg, []byte(`
[cray-slingshot]
vnis-per-job = 2
`))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.VNIsPerJob)
	// vni-pool and vni-reserve-fatal were absent, so defaults survive.
	assert.Equal(t, DefaultVNIPool, cfg.VNIPool)
	assert.True(t, cfg.VNIReserveFatal)
}

func TestDecodeInto_AllKeys(t *testing.T) {
	cfg := NewDefault()
	err := DecodeInto(cfg, []byte(`
[cray-slingshot]
vni-pool = "1024-2047"
vnis-per-job = 4
vni-reserve-fatal = false
`))
	require.NoError(t, err)
	assert.Equal(t, "1024-2047", cfg.VNIPool)
	assert.Equal(t, 4, cfg.VNIsPerJob)
	assert.False(t, cfg.VNIReserveFatal)
}

func TestDecodeInto_MalformedTOML(t *testing.T) {
	cfg := NewDefault()
	err := DecodeInto(cfg, []byte(`not valid toml = = =`))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}

func TestLoad_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broker.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[cray-slingshot]
vni-pool = "2-9"
vnis-per-job = 2
vni-reserve-fatal = false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2-9", cfg.VNIPool)
	assert.Equal(t, 2, cfg.VNIsPerJob)
	assert.False(t, cfg.VNIReserveFatal)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"valid", &Config{VNIsPerJob: 0}, false},
		{"valid max", &Config{VNIsPerJob: MaxVNIsPerJob}, false},
		{"negative", &Config{VNIsPerJob: -1}, true},
		{"too large", &Config{VNIsPerJob: MaxVNIsPerJob + 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
