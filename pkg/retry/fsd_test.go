// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFSD(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want float64
	}{
		{"bare_seconds", "30", 30},
		{"seconds_suffix", "30s", 30},
		{"minutes", "2m", 120},
		{"hours", "1h", 3600},
		{"days", "1d", 86400},
		{"fractional", "1.5s", 1.5},
		{"zero", "0", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseFSD(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseFSD_Infinity(t *testing.T) {
	for _, in := range []string{"infinity", "inf", "INFINITY"} {
		got, err := ParseFSD(in)
		require.NoError(t, err)
		assert.True(t, math.IsInf(got, 1))
	}
}

func TestParseFSD_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "-5s", "5x"} {
		_, err := ParseFSD(in)
		assert.Error(t, err, "input %q", in)
	}
}
