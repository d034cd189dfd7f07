// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package retry provides the FSD (Flux-Service-Duration) duration format
// used by the CLI's --retry-busy option, and the
// busy-class retry loop built on top of it.
package retry

import (
	"math"
	"strconv"
	"strings"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// ParseFSD parses a Flux-Service-Duration string: a non-negative decimal
// number optionally followed by a unit suffix (s, m, h, d; seconds if
// omitted), or the literal "infinity"/"inf" for no duration limit,
// returned as +Inf so RetryBusy's "timeoutSeconds > 0" retry-budget
// check treats it as an unbounded budget rather than the "no retry
// budget at all" zero/negative case.
//
// Grounded on fsd_parse_duration's two recognized forms; this module
// does not implement the upstream's week/month/year suffixes, which the
// CLI's --retry-busy option never uses in practice.
func ParseFSD(s string) (timeoutSeconds float64, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Validation("retry.parsefsd", "empty FSD string")
	}

	lower := strings.ToLower(s)
	if lower == "infinity" || lower == "inf" {
		return math.Inf(1), nil
	}

	unit := 1.0
	numeric := s
	switch last := lower[len(lower)-1]; last {
	case 's':
		unit = 1
		numeric = s[:len(s)-1]
	case 'm':
		unit = 60
		numeric = s[:len(s)-1]
	case 'h':
		unit = 3600
		numeric = s[:len(s)-1]
	case 'd':
		unit = 86400
		numeric = s[:len(s)-1]
	}

	value, parseErr := strconv.ParseFloat(numeric, 64)
	if parseErr != nil || value < 0 {
		return 0, errors.Validation("retry.parsefsd", "invalid FSD %q", s)
	}
	return value * unit, nil
}
