// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"testing"

	"github.com/flux-framework/flux-coral2/pkg/idset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchReservation(t *testing.T) {
	base := Service{
		IsSystemService:   false,
		RestrictedMembers: true,
		UID:               1001,
		VNIs:              []uint32{100, 200},
	}

	cases := []struct {
		name string
		svc  Service
		uid  int
		vnis []uint32
		want bool
	}{
		{"exact_match", base, 1001, []uint32{100, 200}, true},
		{"wrong_uid", base, 2002, []uint32{100, 200}, false},
		{"wrong_order", base, 1001, []uint32{200, 100}, false},
		{"wrong_length", base, 1001, []uint32{100}, false},
		{"system_service", Service{IsSystemService: true, RestrictedMembers: true, UID: 1001, VNIs: []uint32{100, 200}}, 1001, []uint32{100, 200}, false},
		{"unrestricted_members", Service{RestrictedMembers: false, UID: 1001, VNIs: []uint32{100, 200}}, 1001, []uint32{100, 200}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchReservation(tc.svc, tc.uid, tc.vnis))
		})
	}
}

func TestMatchVNIPool(t *testing.T) {
	pool, err := idset.Decode("100-199")
	require.NoError(t, err)

	assert.True(t, MatchVNIPool(Service{VNIs: []uint32{50, 150}}, pool))
	assert.False(t, MatchVNIPool(Service{VNIs: []uint32{50, 60}}, pool))
	assert.False(t, MatchVNIPool(Service{IsSystemService: true, VNIs: []uint32{150}}, pool))
}
