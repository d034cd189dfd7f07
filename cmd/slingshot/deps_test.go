// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"testing"

	"github.com/flux-framework/flux-coral2/internal/broker"
	"github.com/flux-framework/flux-coral2/pkg/eventlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobInfo_FromFlags(t *testing.T) {
	saveJobID, saveUserID := flagJobID, flagUserID
	t.Cleanup(func() { flagJobID, flagUserID = saveJobID, saveUserID })
	flagJobID = "f1"
	flagUserID = "1001"

	info, err := parseJobInfo(true)
	require.NoError(t, err)
	assert.Equal(t, "f1", info.JobID)
	assert.Equal(t, 1001, info.UID)
}

func TestParseJobInfo_MissingJobID(t *testing.T) {
	saveJobID := flagJobID
	t.Cleanup(func() { flagJobID = saveJobID })
	flagJobID = ""
	t.Setenv("FLUX_JOB_ID", "")

	_, err := parseJobInfo(false)
	assert.Error(t, err)
}

func TestParseJobInfo_UIDNotNeeded(t *testing.T) {
	saveJobID := flagJobID
	t.Cleanup(func() { flagJobID = saveJobID })
	flagJobID = "f1"

	info, err := parseJobInfo(false)
	require.NoError(t, err)
	assert.Equal(t, "f1", info.JobID)
}

func TestParseReservationVNIs_Valid(t *testing.T) {
	vnis, err := parseReservationVNIs(&reservation{VNIs: []int64{100, 200}})
	require.NoError(t, err)
	assert.Equal(t, []uint32{100, 200}, vnis)
}

func TestParseReservationVNIs_TooMany(t *testing.T) {
	_, err := parseReservationVNIs(&reservation{VNIs: []int64{1, 2, 3, 4, 5}})
	assert.Error(t, err)
}

func TestParseReservationVNIs_RejectsReservedAndOutOfRange(t *testing.T) {
	for _, bad := range []int64{1, 10, -1, 65536} {
		_, err := parseReservationVNIs(&reservation{VNIs: []int64{bad}})
		assert.Error(t, err, "vni %d", bad)
	}
}

func TestLookupReservation_FindsEvent(t *testing.T) {
	entry, err := eventlog.Decode([]byte(`{"name":"cray-slingshot","timestamp":1.0,"context":{"vnis":[100,200]}}` + "\n"))
	require.NoError(t, err)
	fb := &broker.FakeBroker{Source: eventlog.NewFakeSource(entry)}

	res, err := lookupReservation(context.Background(), fb, "f1")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []int64{100, 200}, res.VNIs)
}

func TestLookupReservation_NoMatchReturnsNil(t *testing.T) {
	entry, err := eventlog.Decode([]byte(`{"name":"start","timestamp":1.0}` + "\n"))
	require.NoError(t, err)
	fb := &broker.FakeBroker{Source: eventlog.NewFakeSource(entry)}

	res, err := lookupReservation(context.Background(), fb, "f1")
	require.NoError(t, err)
	assert.Nil(t, res)
}
