// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/flux-framework/flux-coral2/internal/broker"
	"github.com/flux-framework/flux-coral2/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetryBusy_EmptyIsZero(t *testing.T) {
	timeout, err := parseRetryBusy("")
	require.NoError(t, err)
	assert.Equal(t, float64(0), timeout)
}

func TestParseRetryBusy_ParsesFSD(t *testing.T) {
	timeout, err := parseRetryBusy("30s")
	require.NoError(t, err)
	assert.Equal(t, float64(30), timeout)
}

func TestRunClean_DestroysServicesInPool(t *testing.T) {
	saveNewBroker, saveNewEnum := newBroker, newDeviceEnumerator
	t.Cleanup(func() { newBroker, newDeviceEnumerator = saveNewBroker, saveNewEnum })

	newBroker = func() (broker.Broker, error) {
		return &broker.FakeBroker{VNIPool: "100-199"}, nil
	}
	enum := &device.FakeEnumerator{
		Devices: []device.Device{{ID: 0, Name: "cxi0"}},
		ServicesFor: map[string][]device.Service{
			"cxi0": {
				{ID: 5, VNIs: []uint32{150}},
				{ID: 6, VNIs: []uint32{9999}},
			},
		},
	}
	newDeviceEnumerator = func() (device.Enumerator, error) { return enum, nil }

	err := runClean(cleanCmd, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, enum.Destroyed)
}
