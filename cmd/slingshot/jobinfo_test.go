// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"testing"

	"github.com/flux-framework/flux-coral2/internal/broker"
	"github.com/flux-framework/flux-coral2/pkg/eventlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunJobinfo_PrintsReservationJSON(t *testing.T) {
	saveJobID := flagJobID
	t.Cleanup(func() { flagJobID = saveJobID })
	flagJobID = "f1"

	entry, err := eventlog.Decode([]byte(`{"name":"cray-slingshot","timestamp":1.0,"context":{"vnis":[100,200]}}` + "\n"))
	require.NoError(t, err)
	saveNewBroker := newBroker
	t.Cleanup(func() { newBroker = saveNewBroker })
	newBroker = func() (broker.Broker, error) {
		return &broker.FakeBroker{Source: eventlog.NewFakeSource(entry)}, nil
	}

	var out bytes.Buffer
	jobinfoCmd.SetOut(&out)
	err = runJobinfo(jobinfoCmd, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"vnis":[100,200]}`, out.String())
}

func TestRunJobinfo_NoReservationIsError(t *testing.T) {
	saveJobID := flagJobID
	t.Cleanup(func() { flagJobID = saveJobID })
	flagJobID = "f1"

	entry, err := eventlog.Decode([]byte(`{"name":"start","timestamp":1.0}` + "\n"))
	require.NoError(t, err)
	saveNewBroker := newBroker
	t.Cleanup(func() { newBroker = saveNewBroker })
	newBroker = func() (broker.Broker, error) {
		return &broker.FakeBroker{Source: eventlog.NewFakeSource(entry)}, nil
	}

	err = runJobinfo(jobinfoCmd, nil)
	assert.Error(t, err)
}
