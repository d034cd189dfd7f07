// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"

	"github.com/flux-framework/flux-coral2/pkg/config"
	"github.com/flux-framework/flux-coral2/pkg/eventlog"
)

// FakeBroker is a canned Broker for tests.
type FakeBroker struct {
	Source       eventlog.Source
	NCores       int
	VNIPool      string
	CoresErr     error
	VNIPoolErr   error
	EventlogErr  error
}

var _ Broker = (*FakeBroker)(nil)

func (f *FakeBroker) EventlogSource(ctx context.Context, jobID string) (eventlog.Source, error) {
	if f.EventlogErr != nil {
		return nil, f.EventlogErr
	}
	return f.Source, nil
}

func (f *FakeBroker) CoresForLocalRank(ctx context.Context, jobID string) (int, error) {
	if f.CoresErr != nil {
		return 0, f.CoresErr
	}
	return f.NCores, nil
}

func (f *FakeBroker) VNIPoolUniverse(ctx context.Context) (string, error) {
	if f.VNIPoolErr != nil {
		return "", f.VNIPoolErr
	}
	if f.VNIPool != "" {
		return f.VNIPool, nil
	}
	return config.DefaultVNIPool, nil
}

func (f *FakeBroker) Close() error { return nil }
