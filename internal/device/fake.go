// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"context"
	"sync/atomic"

	"github.com/flux-framework/flux-coral2/pkg/errors"
)

// FakeEnumerator is a canned Enumerator for tests: it returns the
// Devices and Services maps it was constructed with, or the configured
// error for a given device name. Allocate assigns sequential service
// IDs starting at NextID; Destroy reports a KindBusy error for any
// service ID listed in BusyIDs instead of removing it.
type FakeEnumerator struct {
	Devices     []Device
	ServicesFor map[string][]Service
	ErrFor      map[string]error
	ListErr     error

	NextID     int
	BusyIDs    map[int]bool
	Allocated  []ServiceSpec
	Destroyed  []int
	nextIDAuto int64
}

var _ Enumerator = (*FakeEnumerator)(nil)

func (f *FakeEnumerator) ListDevices(ctx context.Context) ([]Device, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Devices, nil
}

func (f *FakeEnumerator) Services(ctx context.Context, dev Device) ([]Service, error) {
	if err, ok := f.ErrFor[dev.Name]; ok {
		return nil, err
	}
	return f.ServicesFor[dev.Name], nil
}

func (f *FakeEnumerator) Allocate(ctx context.Context, dev Device, spec ServiceSpec) (int, error) {
	f.Allocated = append(f.Allocated, spec)
	base := f.NextID
	if base == 0 {
		base = 1
	}
	id := base + int(atomic.AddInt64(&f.nextIDAuto, 1)) - 1
	return id, nil
}

func (f *FakeEnumerator) Destroy(ctx context.Context, dev Device, svcID int) error {
	if f.BusyIDs[svcID] {
		return errors.Busy("device.fake.destroy", nil, "service %d is busy", svcID)
	}
	f.Destroyed = append(f.Destroyed, svcID)
	return nil
}
