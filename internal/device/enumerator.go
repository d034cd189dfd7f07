// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package device

import "context"

// Enumerator lists local Cassini devices and the CXI services configured
// on each, the operations append_cxi_service_match and add_devices in
// the reference shell plugin perform through libcxi.
type Enumerator interface {
	// ListDevices returns every local Cassini NIC, in enumeration
	// order (cxil_get_device_list).
	ListDevices(ctx context.Context) ([]Device, error)

	// Services returns the CXI services configured on dev
	// (cxil_open_device + cxil_get_svc_list), in service-list order.
	// A failure to open the device or read its service list is a
	// KindDevice error: the caller skips the device and keeps going,
	// it never aborts the whole enumeration.
	Services(ctx context.Context, dev Device) ([]Service, error)

	// Allocate creates a new CXI service on dev restricted to spec's
	// uid and VNI list, with resource limits scaled to spec.NCores,
	// and returns its assigned service ID (cxil_alloc_svc). The
	// reference implementation's per-resource MIN(n*ncores, device
	// capacity) scaling is an implementation's to perform, since only
	// it knows the device's true capacity.
	Allocate(ctx context.Context, dev Device, spec ServiceSpec) (id int, err error)

	// Destroy removes the CXI service identified by svcID on dev
	// (cxil_destroy_svc). A busy service (still in use) is reported
	// as a KindBusy error so callers can distinguish it from other
	// destroy failures for retry purposes.
	Destroy(ctx context.Context, dev Device, svcID int) error
}

// ServiceSpec describes a CXI service to create, the fields
// allocate_cxi_service_device populates on struct cxi_svc_desc before
// calling cxil_alloc_svc.
type ServiceSpec struct {
	UID    int
	VNIs   []uint32
	NCores int
}
