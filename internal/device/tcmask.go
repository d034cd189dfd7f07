// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package device

// TCMaskDefault is the traffic-class bitmask assumed before any CXI
// service has been matched: all four classes permitted.
const TCMaskDefault = 0xf

// tcBit is the stable, Cray-MPICH-compatible bit assigned to each
// traffic class. This mapping is fixed by Cray MPICH, not by device
// ordering, so it is a package constant rather than something derived
// from the device's own class enumeration.
var tcBit = [numTrafficClasses]int{
	TCDedicatedAccess: 0x1,
	TCLowLatency:      0x2,
	TCBulkData:        0x4,
	TCBestEffort:      0x8,
}

// TCMask converts a service's traffic-class flags into the bitmask
// Cray MPICH expects in SLINGSHOT_TCS.
func TCMask(svc Service) int {
	mask := 0
	for tc, allowed := range svc.TrafficClasses {
		if allowed {
			mask |= tcBit[tc]
		}
	}
	return mask
}
