// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package device

// MatchService reports whether svc is a candidate for the reservation
// named by vnis: it must be enabled, not a system service, and list
// exactly the same VNIs in the same order. Order-sensitivity mirrors the
// reference match_cxi_service, which assumes VNIs appear in the same
// order in both arrays and does not bother sorting either side.
func MatchService(svc Service, vnis []uint32) bool {
	if !svc.Enabled || svc.IsSystemService {
		return false
	}
	if len(svc.VNIs) != len(vnis) {
		return false
	}
	for i, v := range vnis {
		if svc.VNIs[i] != v {
			return false
		}
	}
	return true
}

// FindMatch returns the first service in svcs matching vnis, and true.
// If none matches, it returns the zero Service and false.
func FindMatch(svcs []Service, vnis []uint32) (Service, bool) {
	for _, svc := range svcs {
		if MatchService(svc, vnis) {
			return svc, true
		}
	}
	return Service{}, false
}
