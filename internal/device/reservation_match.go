// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package device

import "github.com/flux-framework/flux-coral2/pkg/idset"

// MatchReservation reports whether svc is the CXI service flux-slingshot
// epilog should destroy for a completed job: not a system service,
// restricted to uid, and VNI-restricted to exactly vnis, in order. This
// is a stricter test than MatchService (which the shell plugin uses and
// which never looks at UID) — epilog must find the one service it
// created in prolog, not merely one that happens to carry the same VNIs.
func MatchReservation(svc Service, uid int, vnis []uint32) bool {
	if svc.IsSystemService {
		return false
	}
	if !svc.RestrictedMembers || svc.UID != uid {
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

// MatchVNIPool reports whether svc carries any VNI drawn from pool — the
// looser membership test "clean" uses to sweep every service drawn from
// the configured pool regardless of owner, rather than one particular
// job's reservation.
func MatchVNIPool(svc Service, pool *idset.IDSet) bool {
	if svc.IsSystemService {
		return false
	}
	for _, v := range svc.VNIs {
		if pool.Test(v) {
			return true
		}
	}
	return false
}
