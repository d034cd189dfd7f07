// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/flux-framework/flux-coral2/internal/broker"
	"github.com/flux-framework/flux-coral2/internal/device"
	"github.com/flux-framework/flux-coral2/pkg/errors"
	"github.com/flux-framework/flux-coral2/pkg/eventlog"
)

// newBroker and newDeviceEnumerator are the seams through which this
// binary is wired to a live Flux broker connection and a real Cassini
// device enumerator. Both collaborators are external to this module
// (see internal/broker and internal/device package docs): the default
// hooks report that plainly instead of silently doing nothing, and a
// production wrapper or the test suite replaces them before Execute
// runs.
var newBroker = func() (broker.Broker, error) {
	return nil, errors.Transport("cmd.newbroker", nil, "no Flux broker connection wired into this build")
}

var newDeviceEnumerator = func() (device.Enumerator, error) {
	return nil, errors.Device("cmd.newdeviceenumerator", nil, "no Cassini device enumerator wired into this build")
}

// reservationEvent is the eventlog entry jobtap's cray-slingshot plugin
// posts once it has settled a job's VNI reservation.
const reservationEvent = "cray-slingshot"

// reservationTimeout bounds how long a prolog/epilog/jobinfo invocation
// waits for reservationEvent before giving up, matching the reference
// CLI's fixed 30-second eventlog_timeout.
const reservationTimeout = 30 * time.Second

// reservation is the cray-slingshot event context: the VNIs jobtap
// granted the job, in the order a CXI service's VNI restriction must
// match them.
type reservation struct {
	VNIs []int64 `json:"vnis"`
}

// jobInfo is the jobid/uid pair every subcommand but list/clean needs,
// taken from --jobid/--userid or the perilog environment.
type jobInfo struct {
	JobID string
	UID   int
}

// parseJobInfo resolves the job ID (and, if needUID, the owning UID)
// from flags with an environment fallback, mirroring parse_job_info's
// FLUX_JOB_ID / FLUX_JOB_USERID lookup.
func parseJobInfo(needUID bool) (jobInfo, error) {
	id := flagJobID
	if id == "" {
		id = os.Getenv("FLUX_JOB_ID")
	}
	if id == "" {
		return jobInfo{}, errors.Validation("cmd.parsejobinfo", "FLUX_JOB_ID is not set; try --jobid=ID")
	}

	info := jobInfo{JobID: id}
	if !needUID {
		return info, nil
	}

	uidStr := flagUserID
	if uidStr == "" {
		uidStr = os.Getenv("FLUX_JOB_USERID")
	}
	if uidStr == "" {
		return jobInfo{}, errors.Validation("cmd.parsejobinfo", "FLUX_JOB_USERID is not set; try --userid=UID")
	}
	uid, err := strconv.Atoi(uidStr)
	if err != nil {
		return jobInfo{}, errors.Validation("cmd.parsejobinfo", "invalid userid %q", uidStr)
	}
	info.UID = uid
	return info, nil
}

// lookupReservation watches jobID's eventlog for reservationEvent and
// decodes its context. A nil, nil return means the event never arrived
// before the job started running or was torn down — not an error, the
// same "no reservation" outcome eventlog_wait_for reports via a NULL
// context.
func lookupReservation(ctx context.Context, b broker.Broker, jobID string) (*reservation, error) {
	src, err := b.EventlogSource(ctx, jobID)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	waitCtx, cancel := context.WithTimeout(ctx, reservationTimeout)
	defer cancel()

	waiter := eventlog.NewWaiter(src)
	entry, err := waiter.WaitFor(waitCtx, reservationEvent)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	var res reservation
	if err := json.Unmarshal(entry.Context, &res); err != nil {
		return nil, errors.Validation("cmd.lookupreservation", "malformed cray-slingshot context: %v", err)
	}
	return &res, nil
}

// parseReservationVNIs validates res's VNI list and converts it to the
// uint32 form the device package's match/allocate helpers use: at most
// vnipool.MaxVNIsPerReservation entries, each a non-negative 16-bit VNI
// excluding the two Cassini-reserved values 1 and 10.
func parseReservationVNIs(res *reservation) ([]uint32, error) {
	if len(res.VNIs) > maxReservationVNIs {
		return nil, errors.Validation("cmd.parsereservationvnis", "reservation carries %d VNIs, more than the %d a CXI service can restrict to", len(res.VNIs), maxReservationVNIs)
	}
	vnis := make([]uint32, len(res.VNIs))
	for i, v := range res.VNIs {
		if v < 0 || v > 65535 || v == 1 || v == 10 {
			return nil, errors.Validation("cmd.parsereservationvnis", "reservation VNI %d is out of range or reserved", v)
		}
		vnis[i] = uint32(v)
	}
	return vnis, nil
}

// maxReservationVNIs mirrors CXI_SVC_MAX_VNIS, the most VNIs a single
// CXI service descriptor can restrict to.
const maxReservationVNIs = 4

// isBusyErr reports whether err is the KindBusy error Destroy reports
// for a service that is still in use (EBUSY).
func isBusyErr(err error) bool {
	return errors.IsBusy(err)
}
