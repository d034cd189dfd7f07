// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package vnipool manages the cluster-wide pool of Slingshot VNIs
// (Virtual Network Identifiers) and the per-job reservations carved out
// of it. It is the Go counterpart of the reference plugin's vnipool.c:
// the same universe/free-set/reservations bookkeeping, reshaped from a
// single C translation unit into a small mutex-guarded Go type.
package vnipool

import (
	"sync"
	"time"

	"github.com/flux-framework/flux-coral2/pkg/errors"
	"github.com/flux-framework/flux-coral2/pkg/idset"
	"github.com/flux-framework/flux-coral2/pkg/logging"
	"github.com/flux-framework/flux-coral2/pkg/metrics"
)

// MaxVNIsPerReservation bounds a single reserve call, mirroring the CXI
// service's VNI-list capacity (CXI_SVC_MAX_VNIS upstream).
const MaxVNIsPerReservation = 4

// ValidVNIs is the maximal universe any configured pool may draw from:
// every VNI except the two the Cassini driver reserves for itself. A
// vni-pool directive naming a VNI outside this set is rejected outright
// rather than silently clipped.
var ValidVNIs = func() *idset.IDSet {
	s, err := idset.Decode("0,2-9,11-65535")
	if err != nil {
		panic("vnipool: invalid built-in ValidVNIs spec: " + err.Error())
	}
	return s
}()

// Pool tracks the VNI universe, free set, and per-job reservations. The
// zero value is not usable; construct with New.
type Pool struct {
	mu sync.RWMutex

	universe     *idset.IDSet
	free         *idset.IDSet
	reservations map[string]*idset.IDSet

	logger  logging.Logger
	metrics metrics.Collector
}

// Config configures a new or reconfigured Pool.
type Config struct {
	// Universe is an idset range spec, or empty for "no pool
	// configured": New and Configure accept it, Reserve with count 0
	// still succeeds, and Reserve with any larger count fails with a
	// KindExhaustion error because the free set is empty.
	Universe string
}

// New constructs a Pool from cfg. Every VNI in cfg.Universe must be a
// member of ValidVNIs or New fails with a KindValidation error.
func New(cfg Config, logger logging.Logger, collector metrics.Collector) (*Pool, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	universe, err := idset.Decode(cfg.Universe)
	if err != nil {
		return nil, errors.Wrap(errors.KindValidation, "vnipool.new", err, "decoding universe %q", cfg.Universe)
	}
	if !universe.IsSubsetOf(ValidVNIs) {
		return nil, errors.Validation("vnipool.new", "universe %q is not a subset of the valid VNI range", cfg.Universe)
	}

	p := &Pool{
		universe:     universe,
		free:         universe.Clone(),
		reservations: make(map[string]*idset.IDSet),
		logger:       logger,
		metrics:      collector,
	}
	p.logger.Info("vnipool initialized", "universe", universe.Encode(), "count", universe.Count())
	return p, nil
}

// Configure atomically swaps in a new universe, matching
// vnipool_configure: a job that already holds a reservation keeps every
// VNI it was granted that is still in the new universe; any VNI the job
// held that fell outside the new universe is simply gone (and is not
// returned to the new free set, since it was never a member of it).
//
// If the new universe equals the current one, Configure is a no-op, the
// same short-circuit the reference implementation takes to avoid
// needlessly redistributing live reservations on an unrelated conf.update.
func (p *Pool) Configure(cfg Config) error {
	newUniverse, err := idset.Decode(cfg.Universe)
	if err != nil {
		return errors.Wrap(errors.KindValidation, "vnipool.configure", err, "decoding universe %q", cfg.Universe)
	}
	if !newUniverse.IsSubsetOf(ValidVNIs) {
		return errors.Validation("vnipool.configure", "universe %q is not a subset of the valid VNI range", cfg.Universe)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if newUniverse.Equal(p.universe) {
		return nil
	}

	allocated := idset.New()
	for _, reserved := range p.reservations {
		for _, id := range reserved.Members() {
			allocated.Add(id)
		}
	}

	stillAllocatedAndPresent := allocated.Intersect(newUniverse)
	newFreeSet := newUniverse.Clone()
	for _, id := range stillAllocatedAndPresent.Members() {
		newFreeSet.Remove(id)
	}

	dropped := allocated.Count() - stillAllocatedAndPresent.Count()

	for _, reserved := range p.reservations {
		for _, id := range reserved.Members() {
			if !newUniverse.Test(id) {
				reserved.Remove(id)
			}
		}
	}

	p.universe = newUniverse
	p.free = newFreeSet
	p.metrics.RecordReconfigure(dropped)
	p.logger.Info("vnipool reconfigured",
		"universe", newUniverse.Encode(),
		"dropped_vnis", dropped,
		"active_reservations", len(p.reservations),
	)
	return nil
}

// Reserve grants count VNIs to jobID, round-robin from the free set. A
// jobID that already holds a reservation is rejected: callers release
// before reserving again, they never overwrite in place.
//
// count 0 is a valid request — it records an empty reservation under
// jobID so a later Release is a normal release rather than a NotFound —
// matching a job that explicitly asked for zero VNIs.
func (p *Pool) Reserve(jobID string, count int) (*idset.IDSet, error) {
	if count < 0 || count > MaxVNIsPerReservation {
		return nil, errors.Validation("vnipool.reserve", "vnicount %d out of range [0, %d]", count, MaxVNIsPerReservation)
	}

	start := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.reservations[jobID]; exists {
		return nil, errors.Validation("vnipool.reserve", "job %s already holds a reservation", jobID)
	}

	granted := idset.New()
	for i := 0; i < count; i++ {
		id, err := p.free.Alloc()
		if err != nil {
			// Roll back every VNI already taken this call before
			// reporting exhaustion, so a partial reserve never leaks.
			for _, rollback := range granted.Members() {
				p.free.Add(rollback)
			}
			p.metrics.RecordReservation(false, 0, time.Since(start))
			return nil, errors.Exhaustion("vnipool.reserve", "insufficient VNIs for job %s (%d available, %d requested)", jobID, p.free.Count(), count)
		}
		granted.Add(id)
	}

	p.reservations[jobID] = granted
	p.metrics.RecordReservation(true, granted.Count(), time.Since(start))
	p.logger.Info("vnipool reserved", "jobid", jobID, "vnis", granted.Encode())
	return granted.Clone(), nil
}

// Release returns jobID's reservation to the free set and forgets it.
// Only VNIs present in the current universe are re-added, the same
// defensive check vnipool_free_array makes; Configure already removes
// VNIs outside a new universe from every reservation.
//
// Releasing an unknown jobID is a KindNotFound error — callers that want
// to treat an already-released or never-reserved job as success (jobtap
// cleanup, which may run after a failed reserve) should use
// pkg/errors.IsNotFound.
func (p *Pool) Release(jobID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	reserved, exists := p.reservations[jobID]
	if !exists {
		p.metrics.RecordRelease(false)
		return errors.NotFound("vnipool.release", "unknown job %s", jobID)
	}

	for _, id := range reserved.Members() {
		if p.universe.Test(id) {
			p.free.Add(id)
		}
	}
	delete(p.reservations, jobID)
	p.metrics.RecordRelease(true)
	p.logger.Info("vnipool released", "jobid", jobID, "vnis", reserved.Encode())
	return nil
}

// Lookup returns jobID's current reservation, if any.
func (p *Pool) Lookup(jobID string) (*idset.IDSet, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	reserved, exists := p.reservations[jobID]
	if !exists {
		return nil, false
	}
	return reserved.Clone(), true
}

// Status is a snapshot of pool-wide bookkeeping, returned by Query for
// the plugin.query diagnostic callback.
type Status struct {
	Universe          string
	FreeCount         int
	UniverseCount     int
	ActiveReservation int
}

// Query returns a snapshot of the pool's current state.
func (p *Pool) Query() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return Status{
		Universe:          p.universe.Encode(),
		FreeCount:         p.free.Count(),
		UniverseCount:     p.universe.Count(),
		ActiveReservation: len(p.reservations),
	}
}
