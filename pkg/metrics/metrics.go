// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides diagnostic counters for the VNI pool and
// jobtap plugin, read back through Collector.Stats. The plugin.query
// response does not include them.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the interface jobtap and the VNI pool record diagnostic
// events through.
type Collector interface {
	// RecordReservation records the outcome of a reserve attempt: ok
	// true for a full reservation, false for exhaustion; a disabled job
	// records nothing. vniCount is the number of VNIs actually granted.
	RecordReservation(ok bool, vniCount int, duration time.Duration)

	// RecordRelease records a pool release, successful or not (an
	// unknown job ID at release time is not itself an error).
	RecordRelease(found bool)

	// RecordReconfigure records a vnipool.configure call and how many
	// VNIs in the outgoing universe were not present in the new one
	// (and therefore dropped from any live reservation).
	RecordReconfigure(dropped int)

	// RecordDeviceError records a failure to enumerate or open a local
	// NIC; these are logged and skipped, never fatal, but worth
	// counting.
	RecordDeviceError()

	// Stats returns a snapshot of current counters.
	Stats() *Stats

	// Reset zeroes all counters.
	Reset()
}

// Stats is an immutable snapshot of a Collector's counters.
type Stats struct {
	ReservationsGranted int64
	ReservationsFailed  int64
	VNIsInUse           int64
	ReservationTime     DurationStats
	Releases            int64
	ReleasesNotFound    int64
	Reconfigures        int64
	VNIsDroppedOnResize int64
	DeviceErrors        int64
	StartTime           time.Time
	Duration            time.Duration
}

// DurationStats summarizes a stream of durations.
type DurationStats struct {
	Count   int64
	Total   time.Duration
	Min     time.Duration
	Max     time.Duration
	Average time.Duration
}

// InMemoryCollector is the atomic-counter Collector jobtap runs with in
// production.
type InMemoryCollector struct {
	mu sync.Mutex

	reservationsGranted int64
	reservationsFailed  int64
	vnisInUse           int64
	reservationTime     durationAggregator

	releases         int64
	releasesNotFound int64

	reconfigures        int64
	vnisDroppedOnResize int64

	deviceErrors int64

	startTime time.Time
}

// NewInMemoryCollector returns a ready-to-use Collector.
func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{startTime: time.Now()}
}

// RecordReservation implements Collector.
func (c *InMemoryCollector) RecordReservation(ok bool, vniCount int, duration time.Duration) {
	if ok {
		atomic.AddInt64(&c.reservationsGranted, 1)
		atomic.AddInt64(&c.vnisInUse, int64(vniCount))
	} else {
		atomic.AddInt64(&c.reservationsFailed, 1)
	}
	c.reservationTime.add(duration)
}

// RecordRelease implements Collector.
func (c *InMemoryCollector) RecordRelease(found bool) {
	atomic.AddInt64(&c.releases, 1)
	if !found {
		atomic.AddInt64(&c.releasesNotFound, 1)
	}
}

// RecordReconfigure implements Collector.
func (c *InMemoryCollector) RecordReconfigure(dropped int) {
	atomic.AddInt64(&c.reconfigures, 1)
	atomic.AddInt64(&c.vnisDroppedOnResize, int64(dropped))
}

// RecordDeviceError implements Collector.
func (c *InMemoryCollector) RecordDeviceError() {
	atomic.AddInt64(&c.deviceErrors, 1)
}

// Stats implements Collector.
func (c *InMemoryCollector) Stats() *Stats {
	return &Stats{
		ReservationsGranted: atomic.LoadInt64(&c.reservationsGranted),
		ReservationsFailed:  atomic.LoadInt64(&c.reservationsFailed),
		VNIsInUse:           atomic.LoadInt64(&c.vnisInUse),
		ReservationTime:     c.reservationTime.stats(),
		Releases:            atomic.LoadInt64(&c.releases),
		ReleasesNotFound:    atomic.LoadInt64(&c.releasesNotFound),
		Reconfigures:        atomic.LoadInt64(&c.reconfigures),
		VNIsDroppedOnResize: atomic.LoadInt64(&c.vnisDroppedOnResize),
		DeviceErrors:        atomic.LoadInt64(&c.deviceErrors),
		StartTime:           c.startTime,
		Duration:            time.Since(c.startTime),
	}
}

// Reset implements Collector.
func (c *InMemoryCollector) Reset() {
	atomic.StoreInt64(&c.reservationsGranted, 0)
	atomic.StoreInt64(&c.reservationsFailed, 0)
	atomic.StoreInt64(&c.vnisInUse, 0)
	atomic.StoreInt64(&c.releases, 0)
	atomic.StoreInt64(&c.releasesNotFound, 0)
	atomic.StoreInt64(&c.reconfigures, 0)
	atomic.StoreInt64(&c.vnisDroppedOnResize, 0)
	atomic.StoreInt64(&c.deviceErrors, 0)
	c.reservationTime = durationAggregator{}
	c.startTime = time.Now()
}

// durationAggregator tracks count/total/min/max for one duration stream.
type durationAggregator struct {
	mu    sync.Mutex
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

func (d *durationAggregator) add(duration time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.count == 0 || duration < d.min {
		d.min = duration
	}
	if duration > d.max {
		d.max = duration
	}
	d.count++
	d.total += duration
}

func (d *durationAggregator) stats() DurationStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := DurationStats{Count: d.count, Total: d.total, Min: d.min, Max: d.max}
	if d.count > 0 {
		s.Average = time.Duration(int64(d.total) / d.count)
	}
	return s
}

// NoOpCollector discards every record call; the safe zero value.
type NoOpCollector struct{}

func (NoOpCollector) RecordReservation(ok bool, vniCount int, duration time.Duration) {}
func (NoOpCollector) RecordRelease(found bool)                                       {}
func (NoOpCollector) RecordReconfigure(dropped int)                                  {}
func (NoOpCollector) RecordDeviceError()                                             {}
func (NoOpCollector) Stats() *Stats                                                  { return &Stats{} }
func (NoOpCollector) Reset()                                                         {}

var defaultCollector Collector = NoOpCollector{}

// SetDefaultCollector sets the package-level default collector.
func SetDefaultCollector(c Collector) {
	if c == nil {
		c = NoOpCollector{}
	}
	defaultCollector = c
}

// DefaultCollector returns the package-level default collector.
func DefaultCollector() Collector {
	return defaultCollector
}
