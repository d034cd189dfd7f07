// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package jobtap

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flux-framework/flux-coral2/internal/broker"
	"github.com/flux-framework/flux-coral2/pkg/errors"
	"github.com/flux-framework/flux-coral2/pkg/logging"
	"github.com/flux-framework/flux-coral2/pkg/metrics"
	"github.com/flux-framework/flux-coral2/pkg/vnipool"
)

type postedEvent struct {
	name string
	ctx  any
}

type fakePoster struct {
	posts []postedEvent
	err   error
}

func (f *fakePoster) Post(ctx context.Context, eventName string, eventContext any) error {
	if f.err != nil {
		return f.err
	}
	f.posts = append(f.posts, postedEvent{name: eventName, ctx: eventContext})
	return nil
}

func (f *fakePoster) lastVNIs(t *testing.T) reservationContext {
	t.Helper()
	require.NotEmpty(t, f.posts)
	rc, ok := f.posts[len(f.posts)-1].ctx.(reservationContext)
	require.True(t, ok)
	return rc
}

func newTestPlugin(t *testing.T) (*Plugin, *fakePoster, *broker.FakeJobAttrReader) {
	t.Helper()
	pool, err := vnipool.New(vnipool.Config{Universe: ""}, logging.NoOpLogger{}, metrics.NewInMemoryCollector())
	require.NoError(t, err)
	poster := &fakePoster{}
	attrs := &broker.FakeJobAttrReader{Options: map[string]json.RawMessage{}}
	return NewPlugin(pool, attrs, poster, logging.NoOpLogger{}, metrics.NewInMemoryCollector()), poster, attrs
}

func vnicountOption(n int) json.RawMessage {
	b, _ := json.Marshal(map[string]int{"vnicount": n})
	return b
}

// S1: basic reservation — configure a pool, reserve two jobs back to
// back, exhaust it, then release and observe the free set recover.
func TestRun_S1_BasicReservation(t *testing.T) {
	p, poster, attrs := newTestPlugin(t)
	require.NoError(t, p.ConfigUpdate(context.Background(), []byte(`
[cray-slingshot]
vni-pool = "1024-1026"
vnis-per-job = 2
vni-reserve-fatal = false
`)))

	require.NoError(t, p.Run(context.Background(), "A"))
	rcA := poster.lastVNIs(t)
	assert.Len(t, rcA.VNIs, 2)
	assert.Empty(t, rcA.EmptyReason)
	assert.Equal(t, 1, p.pool.Query().FreeCount)

	attrs.Options["B"] = vnicountOption(2)
	require.NoError(t, p.Run(context.Background(), "B"))
	rcB := poster.lastVNIs(t)
	assert.Empty(t, rcB.VNIs)
	assert.NotEmpty(t, rcB.EmptyReason)
	assert.Equal(t, 1, p.pool.Query().FreeCount)

	require.NoError(t, p.Cleanup(context.Background(), "A"))
	assert.Equal(t, 3, p.pool.Query().FreeCount)
}

// S2: reconfiguring with a live reservation must not hand out a VNI
// still held by an older job, and releasing that job afterward must not
// resurrect a VNI the new universe no longer contains.
func TestRun_S2_ReconfigureWithLiveReservation(t *testing.T) {
	p, _, attrs := newTestPlugin(t)
	require.NoError(t, p.ConfigUpdate(context.Background(), []byte(`
[cray-slingshot]
vni-pool = "1024-1026"
vnis-per-job = 1
`)))
	require.NoError(t, p.Run(context.Background(), "A"))
	jobA := p.jobFor("A")
	require.Len(t, jobA.VNIs, 1)
	held := jobA.VNIs[0]

	require.NoError(t, p.ConfigUpdate(context.Background(), []byte(`
[cray-slingshot]
vni-pool = "1025-1030"
vnis-per-job = 1
`)))

	attrs.Options["B"] = vnicountOption(1)
	require.NoError(t, p.Run(context.Background(), "B"))
	jobB := p.jobFor("B")
	require.Len(t, jobB.VNIs, 1)
	assert.NotEqual(t, held, jobB.VNIs[0])
	assert.GreaterOrEqual(t, jobB.VNIs[0], uint32(1025))
	assert.LessOrEqual(t, jobB.VNIs[0], uint32(1030))

	require.NoError(t, p.Cleanup(context.Background(), "A"))
	// 1024 (held by A, now outside the universe) never returns to the
	// free set; only 1025..1030 minus whatever B holds are free.
	assert.Equal(t, 5, p.pool.Query().FreeCount)
}

// S5: invalid pool universes (outside the valid VNI range, or including
// a Cassini-reserved VNI) are rejected by conf.update rather than
// silently accepted.
func TestConfigUpdate_S5_RejectsInvalidVNIPool(t *testing.T) {
	p, _, _ := newTestPlugin(t)

	err := p.ConfigUpdate(context.Background(), []byte(`
[cray-slingshot]
vni-pool = "70000-70010"
`))
	require.Error(t, err)
	kind, ok := errors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindValidation, kind)
}

func TestConfigUpdate_S5_RejectsOutOfRangeVNIsPerJob(t *testing.T) {
	p, _, _ := newTestPlugin(t)

	err := p.ConfigUpdate(context.Background(), []byte(`
[cray-slingshot]
vnis-per-job = 5
`))
	require.Error(t, err)
	kind, ok := errors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindValidation, kind)
}

// S7: an exhausted pool is fatal under vni-reserve-fatal=true (the run
// handler's error surfaces, which the broker turns into a severity-0
// exception) and recovered under vni-reserve-fatal=false (the handler
// succeeds and posts an empty reservation).
func TestRun_S7_HardModeFailsOnExhaustion(t *testing.T) {
	p, _, attrs := newTestPlugin(t)
	require.NoError(t, p.ConfigUpdate(context.Background(), []byte(`
[cray-slingshot]
vni-pool = "1024-1024"
vni-reserve-fatal = true
`)))
	attrs.Options["A"] = vnicountOption(1)
	require.NoError(t, p.Run(context.Background(), "A"))

	attrs.Options["B"] = vnicountOption(1)
	err := p.Run(context.Background(), "B")
	require.Error(t, err)
	assert.True(t, errors.IsExhaustion(err))
}

func TestRun_S7_SoftModePostsEmptyReasonOnExhaustion(t *testing.T) {
	p, poster, attrs := newTestPlugin(t)
	require.NoError(t, p.ConfigUpdate(context.Background(), []byte(`
[cray-slingshot]
vni-pool = "1024-1024"
vni-reserve-fatal = false
`)))
	attrs.Options["A"] = vnicountOption(1)
	require.NoError(t, p.Run(context.Background(), "A"))

	attrs.Options["B"] = vnicountOption(1)
	err := p.Run(context.Background(), "B")
	require.NoError(t, err)

	rc := poster.lastVNIs(t)
	assert.Empty(t, rc.VNIs)
	assert.NotEmpty(t, rc.EmptyReason)
	jobB := p.jobFor("B")
	assert.Equal(t, StateEmpty, jobB.State)
}

func TestRun_DisabledByShellOptionOffPostsEmptyReservation(t *testing.T) {
	p, poster, attrs := newTestPlugin(t)
	require.NoError(t, p.ConfigUpdate(context.Background(), []byte(`
[cray-slingshot]
vni-pool = "1024-1026"
`)))
	offOpt, _ := json.Marshal("off")
	attrs.Options["A"] = offOpt

	require.NoError(t, p.Run(context.Background(), "A"))
	rc := poster.lastVNIs(t)
	assert.Empty(t, rc.VNIs)
	assert.Equal(t, "disabled by user request", rc.EmptyReason)
}

func TestRun_VNIsPerJobZeroWithNoOptionPostsEmptyReservation(t *testing.T) {
	p, poster, _ := newTestPlugin(t)
	require.NoError(t, p.ConfigUpdate(context.Background(), []byte(`
[cray-slingshot]
vni-pool = "1024-1026"
vnis-per-job = 0
`)))

	require.NoError(t, p.Run(context.Background(), "A"))
	rc := poster.lastVNIs(t)
	assert.Empty(t, rc.VNIs)
	assert.Equal(t, "none requested", rc.EmptyReason)
}

func TestCleanup_UnknownJobIsSuccessNotError(t *testing.T) {
	p, _, _ := newTestPlugin(t)
	require.NoError(t, p.ConfigUpdate(context.Background(), []byte(`
[cray-slingshot]
vni-pool = "1024-1026"
`)))
	err := p.Cleanup(context.Background(), "never-ran")
	assert.NoError(t, err)
}

func TestQuery_ReportsConfigAndPoolSnapshot(t *testing.T) {
	p, _, _ := newTestPlugin(t)
	require.NoError(t, p.ConfigUpdate(context.Background(), []byte(`
[cray-slingshot]
vni-pool = "1024-1026"
vnis-per-job = 2
vni-reserve-fatal = false
`)))

	result := p.Query()
	assert.Equal(t, 2, result.VNIsPerJob)
	assert.False(t, result.VNIReserveFatal)
	assert.Equal(t, 3, result.Pool.UniverseCount)
}
