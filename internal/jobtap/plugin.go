// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package jobtap

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/flux-framework/flux-coral2/internal/broker"
	"github.com/flux-framework/flux-coral2/pkg/config"
	"github.com/flux-framework/flux-coral2/pkg/errors"
	"github.com/flux-framework/flux-coral2/pkg/eventlog"
	"github.com/flux-framework/flux-coral2/pkg/logging"
	"github.com/flux-framework/flux-coral2/pkg/metrics"
	"github.com/flux-framework/flux-coral2/pkg/vnipool"
)

// reservationContext is the "cray-slingshot" event's context, posted by
// the run handler once a job's VNI reservation outcome is known.
type reservationContext struct {
	VNIs        []uint32 `json:"vnis"`
	EmptyReason string   `json:"empty-reason,omitempty"`
}

// slingshotOption is the "{vnicount:N}" shape of the cray-slingshot
// shell option. Its counterpart, the bare string "off", is tried first
// by parseShellOption since json.Unmarshal of a JSON string into this
// struct fails with a type error rather than recognizing "off".
type slingshotOption struct {
	VNICount *int `json:"vnicount"`
}

// Plugin is the Go counterpart of the reference cray-slingshot.c jobtap
// plugin: conf.update reconfigures the shared VNI pool, job.state.run
// reserves VNIs for a job and posts the outcome to its eventlog,
// job.state.cleanup releases them, and Query reports a diagnostic
// snapshot for the plugin.query RPC.
type Plugin struct {
	pool    *vnipool.Pool
	attrs   broker.JobAttrReader
	poster  eventlog.Poster
	logger  logging.Logger
	metrics metrics.Collector

	mu   sync.Mutex
	cfg  config.Config
	jobs map[string]*Job
}

// NewPlugin constructs a Plugin around an already-configured VNI pool.
// Call ConfigUpdate once before handling any job to establish the pool's
// universe from TOML, matching conf.update firing before job.state.run
// in the reference plugin's own startup order.
func NewPlugin(pool *vnipool.Pool, attrs broker.JobAttrReader, poster eventlog.Poster, logger logging.Logger, collector metrics.Collector) *Plugin {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &Plugin{
		pool:    pool,
		attrs:   attrs,
		poster:  poster,
		logger:  logger,
		metrics: collector,
		cfg:     *config.NewDefault(),
		jobs:    make(map[string]*Job),
	}
}

// jobFor returns the Job record for id, creating one in StatePending on
// first sight. This replaces the reference plugin's job.state.new/submit
// step: there is none in the source (job.state.run is the first callback
// that touches a job's VNI reservation), so a job's record is born here.
func (p *Plugin) jobFor(id string) *Job {
	p.mu.Lock()
	defer p.mu.Unlock()

	job, ok := p.jobs[id]
	if !ok {
		job = &Job{ID: id, State: StatePending}
		p.jobs[id] = job
	}
	return job
}

func (p *Plugin) configSnapshot() config.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// ConfigUpdate implements conf.update: decode the [cray-slingshot] TOML
// table (vni-pool, vnis-per-job, vni-reserve-fatal) and reconfigure the
// VNI pool to match. Called once at plugin load and again on every
// broker config reload.
func (p *Plugin) ConfigUpdate(ctx context.Context, tomlData []byte) error {
	cfg := config.NewDefault()
	if err := config.DecodeInto(cfg, tomlData); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := p.pool.Configure(vnipool.Config{Universe: cfg.VNIPool}); err != nil {
		return err
	}

	p.mu.Lock()
	p.cfg = *cfg
	p.mu.Unlock()
	return nil
}

// RunHandler returns the fully middleware-wrapped job.state.run handler.
func (p *Plugin) RunHandler() HandlerFunc {
	return Chain(
		WithLogging(p.logger, "job.state.run"),
		WithMetrics(p.metrics),
		WithRecover(p.logger),
	)(p.handleRun)
}

// CleanupHandler returns the fully middleware-wrapped job.state.cleanup
// handler.
func (p *Plugin) CleanupHandler() HandlerFunc {
	return Chain(
		WithLogging(p.logger, "job.state.cleanup"),
		WithRecover(p.logger),
	)(p.handleCleanup)
}

// Run drives job.state.run for jobID: look up its shell options, reserve
// VNIs (or determine why none were reserved), and post the
// "cray-slingshot" event recording the outcome.
func (p *Plugin) Run(ctx context.Context, jobID string) error {
	return p.RunHandler()(ctx, p.jobFor(jobID))
}

// Cleanup drives job.state.cleanup for jobID: release any VNIs it holds.
func (p *Plugin) Cleanup(ctx context.Context, jobID string) error {
	return p.CleanupHandler()(ctx, p.jobFor(jobID))
}

// QueryResult is the plugin.query diagnostic snapshot: the active
// configuration plus the pool's current bookkeeping.
type QueryResult struct {
	VNIsPerJob      int
	VNIReserveFatal bool
	Pool            vnipool.Status
}

// Query implements plugin.query.
func (p *Plugin) Query() QueryResult {
	cfg := p.configSnapshot()
	return QueryResult{
		VNIsPerJob:      cfg.VNIsPerJob,
		VNIReserveFatal: cfg.VNIReserveFatal,
		Pool:            p.pool.Query(),
	}
}

func (p *Plugin) handleRun(ctx context.Context, job *Job) error {
	attrs, err := p.attrs.Attrs(job.ID)
	if err != nil {
		return errors.Wrap(errors.KindTransport, "jobtap.run", err, "reading job attributes for %s", job.ID)
	}

	cfg := p.configSnapshot()

	count, emptyReason, err := parseShellOption(attrs.SlingshotOption, cfg.VNIsPerJob)
	if err != nil {
		return err
	}
	job.RequestedCount = count

	if emptyReason == "" && count == 0 {
		emptyReason = "none requested"
	}

	var vnis []uint32
	if emptyReason == "" {
		reserved, reserveErr := p.pool.Reserve(job.ID, count)
		switch {
		case reserveErr == nil:
			vnis = reserved.Members()
		case !cfg.VNIReserveFatal:
			emptyReason = reserveErr.Error()
		default:
			return errors.Wrap(errors.KindExhaustion, "jobtap.run", reserveErr, "reserving %d VNIs for job %s", count, job.ID)
		}
	}

	if emptyReason != "" {
		if err := p.postReservation(ctx, job.ID, nil, emptyReason); err != nil {
			return err
		}
		job.State = StateEmpty
		job.EmptyReason = emptyReason
		return nil
	}

	if err := p.postReservation(ctx, job.ID, vnis, ""); err != nil {
		// A failure to announce a granted reservation leaves no
		// consumer able to learn about it; give the VNIs back rather
		// than leak them on a job nothing will use them for.
		_ = p.pool.Release(job.ID)
		return err
	}
	job.VNIs = vnis
	job.State = StateReserved
	return nil
}

func (p *Plugin) handleCleanup(ctx context.Context, job *Job) error {
	err := p.pool.Release(job.ID)
	if err != nil && !errors.IsNotFound(err) {
		return err
	}
	job.State = StateReleased

	p.mu.Lock()
	delete(p.jobs, job.ID)
	p.mu.Unlock()
	return nil
}

// postReservation posts the "cray-slingshot" event. A nil vnis encodes
// as "[]", matching post_event's json_pack("{s:[]}", "vnis") fallback.
func (p *Plugin) postReservation(ctx context.Context, jobID string, vnis []uint32, emptyReason string) error {
	if vnis == nil {
		vnis = []uint32{}
	}
	return p.poster.Post(ctx, "cray-slingshot", reservationContext{VNIs: vnis, EmptyReason: emptyReason})
}

// parseShellOption interprets the raw cray-slingshot shell option value:
// absent (nil) falls back to defaultCount, the bare string "off"
// disables reservation, and an object is unpacked for its optional
// vnicount field. It mirrors job_state_run_cb's json_is_string /
// json_unpack_ex dispatch on the option's runtime shape.
func parseShellOption(raw json.RawMessage, defaultCount int) (count int, emptyReason string, err error) {
	if raw == nil {
		return defaultCount, "", nil
	}

	var asString string
	if jsonErr := json.Unmarshal(raw, &asString); jsonErr == nil {
		if asString == "off" {
			return 0, "disabled by user request", nil
		}
		return 0, "", errors.Validation("jobtap.run", "unrecognized cray-slingshot option %q", asString)
	}

	var opt slingshotOption
	if jsonErr := json.Unmarshal(raw, &opt); jsonErr != nil {
		return 0, "", errors.Wrap(errors.KindValidation, "jobtap.run", jsonErr, "parsing cray-slingshot shell options")
	}
	if opt.VNICount != nil {
		return *opt.VNICount, "", nil
	}
	return defaultCount, "", nil
}
