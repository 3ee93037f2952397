package release

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxWait      = 2 * time.Minute
	DefaultPollInterval = 5 * time.Second
)

type RevisionManager interface {
	EnsureCloned(ctx context.Context, repository, workingPath string, auth *Auth) error
	CaptureBaseline(ctx context.Context, workingPath string) (*RevisionRecord, error)
	CheckoutTag(ctx context.Context, workingPath, tag string) error
	RestoreRevision(ctx context.Context, workingPath string, rec *RevisionRecord) error
}

type EnvironmentSwitcher interface {
	MaterializeShadow(manifestPath string) (string, error)
	Up(ctx context.Context, env Environment) error
	Down(ctx context.Context, env Environment) error
	DiscardShadow(shadowPath string) error
}

type HealthMonitor interface {
	WaitHealthy(ctx context.Context, env Environment, maxWait, pollInterval time.Duration) error
}

type PipelineOptions struct {
	MaxWait      time.Duration
	PollInterval time.Duration
}

type Pipeline struct {
	revisions RevisionManager
	envs      EnvironmentSwitcher
	monitor   HealthMonitor
	gate      *Gate
	opts      PipelineOptions
	log       *zap.Logger
}

func NewPipeline(
	revisions RevisionManager,
	envs EnvironmentSwitcher,
	monitor HealthMonitor,
	gate *Gate,
	opts PipelineOptions,
	log *zap.Logger,
) *Pipeline {
	if gate == nil {
		gate = NewGate()
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		revisions: revisions,
		envs:      envs,
		monitor:   monitor,
		gate:      gate,
		opts:      opts,
		log:       log,
	}
}

// run holds the state of a single pipeline execution.
type run struct {
	*Pipeline
	trigger  Trigger
	reporter Reporter
	log      *zap.Logger

	step   Step
	record *RevisionRecord
	prod   Environment
	shadow Environment

	shadowMaterialized bool
	prodTouched        bool
}

// Run deploys t.Tag. Failures from checkout onward are rolled back and the
// original error is returned; a failed rollback returns a *RollbackError.
// The returned record is nil when the run failed before the baseline was taken.
func (p *Pipeline) Run(ctx context.Context, t Trigger, reporter Reporter) (*RevisionRecord, error) {
	if reporter == nil {
		reporter = NopReporter{}
	}
	if t.Config.ManifestFile == "" {
		t.Config.ManifestFile = DefaultManifestFile
	}

	unlock := p.gate.Lock(t.Config.WorkingPath)
	defer unlock()

	r := &run{
		Pipeline: p,
		trigger:  t,
		reporter: reporter,
		log: p.log.With(
			zap.String("repository", t.Repository),
			zap.String("tag", t.Tag),
		),
		prod:   Production(t.Config),
		shadow: Shadow(t.Config),
	}
	r.enter(ctx, StepInit)

	if err := p.revisions.EnsureCloned(ctx, t.Repository, t.Config.WorkingPath, t.Auth); err != nil {
		return nil, r.fail(ctx, err)
	}
	r.enter(ctx, StepCloned)

	rec, err := p.revisions.CaptureBaseline(ctx, t.Config.WorkingPath)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	rec.NewVersionTag = t.Tag
	r.record = rec

	if err := r.promote(ctx); err != nil {
		r.log.Error("release failed, rolling back", zap.Error(err))
		if rbErr := r.rollback(ctx); rbErr != nil {
			err = &RollbackError{Cause: err, Err: rbErr}
		}
		return rec, r.fail(ctx, err)
	}

	r.log.Info("release promoted")
	r.reporter.Report(ctx, StepPromoted, StatusDone, "")
	return rec, nil
}

func (r *run) enter(ctx context.Context, step Step) {
	r.step = step
	r.log.Info("release step", zap.Int("step", int(step)), zap.Stringer("name", step))
	r.reporter.Report(ctx, step, StatusPending, "")
}

func (r *run) fail(ctx context.Context, err error) error {
	failed := r.step + 1
	if failed > StepPromoted {
		failed = StepPromoted
	}
	r.reporter.Report(ctx, failed, StatusFailed, Message(err))
	return err
}

func (r *run) promote(ctx context.Context) error {
	workingPath := r.trigger.Config.WorkingPath
	if err := r.revisions.CheckoutTag(ctx, workingPath, r.trigger.Tag); err != nil {
		return err
	}
	r.enter(ctx, StepCheckedOut)

	r.shadowMaterialized = true
	shadowPath, err := r.envs.MaterializeShadow(r.prod.Manifest)
	if err != nil {
		return err
	}
	r.shadow.Manifest = shadowPath
	if err := r.envs.Up(ctx, r.shadow); err != nil {
		return err
	}
	r.enter(ctx, StepShadowUp)

	if err := r.monitor.WaitHealthy(ctx, r.shadow, r.opts.MaxWait, r.opts.PollInterval); err != nil {
		return err
	}
	r.enter(ctx, StepShadowHealthy)

	if err := r.envs.Down(ctx, r.shadow); err != nil {
		return err
	}
	if err := r.envs.DiscardShadow(r.shadow.Manifest); err != nil {
		return err
	}
	r.shadowMaterialized = false

	r.prodTouched = true
	if err := r.envs.Up(ctx, r.prod); err != nil {
		return err
	}
	return r.monitor.WaitHealthy(ctx, r.prod, r.opts.MaxWait, r.opts.PollInterval)
}

func (r *run) rollback(ctx context.Context) error {
	var errs []error
	if r.prodTouched {
		if err := r.envs.Down(ctx, r.prod); err != nil {
			errs = append(errs, err)
		}
	}
	if r.shadowMaterialized {
		if err := r.envs.Down(ctx, r.shadow); err != nil {
			errs = append(errs, err)
		}
		if err := r.envs.DiscardShadow(r.shadow.Manifest); err != nil {
			errs = append(errs, err)
		}
	}

	if err := r.revisions.RestoreRevision(ctx, r.trigger.Config.WorkingPath, r.record); err != nil {
		return errors.Join(append(errs, err)...)
	}

	// production was replaced during this run; put the previous build back
	if r.prodTouched {
		if err := r.envs.Up(ctx, r.prod); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	r.log.Info("rollback complete", zap.String("revision", r.record.PreviousRevision))
	return nil
}
