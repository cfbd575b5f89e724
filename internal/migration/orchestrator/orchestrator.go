// Package orchestrator sequences identities through the processor, phase by
// phase: mailboxes first, then distribution groups, then unified groups.
// Execution is strictly sequential with one directory call in flight at a
// time; a fixed pacing delay after each mutating call is the only
// backpressure against service throttling.
package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"mailmove/internal/directory"
	"mailmove/internal/migration/models"
	"mailmove/internal/migration/processor"
	"mailmove/internal/recorder"
	dErrors "mailmove/pkg/domain-errors"
)

// Checkpoints lets a re-run of the same run ID skip identities that were
// already recorded. Optional; a nil store disables resumption.
type Checkpoints interface {
	Seen(ctx context.Context, runID, principalName string) (bool, error)
	Mark(ctx context.Context, runID, principalName string) error
}

// Config fixes a run's scope. It is immutable for the run's duration.
type Config struct {
	RunID   string
	Domains models.DomainSet
	DryRun  bool

	// SingleIdentity targets one mailbox by principal name or address.
	// Group phases are skipped for single-identity runs.
	SingleIdentity string

	// Pacing is the fixed delay observed after each mutating call.
	Pacing time.Duration
}

// Totals aggregates per-run counters. The only state shared across
// identities besides the append-only record stream.
type Totals struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
	Simulated int
}

func (t *Totals) add(status models.Status) {
	t.Processed++
	switch status {
	case models.StatusSuccess:
		t.Succeeded++
	case models.StatusFailed:
		t.Failed++
	case models.StatusSkipped:
		t.Skipped++
	case models.StatusSimulated:
		t.Simulated++
	}
}

// Orchestrator runs one migration batch.
type Orchestrator struct {
	directory   directory.Service
	processor   *processor.Processor
	recorder    recorder.Recorder
	cfg         Config
	logger      *slog.Logger
	checkpoints Checkpoints
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithCheckpoints(c Checkpoints) Option {
	return func(o *Orchestrator) { o.checkpoints = c }
}

// WithSleep overrides the pacing sleeper (tests).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

func New(dir directory.Service, proc *processor.Processor, rec recorder.Recorder, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		directory: dir,
		processor: proc,
		recorder:  rec,
		cfg:       cfg,
		logger:    slog.Default(),
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type phase struct {
	name  string
	kinds []models.IdentityKind
}

// Run executes the batch. The returned error is non-nil only for fatal
// conditions (connectivity, cancellation); per-identity failures are folded
// into Totals and the record stream.
func (o *Orchestrator) Run(ctx context.Context) (Totals, error) {
	totals := Totals{}

	if err := o.directory.Ping(ctx); err != nil {
		return totals, dErrors.Wrap(err, dErrors.CodeConnectivity, "directory unreachable")
	}

	if o.cfg.SingleIdentity != "" {
		err := o.runSingle(ctx, &totals)
		return totals, err
	}

	phases := []phase{
		{name: "mailboxes", kinds: models.MailboxKinds},
		{name: "distribution-groups", kinds: []models.IdentityKind{models.KindDistributionGroup}},
		{name: "unified-groups", kinds: []models.IdentityKind{models.KindUnifiedGroup}},
	}

	filter := directory.Filter{AnyDomain: o.cfg.Domains.Old()}
	sort.Strings(filter.AnyDomain)

	for _, ph := range phases {
		o.logger.InfoContext(ctx, "phase started", "phase", ph.name, "run_id", o.cfg.RunID)
		for _, kind := range ph.kinds {
			identities, err := o.directory.List(ctx, kind, filter)
			if err != nil {
				return totals, dErrors.Wrap(err, dErrors.CodeConnectivity, "listing "+string(kind)+" failed")
			}
			for _, identity := range identities {
				if err := ctx.Err(); err != nil {
					return totals, err
				}
				if err := o.processOne(ctx, identity, &totals); err != nil {
					return totals, err
				}
			}
		}
		o.logger.InfoContext(ctx, "phase finished", "phase", ph.name, "run_id", o.cfg.RunID)
	}

	o.logSummary(ctx, totals)
	return totals, nil
}

func (o *Orchestrator) runSingle(ctx context.Context, totals *Totals) error {
	identity, err := o.lookupMailbox(ctx, o.cfg.SingleIdentity)
	if err != nil {
		if dErrors.IsFatal(err) {
			return err
		}
		// Terminal for the identity, recorded like any other failure.
		o.recordOutcome(ctx, processor.FailedOutcome(models.Identity{
			Kind:          models.KindUserMailbox,
			PrincipalName: o.cfg.SingleIdentity,
		}, err))
		totals.add(models.StatusFailed)
		o.logSummary(ctx, *totals)
		return nil
	}

	if err := o.processOne(ctx, identity, totals); err != nil {
		return err
	}
	o.logSummary(ctx, *totals)
	return nil
}

// lookupMailbox resolves a single-identity target across the mailbox kinds.
func (o *Orchestrator) lookupMailbox(ctx context.Context, principalOrAddress string) (models.Identity, error) {
	var lastErr error
	for _, kind := range models.MailboxKinds {
		identity, err := o.processor.Lookup(ctx, kind, principalOrAddress)
		if err == nil {
			return identity, nil
		}
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return models.Identity{}, err
		}
		lastErr = err
	}
	return models.Identity{}, lastErr
}

func (o *Orchestrator) processOne(ctx context.Context, identity models.Identity, totals *Totals) error {
	if o.checkpoints != nil {
		seen, err := o.checkpoints.Seen(ctx, o.cfg.RunID, identity.PrincipalName)
		if err != nil {
			o.logger.WarnContext(ctx, "checkpoint lookup failed, processing anyway",
				"principal", identity.PrincipalName, "error", err)
		} else if seen {
			o.logger.DebugContext(ctx, "already recorded in this run, skipping",
				"principal", identity.PrincipalName, "run_id", o.cfg.RunID)
			return nil
		}
	}

	outcome := o.processor.Process(ctx, identity)
	o.recordOutcome(ctx, outcome)
	totals.add(outcome.Status)

	if o.checkpoints != nil {
		if err := o.checkpoints.Mark(ctx, o.cfg.RunID, identity.PrincipalName); err != nil {
			o.logger.WarnContext(ctx, "checkpoint mark failed",
				"principal", identity.PrincipalName, "error", err)
		}
	}

	if o.mutated(outcome) {
		if err := o.sleep(ctx, o.cfg.Pacing); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) recordOutcome(ctx context.Context, outcome models.Outcome) {
	rec := outcome.Record(o.cfg.RunID, time.Now())
	if err := o.recorder.Record(ctx, rec); err != nil {
		o.logger.ErrorContext(ctx, "change record write failed",
			"principal", outcome.Identity.PrincipalName, "error", err)
	}
	if outcome.Err != nil {
		if err := o.recorder.RecordError(ctx, outcome.Identity.PrincipalName, outcome.Err); err != nil {
			o.logger.ErrorContext(ctx, "error record write failed",
				"principal", outcome.Identity.PrincipalName, "error", err)
		}
	}
}

// mutated reports whether the outcome involved a call across the mutation
// boundary; only those calls are paced.
func (o *Orchestrator) mutated(outcome models.Outcome) bool {
	if o.cfg.DryRun || o.cfg.Pacing <= 0 {
		return false
	}
	switch outcome.Status {
	case models.StatusSuccess:
		return true
	case models.StatusFailed:
		return dErrors.HasCode(outcome.Err, dErrors.CodeMutation)
	}
	return false
}

func (o *Orchestrator) logSummary(ctx context.Context, totals Totals) {
	o.logger.InfoContext(ctx, "run complete",
		"run_id", o.cfg.RunID,
		"dry_run", o.cfg.DryRun,
		"processed", totals.Processed,
		"succeeded", totals.Succeeded,
		"failed", totals.Failed,
		"skipped", totals.Skipped,
		"simulated", totals.Simulated,
	)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
