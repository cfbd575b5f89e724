// Package processor drives one identity through its processing states:
//
//	Pending → Evaluated → Skipped
//	                    → PlanBuilt → Applied (Success | Failed)
//	                                → Simulated
//
// Apply and dry-run share the whole path up to the mutation boundary; dry-run
// simply never crosses it, so the recorded plan is the plan an apply would
// have executed.
package processor

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mailmove/internal/directory"
	migrationmetrics "mailmove/internal/migration/metrics"
	"mailmove/internal/migration/models"
	"mailmove/internal/migration/planner"
	dErrors "mailmove/pkg/domain-errors"
	"mailmove/pkg/platform/sentinel"
)

// Processor evaluates and applies the rewrite for single identities.
type Processor struct {
	directory directory.Service
	domains   models.DomainSet
	dryRun    bool
	logger    *slog.Logger
	metrics   *migrationmetrics.Metrics
	tracer    trace.Tracer
}

// Option configures a Processor.
type Option func(*Processor)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

func WithMetrics(m *migrationmetrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithDryRun disables the mutation boundary; plans are still computed on the
// shared path and recorded with status Simulated.
func WithDryRun(dryRun bool) Option {
	return func(p *Processor) { p.dryRun = dryRun }
}

func New(dir directory.Service, domains models.DomainSet, opts ...Option) *Processor {
	p := &Processor{
		directory: dir,
		domains:   domains,
		logger:    slog.Default(),
		tracer:    otel.Tracer("mailmove/processor"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Lookup resolves an identity by principal name or address, translating a
// directory miss into the not-found domain error. The miss is terminal for
// the identity, never for the batch.
func (p *Processor) Lookup(ctx context.Context, kind models.IdentityKind, principalOrAddress string) (models.Identity, error) {
	identity, err := p.directory.Get(ctx, kind, principalOrAddress)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrNotFound) {
			return models.Identity{}, dErrors.Wrap(err, dErrors.CodeNotFound, "identity lookup failed")
		}
		return models.Identity{}, dErrors.Wrap(err, dErrors.CodeConnectivity, "identity lookup failed")
	}
	return identity, nil
}

// Process runs the state machine over an already-fetched identity and
// returns its terminal outcome. Per-identity failures are folded into the
// outcome, not returned; the only returned errors a caller sees are via
// Outcome.Err.
func (p *Processor) Process(ctx context.Context, identity models.Identity) models.Outcome {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "processor.Process",
		trace.WithAttributes(
			attribute.String("identity.kind", string(identity.Kind)),
			attribute.String("identity.principal", identity.PrincipalName),
			attribute.Bool("dry_run", p.dryRun),
		))
	defer span.End()

	outcome := p.process(ctx, identity)

	span.SetAttributes(attribute.String("outcome.status", string(outcome.Status)))
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
	}
	if p.metrics != nil {
		p.metrics.ObserveOutcome(outcome.Status, start)
		if outcome.Status == models.StatusSuccess {
			p.metrics.AddRemoved(len(outcome.Plan.Removals))
		}
	}
	return outcome
}

func (p *Processor) process(ctx context.Context, identity models.Identity) models.Outcome {
	addresses, err := identity.AddressSet()
	if err != nil {
		// Already carries CodeMalformedAddress from the parser.
		p.logger.ErrorContext(ctx, "planning failed",
			"principal", identity.PrincipalName,
			"error", err,
		)
		return models.Outcome{Identity: identity, Status: models.StatusFailed, Err: err}
	}

	plan := planner.Plan(addresses, identity.PrincipalName, p.domains)

	if plan.IsNoOp() {
		p.logger.DebugContext(ctx, "identity already clean",
			"principal", identity.PrincipalName,
			"reason", plan.NoOpReason,
		)
		return models.Outcome{Identity: identity, Plan: plan, Status: models.StatusSkipped}
	}

	if p.dryRun {
		p.logger.InfoContext(ctx, "simulated rewrite",
			"principal", identity.PrincipalName,
			"removed", len(plan.Removals),
			"new_primary", plan.NewPrimary.Address(),
		)
		return models.Outcome{Identity: identity, Plan: plan, Status: models.StatusSimulated}
	}

	final := plan.Final(addresses)
	if err := p.directory.ApplyAddressSet(ctx, identity, final, *plan.NewPrimary); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeMutation, "apply address set failed")
		p.logger.ErrorContext(ctx, "rewrite failed",
			"principal", identity.PrincipalName,
			"error", err,
		)
		return models.Outcome{Identity: identity, Plan: plan, Status: models.StatusFailed, Err: err}
	}

	p.logger.InfoContext(ctx, "rewrite applied",
		"principal", identity.PrincipalName,
		"removed", len(plan.Removals),
		"new_primary", plan.NewPrimary.Address(),
	)
	return models.Outcome{Identity: identity, Plan: plan, Status: models.StatusSuccess}
}

// FailedOutcome builds the terminal outcome for identities that never reached
// planning (lookup miss, malformed address set).
func FailedOutcome(identity models.Identity, err error) models.Outcome {
	return models.Outcome{Identity: identity, Status: models.StatusFailed, Err: err}
}
