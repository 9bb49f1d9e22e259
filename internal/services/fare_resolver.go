package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThinkalVB/entebus-server/internal/domain"
	"github.com/ThinkalVB/entebus-server/internal/ports"
)

// FareResolver picks the effective fare definition for a company and
// delegates evaluation to the script sandbox.
//
// Resolution order: a local fare matching the name wins over any global
// fare with the same name. A local fare's global back-reference is
// provenance only; the local attributes and function always apply.
type FareResolver struct {
	fares   ports.FareRepository
	sandbox ports.ScriptSandbox
}

func NewFareResolver(fares ports.FareRepository, sandbox ports.ScriptSandbox) *FareResolver {
	return &FareResolver{fares: fares, sandbox: sandbox}
}

// Resolve evaluates the effective fare named name for the company against
// the trip context. Sandbox failures are surfaced unchanged; the caller
// must fail closed rather than substitute an amount.
func (r *FareResolver) Resolve(ctx context.Context, companyID int, name string, trip domain.TripContext) (domain.Evaluation, *domain.FareDefinition, error) {
	def, err := r.lookup(ctx, companyID, name)
	if err != nil {
		return domain.Evaluation{}, nil, err
	}
	eval, err := r.evaluate(ctx, def, trip)
	if err != nil {
		return domain.Evaluation{}, nil, err
	}
	return eval, def, nil
}

// ResolveVersion is Resolve with drift detection: when the caller expects
// a specific definition version (e.g. recomputing against a snapshot's
// provenance) and the live definition no longer matches, the resolution is
// rejected instead of silently pricing with changed rules.
func (r *FareResolver) ResolveVersion(ctx context.Context, companyID int, name string, expectedVersion int, trip domain.TripContext) (domain.Evaluation, *domain.FareDefinition, error) {
	def, err := r.lookup(ctx, companyID, name)
	if err != nil {
		return domain.Evaluation{}, nil, err
	}
	if def.Version != expectedVersion {
		return domain.Evaluation{}, nil, fmt.Errorf("%w: fare %q is version %d, caller expected %d",
			domain.ErrFareVersionMismatch, name, def.Version, expectedVersion)
	}
	eval, err := r.evaluate(ctx, def, trip)
	if err != nil {
		return domain.Evaluation{}, nil, err
	}
	return eval, def, nil
}

// EvaluateSnapshot prices a trip using only the values frozen into a
// service's fare snapshot. Live fare definitions are never consulted, so
// later edits can never leak into an already-materialized service.
func (r *FareResolver) EvaluateSnapshot(ctx context.Context, snap domain.FareSnapshotData, trip domain.TripContext) (domain.Evaluation, error) {
	if err := domain.ValidateFareAttributes(snap.Version, snap.Attributes); err != nil {
		return domain.Evaluation{}, fmt.Errorf("fare snapshot %q: %w", snap.Name, err)
	}
	return r.sandbox.Evaluate(ctx, snap.Function, snap.Attributes, trip)
}

func (r *FareResolver) lookup(ctx context.Context, companyID int, name string) (*domain.FareDefinition, error) {
	def, err := r.fares.FindLocalFare(ctx, companyID, name)
	if err == nil {
		return def, nil
	}
	if !errors.Is(err, domain.ErrFareNotFound) {
		return nil, fmt.Errorf("resolve fare %q for company %d: %w", name, companyID, err)
	}

	def, err = r.fares.FindGlobalFare(ctx, name)
	if errors.Is(err, domain.ErrFareNotFound) {
		return nil, fmt.Errorf("%w: %q for company %d", domain.ErrFareNotFound, name, companyID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve global fare %q: %w", name, err)
	}
	return def, nil
}

func (r *FareResolver) evaluate(ctx context.Context, def *domain.FareDefinition, trip domain.TripContext) (domain.Evaluation, error) {
	if err := domain.ValidateFareAttributes(def.Version, def.Attributes); err != nil {
		return domain.Evaluation{}, fmt.Errorf("fare %q: %w", def.Name, err)
	}
	return r.sandbox.Evaluate(ctx, def.Function, def.Attributes, trip)
}
