package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/adapters/repositories"
	"github.com/ThinkalVB/entebus-server/internal/adapters/sandbox"
	"github.com/ThinkalVB/entebus-server/internal/config"
	"github.com/ThinkalVB/entebus-server/internal/domain"
)

func testSandbox() *sandbox.LuaSandbox {
	return sandbox.NewLuaSandbox(config.Sandbox{
		Timeout:        1000 * time.Millisecond,
		MaxMemoryBytes: 10 * 1024 * 1024,
	})
}

func newResolverFixture() (*FareResolver, *repositories.MemoryStore) {
	store := repositories.NewMemoryStore()
	store.PutGlobalFare(&domain.FareDefinition{
		ID:         1,
		Scope:      domain.FareGlobal,
		Version:    domain.DynamicFareVersion,
		Name:       "city-a",
		Attributes: map[string]any{"base_fare": 2000.0},
		Function:   `return attributes.base_fare`,
	})
	store.PutLocalFare(&domain.FareDefinition{
		ID:         10,
		Scope:      domain.FareLocal,
		CompanyID:  7,
		Version:    domain.DynamicFareVersion,
		Name:       "city-a",
		Attributes: map[string]any{"base_fare": 1000.0},
		Function:   `return attributes.base_fare`,
	})
	return NewFareResolver(store, testSandbox()), store
}

func TestResolveLocalOverridesGlobal(t *testing.T) {
	resolver, _ := newResolverFixture()
	ctx := context.Background()
	trip := domain.TripContext{DistanceMeters: 1000}

	// Company 7 has a local override named like the global fare.
	eval, def, err := resolver.Resolve(ctx, 7, "city-a", trip)
	if err != nil {
		t.Fatalf("resolve for company 7 failed: %v", err)
	}
	if def.Scope != domain.FareLocal || eval.Total != 1000 {
		t.Errorf("company 7: got scope=%v total=%d, want local 1000", def.Scope, eval.Total)
	}

	// A company without an override falls back to the global fare.
	eval, def, err = resolver.Resolve(ctx, 9, "city-a", trip)
	if err != nil {
		t.Fatalf("resolve for company 9 failed: %v", err)
	}
	if def.Scope != domain.FareGlobal || eval.Total != 2000 {
		t.Errorf("company 9: got scope=%v total=%d, want global 2000", def.Scope, eval.Total)
	}
}

func TestResolveNotFound(t *testing.T) {
	resolver, _ := newResolverFixture()
	_, _, err := resolver.Resolve(context.Background(), 7, "no-such-fare", domain.TripContext{DistanceMeters: 1})
	if !errors.Is(err, domain.ErrFareNotFound) {
		t.Fatalf("got %v, want ErrFareNotFound", err)
	}
}

func TestResolveVersionDrift(t *testing.T) {
	resolver, _ := newResolverFixture()
	trip := domain.TripContext{DistanceMeters: 1000}

	if _, _, err := resolver.ResolveVersion(context.Background(), 7, "city-a", domain.DynamicFareVersion, trip); err != nil {
		t.Fatalf("matching version rejected: %v", err)
	}
	_, _, err := resolver.ResolveVersion(context.Background(), 7, "city-a", 2, trip)
	if !errors.Is(err, domain.ErrFareVersionMismatch) {
		t.Fatalf("got %v, want ErrFareVersionMismatch", err)
	}
}

func TestResolveRejectsBadAttributes(t *testing.T) {
	resolver, store := newResolverFixture()
	store.PutLocalFare(&domain.FareDefinition{
		ID:         11,
		Scope:      domain.FareLocal,
		CompanyID:  7,
		Version:    domain.DynamicFareVersion,
		Name:       "broken",
		Attributes: map[string]any{"surge_factor": 2.0},
		Function:   `return 1`,
	})

	_, _, err := resolver.Resolve(context.Background(), 7, "broken", domain.TripContext{DistanceMeters: 1})
	if !errors.Is(err, domain.ErrFareBadAttributes) {
		t.Fatalf("got %v, want ErrFareBadAttributes", err)
	}
}

func TestEvaluateSnapshotIgnoresLiveEdits(t *testing.T) {
	resolver, store := newResolverFixture()
	ctx := context.Background()

	snap := domain.FareSnapshotData{
		FareID:     10,
		Scope:      domain.FareLocal,
		Version:    domain.DynamicFareVersion,
		Name:       "city-a",
		Attributes: map[string]any{"base_fare": 1000.0},
		Function:   `return attributes.base_fare`,
	}

	// Mutate the live definition after the snapshot was frozen.
	store.PutLocalFare(&domain.FareDefinition{
		ID:         10,
		Scope:      domain.FareLocal,
		CompanyID:  7,
		Version:    domain.DynamicFareVersion,
		Name:       "city-a",
		Attributes: map[string]any{"base_fare": 9999.0},
		Function:   `return attributes.base_fare`,
	})

	eval, err := resolver.EvaluateSnapshot(ctx, snap, domain.TripContext{DistanceMeters: 1000})
	if err != nil {
		t.Fatalf("snapshot evaluation failed: %v", err)
	}
	if eval.Total != 1000 {
		t.Errorf("total = %d, want the frozen 1000, not the live 9999", eval.Total)
	}
}
