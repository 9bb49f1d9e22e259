package domain

import (
	"errors"
	"testing"
)

func TestValidateFareAttributes(t *testing.T) {
	valid := map[string]any{
		"base_fare":     1000.0,
		"rate_per_km":   120.0,
		"minimum_fare":  1200.0,
		"free_distance": 500.0,
		"currency":      "INR",
		"ticket_rates":  map[string]any{"adult": 100.0, "child": 50.0},
	}
	if err := ValidateFareAttributes(DynamicFareVersion, valid); err != nil {
		t.Fatalf("valid attributes rejected: %v", err)
	}

	cases := []struct {
		name  string
		attrs map[string]any
		want  error
	}{
		{"unknown key", map[string]any{"surge_factor": 2.0}, ErrFareBadAttributes},
		{"number as string", map[string]any{"base_fare": "1000"}, ErrFareBadAttributes},
		{"string as number", map[string]any{"currency": 42.0}, ErrFareBadAttributes},
		{"map with non-number value", map[string]any{"ticket_rates": map[string]any{"adult": "x"}}, ErrFareBadAttributes},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFareAttributes(DynamicFareVersion, tc.attrs)
			if !errors.Is(err, tc.want) {
				t.Errorf("ValidateFareAttributes() = %v, want %v", err, tc.want)
			}
		})
	}

	if err := ValidateFareAttributes(99, valid); !errors.Is(err, ErrFareVersionMismatch) {
		t.Errorf("unsupported version: got %v, want %v", err, ErrFareVersionMismatch)
	}
}

func TestRouteLegDistance(t *testing.T) {
	r := Route{Landmarks: []RouteLandmark{
		{LandmarkID: 1, DistanceFromStart: 0},
		{LandmarkID: 2, DistanceFromStart: 4000},
		{LandmarkID: 3, DistanceFromStart: 9500},
	}}

	if d, ok := r.LegDistance(1, 3); !ok || d != 9500 {
		t.Errorf("LegDistance(1,3) = %d,%v, want 9500,true", d, ok)
	}
	// Direction must not matter.
	if d, ok := r.LegDistance(3, 2); !ok || d != 5500 {
		t.Errorf("LegDistance(3,2) = %d,%v, want 5500,true", d, ok)
	}
	if _, ok := r.LegDistance(1, 99); ok {
		t.Error("LegDistance with unknown landmark reported ok")
	}
}
