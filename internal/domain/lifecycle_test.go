package domain

import "testing"

func TestServiceTransitions(t *testing.T) {
	allowed := []struct{ from, to ServiceStatus }{
		{ServiceCreated, ServiceStarted},
		{ServiceStarted, ServiceTerminated},
		{ServiceStarted, ServiceEnded},
		{ServiceTerminated, ServiceEnded},
		{ServiceEnded, ServiceAudited},
	}
	for _, tc := range allowed {
		if !CanServiceTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to ServiceStatus }{
		{ServiceCreated, ServiceTerminated},
		{ServiceCreated, ServiceEnded},
		{ServiceCreated, ServiceAudited},
		{ServiceStarted, ServiceCreated},
		{ServiceStarted, ServiceAudited},
		{ServiceTerminated, ServiceStarted},
		{ServiceEnded, ServiceStarted},
		{ServiceAudited, ServiceEnded},
		{ServiceAudited, ServiceCreated},
	}
	for _, tc := range denied {
		if CanServiceTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestDutyTransitions(t *testing.T) {
	allowed := []struct{ from, to DutyStatus }{
		{DutyAssigned, DutyStarted},
		{DutyAssigned, DutyNotUsed},
		{DutyStarted, DutyTerminated},
		{DutyStarted, DutyEnded},
		{DutyTerminated, DutyEnded},
	}
	for _, tc := range allowed {
		if !CanDutyTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to DutyStatus }{
		{DutyAssigned, DutyTerminated},
		{DutyAssigned, DutyEnded},
		{DutyStarted, DutyNotUsed},
		{DutyTerminated, DutyStarted},
		{DutyEnded, DutyStarted},
		{DutyNotUsed, DutyStarted},
		{DutyNotUsed, DutyEnded},
	}
	for _, tc := range denied {
		if CanDutyTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestDutyTerminal(t *testing.T) {
	if !DutyEnded.Terminal() || !DutyNotUsed.Terminal() {
		t.Error("ended and not_used must be terminal")
	}
	if DutyAssigned.Terminal() || DutyStarted.Terminal() || DutyTerminated.Terminal() {
		t.Error("assigned, started and terminated must not be terminal")
	}
}

func TestServiceSnapshotted(t *testing.T) {
	svc := Service{}
	if svc.Snapshotted() {
		t.Error("service without snapshots reported snapshotted")
	}
	svc.BusSnapshot = []byte(`{}`)
	svc.RouteSnapshot = []byte(`{}`)
	if svc.Snapshotted() {
		t.Error("service with partial snapshots reported snapshotted")
	}
	svc.FareSnapshot = []byte(`{}`)
	if !svc.Snapshotted() {
		t.Error("fully snapshotted service reported incomplete")
	}
}
