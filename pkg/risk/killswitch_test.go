package risk

import "testing"

func TestKillSwitchTripsOnConsecutiveFailures(t *testing.T) {
	ks := NewKillSwitch(3, 10)

	ks.RecordFailure("transport error")
	ks.RecordFailure("transport error")
	if ks.IsTripped() {
		t.Fatal("should not be tripped after 2 failures")
	}
	tripped := ks.RecordFailure("transport error")
	if !tripped || !ks.IsTripped() {
		t.Fatal("expected trip after 3rd consecutive failure")
	}
}

func TestKillSwitchSuccessResetsConsecutiveOnly(t *testing.T) {
	ks := NewKillSwitch(3, 10)
	ks.RecordFailure("e1")
	ks.RecordFailure("e2")
	ks.RecordSuccess()
	ks.RecordFailure("e3")
	ks.RecordFailure("e4")
	if ks.IsTripped() {
		t.Fatal("consecutive counter should have reset after success")
	}
}

func TestKillSwitchStaysTrippedUntilReset(t *testing.T) {
	ks := NewKillSwitch(1, 10)
	ks.RecordFailure("boom")
	if !ks.IsTripped() {
		t.Fatal("expected tripped")
	}
	ks.RecordSuccess()
	if !ks.IsTripped() {
		t.Fatal("tripped state must be sticky across a later success")
	}
	ks.Reset()
	if ks.IsTripped() {
		t.Fatal("expected cleared after explicit reset")
	}
}

func TestMarginMonitorThresholds(t *testing.T) {
	mm := NewMarginMonitor(0.2) // critical above 0.8
	critical, warning := mm.UpdateMarginUsage("hedge", 0.85)
	if !critical {
		t.Fatal("expected critical at 0.85 utilization with 0.2 buffer")
	}
	critical, warning = mm.UpdateMarginUsage("hedge", 0.78)
	if critical || !warning {
		t.Fatalf("expected warning-only at 0.78, got critical=%v warning=%v", critical, warning)
	}
}
