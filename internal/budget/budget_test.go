package budget

import "testing"

func TestEstimator_CurrentIsMonotone(t *testing.T) {
	e := New(Thresholds{Warn: 100, Rotate: 200})
	prev := e.Current()
	for i := 0; i < 10; i++ {
		e.Add(KindAssistant, 37)
		cur := e.Current()
		if cur < prev {
			t.Fatalf("estimate decreased: %d -> %d", prev, cur)
		}
		prev = cur
	}
}

func TestEstimator_NegativeAddClampsToZero(t *testing.T) {
	e := New(Thresholds{Warn: 100, Rotate: 200})
	before := e.Current()
	e.Add(KindRead, -50)
	if e.Current() != before {
		t.Fatalf("negative add should not change the estimate: before=%d after=%d", before, e.Current())
	}
}

func TestEstimator_ShouldWarnLatchesOnce(t *testing.T) {
	e := New(Thresholds{Warn: 10, Rotate: 1000})
	e.Add(KindAssistant, 1000)

	if !e.ShouldWarn() {
		t.Fatal("expected ShouldWarn to fire once the warn threshold is crossed")
	}
	if e.ShouldWarn() {
		t.Fatal("ShouldWarn must not fire a second time for the same estimator")
	}
}

func TestEstimator_ShouldRotateDoesNotLatch(t *testing.T) {
	e := New(Thresholds{Warn: 10, Rotate: 20})
	e.Add(KindAssistant, 1000)

	if !e.ShouldRotate() {
		t.Fatal("expected ShouldRotate to report true once over threshold")
	}
	if !e.ShouldRotate() {
		t.Fatal("ShouldRotate should keep reporting true, unlike ShouldWarn")
	}
}

func TestEstimator_HealthBand(t *testing.T) {
	const rotate = 100_000 // large relative to the fixed prompt baseline
	e := New(Thresholds{Warn: 72_000, Rotate: rotate})

	if band := e.HealthBand(); band != HealthNominal {
		t.Fatalf("expected nominal band at zero usage, got %s", band)
	}

	// Push the estimate to ~70% of the rotate threshold.
	targetTokens := int64(rotate) * 70 / 100
	e.Add(KindAssistant, int(targetTokens*4-promptEstimate))
	if band := e.HealthBand(); band != HealthWarn {
		t.Fatalf("expected warn band at ~70%%, got %s", band)
	}

	e.Add(KindAssistant, rotate*4)
	if band := e.HealthBand(); band != HealthUrgent {
		t.Fatalf("expected urgent band once over threshold, got %s", band)
	}
}
