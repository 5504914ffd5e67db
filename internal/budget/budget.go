// Package budget implements the token-budget estimator of spec §4.1.
// It is a deliberately coarse proxy: a calibrated byte-count-over-four
// heuristic is enough because the action at each threshold (log a
// warning, terminate the iteration) is discrete and monotone in the
// estimate, not sensitive to exact tokenizer output.
package budget

// Health bands the estimate falls into, relative to the rotate threshold.
type Health string

const (
	HealthNominal Health = "nominal"
	HealthWarn    Health = "warn"
	HealthUrgent  Health = "urgent"
)

// promptEstimate is the fixed baseline charged for the standing prompt
// instructions every iteration pays regardless of observed I/O.
const promptEstimate = 3000

// Thresholds holds the two operator-chosen limits. Both must be > 0 and
// Warn <= Rotate; DefaultThresholds satisfies that invariant.
type Thresholds struct {
	Warn   int
	Rotate int
}

// DefaultThresholds matches spec §4.1's defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Warn: 72_000, Rotate: 80_000}
}

// Estimator accumulates byte counts for one iteration and reports the
// coarse token estimate. A new Estimator is created per iteration.
type Estimator struct {
	thresholds Thresholds

	bytesRead       int64
	bytesWritten    int64
	assistantChars  int64
	shellOutputChars int64

	warnSent bool
}

func New(thresholds Thresholds) *Estimator {
	return &Estimator{thresholds: thresholds}
}

// Kind selects which counter Add mutates.
type Kind int

const (
	KindRead Kind = iota
	KindWrite
	KindAssistant
	KindShell
)

// Add accumulates a non-negative byte count into the named counter.
// Negative n is treated as 0 — counters never decrease.
func (e *Estimator) Add(kind Kind, n int) {
	if n < 0 {
		n = 0
	}
	switch kind {
	case KindRead:
		e.bytesRead += int64(n)
	case KindWrite:
		e.bytesWritten += int64(n)
	case KindAssistant:
		e.assistantChars += int64(n)
	case KindShell:
		e.shellOutputChars += int64(n)
	}
}

// Current returns the coarse token estimate: total accumulated bytes,
// including the fixed prompt baseline, divided by four.
func (e *Estimator) Current() int64 {
	total := int64(promptEstimate) + e.bytesRead + e.bytesWritten + e.assistantChars + e.shellOutputChars
	return total / 4
}

// ShouldWarn returns true exactly once per Estimator instance, the first
// time the estimate crosses the warn threshold (a latch to avoid log spam).
func (e *Estimator) ShouldWarn() bool {
	if e.warnSent {
		return false
	}
	if e.Current() >= int64(e.thresholds.Warn) {
		e.warnSent = true
		return true
	}
	return false
}

// ShouldRotate returns true whenever the estimate is at or above the
// rotate threshold. Unlike ShouldWarn this does not latch: the caller
// may probe it at arbitrary points in the stream.
func (e *Estimator) ShouldRotate() bool {
	return e.Current() >= int64(e.thresholds.Rotate)
}

// HealthBand reports the nominal/warn/urgent band for the current
// estimate relative to the rotate threshold (<60% / 60-80% / >80%).
func (e *Estimator) HealthBand() Health {
	if e.thresholds.Rotate <= 0 {
		return HealthNominal
	}
	pct := e.Current() * 100 / int64(e.thresholds.Rotate)
	switch {
	case pct < 60:
		return HealthNominal
	case pct < 80:
		return HealthWarn
	default:
		return HealthUrgent
	}
}
