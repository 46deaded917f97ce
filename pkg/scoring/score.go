package scoring

import "math"

// Score returns the health score for a tally, in [0, 100].
//
// An audit with nothing checked scores 100. When the tally carries weighted
// bookkeeping the weighted formula is authoritative; otherwise the fallback
// formula is used. The two formulas can disagree on the same counts.
func Score(t Tally) int {
	return DefaultPenalties().Score(t)
}

// WeightedScore is the primary formula: 100 minus the penalty ratio.
func WeightedScore(t Tally) int {
	return DefaultPenalties().Weighted(t)
}

// FallbackScore is the pass-rate formula used when no weight data exists.
func FallbackScore(t Tally) int {
	return DefaultPenalties().Fallback(t)
}

// Score dispatches between the weighted and fallback formulas.
func (p Penalties) Score(t Tally) int {
	if t.TotalChecks() == 0 {
		return 100
	}
	if t.HasWeights() {
		return p.Weighted(t)
	}
	return p.Fallback(t)
}

// Weighted computes round(100 - penalty/max*100), clamped.
func (p Penalties) Weighted(t Tally) int {
	if t.MaxWeight <= 0 {
		return 100
	}
	ratio := t.WeightedPenalty / float64(t.MaxWeight)
	return clamp(math.Round(100 - ratio*100))
}

// Fallback computes round(passRate*100 - criticalPenalty - warningPenalty),
// clamped.
func (p Penalties) Fallback(t Tally) int {
	total := t.TotalChecks()
	if total == 0 {
		return 100
	}
	passRate := float64(t.Passed) / float64(total)
	criticalPenalty := math.Min(p.FallbackCriticalCap, float64(t.CriticalIssues)*p.FallbackPerCritical)
	warningPenalty := math.Min(p.FallbackWarningCap, float64(t.Warnings)*p.FallbackPerWarning)
	return clamp(math.Round(passRate*100 - criticalPenalty - warningPenalty))
}

func clamp(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return int(v)
	}
}

// GradeFromScore maps a health score to a letter grade.
func GradeFromScore(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}
