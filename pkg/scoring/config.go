package scoring

// Penalties holds the constants of both scoring formulas.
type Penalties struct {
	// Weighted formula: fraction of a check's weight charged per outcome.
	CriticalFraction float64
	WarningFraction  float64

	// Fallback formula: per-issue deductions and their caps, in score points.
	FallbackPerCritical float64
	FallbackCriticalCap float64
	FallbackPerWarning  float64
	FallbackWarningCap  float64
}

// DefaultPenalties returns the standard penalty constants.
func DefaultPenalties() Penalties {
	return Penalties{
		CriticalFraction: 1.0,
		WarningFraction:  0.3,

		FallbackPerCritical: 0.5,
		FallbackCriticalCap: 30,
		FallbackPerWarning:  0.1,
		FallbackWarningCap:  15,
	}
}
