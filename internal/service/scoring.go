package service

// ScoringPolicy converts a similarity score into awarded points. The rule is
// deliberately binary: full points at or above the threshold, zero below it.
// No interpolation.
type ScoringPolicy struct {
	Threshold float64
}

// NewScoringPolicy creates a scoring policy with the given similarity cutoff.
func NewScoringPolicy(threshold float64) *ScoringPolicy {
	return &ScoringPolicy{Threshold: threshold}
}

// AwardPoints returns maxPoints if similarity meets the threshold, else 0.
func (p *ScoringPolicy) AwardPoints(similarity float64, maxPoints int) int {
	if similarity >= p.Threshold {
		return maxPoints
	}
	return 0
}
