package service

import "testing"

func TestAwardPoints(t *testing.T) {
	policy := NewScoringPolicy(0.8)

	cases := []struct {
		name       string
		similarity float64
		maxPoints  int
		want       int
	}{
		{"WellAbove", 0.95, 10, 10},
		{"ExactlyAtThreshold", 0.8, 10, 10},
		{"JustBelow", 0.799, 10, 0},
		{"Zero", 0, 10, 0},
		{"Perfect", 1.0, 5, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.AwardPoints(tc.similarity, tc.maxPoints); got != tc.want {
				t.Errorf("AwardPoints(%v, %d) = %d, want %d", tc.similarity, tc.maxPoints, got, tc.want)
			}
		})
	}
}
