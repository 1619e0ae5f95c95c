package planner

// EstimateOneRepMax estimates the one-repetition maximum from a lighter
// weight lifted for multiple reps, using the Epley formula:
//
//	1RM = weight * (1 + reps/30)
//
// It returns 0 unless both weight and reps are positive, and treats
// non-finite inputs as 0. This is the sole strength-equivalence function:
// all goal-attainment ratios compare estimated 1RMs, never raw
// weight x reps, so different set/rep/weight combinations for the same
// exercise land on one comparable scale.
func EstimateOneRepMax(weight, reps float64) float64 {
	w := coerceFinite(weight)
	r := coerceFinite(reps)
	if w <= 0 || r <= 0 {
		return 0
	}
	return w * (1 + r/30)
}
