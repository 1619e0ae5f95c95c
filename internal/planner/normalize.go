package planner

import (
	"math"
	"strings"
)

// NormalizeExercise canonicalizes an exercise name used as the join key
// between logged strength tasks and goals: surrounding whitespace is
// trimmed and the name is lower-cased. An empty result means the name is
// invalid and the calling operation must no-op.
//
// Two differently-spelled names that canonicalize identically are merged
// silently. That is the documented join behavior, not a bug, but it is a
// known UX risk when goals are typed inconsistently.
func NormalizeExercise(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// trimOrDefault trims the name and substitutes the placeholder when
// nothing is left.
func trimOrDefault(name, placeholder string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return placeholder
}

// coerceFinite maps NaN and ±Inf to 0 so that malformed numbers never
// propagate into derived scores.
func coerceFinite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clampNonNegative(v float64) float64 {
	v = coerceFinite(v)
	if v < 0 {
		return 0
	}
	return v
}

func clampNonNegativeInt(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// clamp01 forces any derived ratio into a finite [0,1] range.
func clamp01(v float64) float64 {
	v = coerceFinite(v)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
