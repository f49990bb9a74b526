package services

import (
	"math"
)

// Reward multipliers. A fast solve (a third of the ETA or less) earns a 20%
// bonus, finishing within the ETA a 10% bonus; repeated full-test attempts
// shave the award down.

// TimeBonusMultiplier returns the speed multiplier for a completion.
// Missing or non-positive time spent, and a non-positive ETA, mean no bonus.
func TimeBonusMultiplier(etaMinutes int, timeSpentSeconds *int) float64 {
	if timeSpentSeconds == nil || *timeSpentSeconds <= 0 || etaMinutes <= 0 {
		return 1.0
	}

	etaSeconds := etaMinutes * 60
	fastThreshold := etaSeconds / 3
	switch {
	case *timeSpentSeconds <= fastThreshold:
		return 1.2
	case *timeSpentSeconds <= etaSeconds:
		return 1.1
	default:
		return 1.0
	}
}

// AttemptsMultiplier penalizes trial-and-error: the count is the number of
// full-test runs recorded before the winning submission.
func AttemptsMultiplier(testAttemptsCount int) float64 {
	switch {
	case testAttemptsCount <= 2:
		return 1.0
	case testAttemptsCount <= 4:
		return 0.9
	default:
		return 0.75
	}
}

// ComputeAwardedXP turns the mission's base XP into the awarded amount,
// rounded to the nearest integer. Pure: no stored state beyond the inputs.
func ComputeAwardedXP(baseXP, etaMinutes int, timeSpentSeconds *int, testAttemptsCount int) int {
	timeMultiplier := TimeBonusMultiplier(etaMinutes, timeSpentSeconds)
	attemptsMultiplier := AttemptsMultiplier(testAttemptsCount)
	return int(math.Round(float64(baseXP) * timeMultiplier * attemptsMultiplier))
}
