package view

import "math"

// Progress returns the rounded mean progress of the key results that are not
// deleted, or 0 when none remain.
//
// Ties round half up (2.5 -> 3, 60.5 -> 61); progress values are never
// negative, so this matches rounding half away from zero.
func Progress(keyResults []KeyResult) int {
	sum := 0
	count := 0
	for _, kr := range keyResults {
		if kr.Deleted {
			continue
		}
		sum += kr.Progress
		count++
	}
	if count == 0 {
		return 0
	}
	return int(math.Floor(float64(sum)/float64(count) + 0.5))
}
