package weather

import "math"

// Reducer folds a slice of observations into one value.
type Reducer func(values []float64) float64

// Aggregate applies r to values with NaN entries removed. An empty input
// yields NaN.
func Aggregate(values []float64, r Reducer) float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN()
	}
	return r(clean)
}

// Mean averages the values.
func Mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Sum adds the values up.
func Sum(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}

func Max(values []float64) float64 {
	best := values[0]
	for _, v := range values[1:] {
		best = math.Max(best, v)
	}
	return best
}

func Min(values []float64) float64 {
	best := values[0]
	for _, v := range values[1:] {
		best = math.Min(best, v)
	}
	return best
}

// CountIf returns a reducer counting the values that satisfy pred.
func CountIf(pred func(float64) bool) Reducer {
	return func(values []float64) float64 {
		n := 0
		for _, v := range values {
			if pred(v) {
				n++
			}
		}
		return float64(n)
	}
}

// LongestRun returns a reducer measuring the longest run of consecutive
// values that satisfy pred.
func LongestRun(pred func(float64) bool) Reducer {
	return func(values []float64) float64 {
		run, best := 0, 0
		for _, v := range values {
			if pred(v) {
				run++
				best = max(best, run)
			} else {
				run = 0
			}
		}
		return float64(best)
	}
}

// RollingSumMax returns a reducer for the largest sum over window
// consecutive values. Fewer than window values yield NaN.
func RollingSumMax(window int) Reducer {
	return func(values []float64) float64 {
		if len(values) < window {
			return math.NaN()
		}
		var sum float64
		for _, v := range values[:window] {
			sum += v
		}
		best := sum
		for i := window; i < len(values); i++ {
			sum += values[i] - values[i-window]
			best = math.Max(best, sum)
		}
		return best
	}
}
