package markov

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DistributionTolerance is how far the total mass of a supplied distribution
// may be from 1.
const DistributionTolerance = 1e-6

// Distribution is a probability vector indexed by node index.
type Distribution []float64

// MalformedDistributionError is returned when a seed or initial distribution
// has negative or non-finite entries, the wrong size, or does not sum to 1.
type MalformedDistributionError struct {
	Name   string
	Reason string
}

func (e *MalformedDistributionError) Error() string {
	return fmt.Sprintf("malformed distribution %s: %s", e.Name, e.Reason)
}

// Uniform returns the uniform distribution over n entries.
func Uniform(n int) Distribution {
	d := make(Distribution, n)
	for i := range d {
		d[i] = 1 / float64(n)
	}
	return d
}

// Sum returns the total mass of d.
func (d Distribution) Sum() float64 {
	return floats.Sum(d)
}

// Delta returns the L1 distance between two distributions of equal length.
func Delta(a, b Distribution) float64 {
	if len(a) == 0 {
		return 0
	}
	return floats.Distance(a, b, 1)
}

// ValidateDistribution checks that d has n finite non-negative entries
// summing to 1 within DistributionTolerance. An empty distribution is valid
// only when n is 0.
func ValidateDistribution(name string, d Distribution, n int) error {
	if len(d) != n {
		return &MalformedDistributionError{
			Name:   name,
			Reason: fmt.Sprintf("expected %d entries, got %d", n, len(d)),
		}
	}
	if n == 0 {
		return nil
	}
	for i, v := range d {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return &MalformedDistributionError{
				Name:   name,
				Reason: fmt.Sprintf("entry %d is %v", i, v),
			}
		}
	}
	if total := d.Sum(); math.Abs(total-1) > DistributionTolerance {
		return &MalformedDistributionError{
			Name:   name,
			Reason: fmt.Sprintf("entries sum to %v", total),
		}
	}
	return nil
}
