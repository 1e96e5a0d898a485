package photo

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Otsu returns the threshold that best splits values into two classes
// by maximizing the between-class variance. The result is the smallest
// value of the upper class. All-equal input gives that value; empty
// input gives 0.
func Otsu(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := float64(len(sorted))
	total := floats.Sum(sorted)
	best := sorted[0]
	bestVar := math.Inf(-1)

	var lowSum float64
	for i := 0; i < len(sorted)-1; i++ {
		lowSum += sorted[i]
		if sorted[i] == sorted[i+1] {
			continue
		}
		n0 := float64(i + 1)
		n1 := n - n0
		mu0 := lowSum / n0
		mu1 := (total - lowSum) / n1
		w0, w1 := n0/n, n1/n
		if v := w0 * w1 * (mu0 - mu1) * (mu0 - mu1); v > bestVar {
			bestVar = v
			best = sorted[i+1]
		}
	}
	return best
}

// Thresholder picks the fused score a face needs to be accepted.
type Thresholder interface {
	Threshold(scores []float64) float64
}

// FixedThreshold always returns Value.
type FixedThreshold struct {
	Value float64
}

// Threshold implements Thresholder.
func (f FixedThreshold) Threshold([]float64) float64 { return f.Value }

// OtsuThreshold splits the per-camera votes with Otsu's method.
type OtsuThreshold struct{}

// Threshold implements Thresholder.
func (OtsuThreshold) Threshold(scores []float64) float64 { return Otsu(scores) }
