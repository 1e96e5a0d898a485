package photo

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Kernel is a Parzen window used to spread a correlation peak over
// nearby depths.
type Kernel interface {
	Weight(d float64) float64
}

// IndicatorKernel is 1 for |d| <= Width and 0 elsewhere.
type IndicatorKernel struct {
	Width float64
}

// Weight implements Kernel.
func (k IndicatorKernel) Weight(d float64) float64 {
	if math.Abs(d) <= k.Width {
		return 1
	}
	return 0
}

// GaussianKernel is a Gaussian scaled to a peak weight of 1.
type GaussianKernel struct {
	dist distuv.Normal
	peak float64
}

// NewGaussianKernel creates a Gaussian kernel with the given standard
// deviation.
func NewGaussianKernel(sigma float64) *GaussianKernel {
	dist := distuv.Normal{Mu: 0, Sigma: sigma}
	return &GaussianKernel{dist: dist, peak: dist.Prob(0)}
}

// Weight implements Kernel.
func (k *GaussianKernel) Weight(d float64) float64 {
	return k.dist.Prob(d) / k.peak
}
