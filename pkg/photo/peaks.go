package photo

// PeakWindow is the number of samples in the sliding maximum test.
const PeakWindow = 5

// Candidate is a depth along the reference ray where some neighbour
// camera found a correlation peak.
type Candidate struct {
	Depth    float64
	Strength float64
}

// PeakFinder scans an ordered sequence of (depth, correlation) samples
// and keeps the local maxima above a threshold. A sample is a local
// maximum when it is >= every sample of the window centred on it.
type PeakFinder struct {
	threshold float64
	depths    [PeakWindow]float64
	values    [PeakWindow]float64
	n         int
	peaks     []Candidate
}

// NewPeakFinder creates a finder that accepts peaks strictly above
// threshold.
func NewPeakFinder(threshold float64) *PeakFinder {
	return &PeakFinder{threshold: threshold}
}

// Push appends the next sample.
func (p *PeakFinder) Push(depth, value float64) {
	if p.n == PeakWindow {
		copy(p.depths[:], p.depths[1:])
		copy(p.values[:], p.values[1:])
		p.n--
	}
	p.depths[p.n] = depth
	p.values[p.n] = value
	p.n++
	if p.n < PeakWindow {
		return
	}

	mid := PeakWindow / 2
	c := p.values[mid]
	if !(c > p.threshold) {
		return
	}
	for _, v := range p.values {
		if v > c {
			return
		}
	}
	p.peaks = append(p.peaks, Candidate{Depth: p.depths[mid], Strength: c})
}

// Peaks returns the accepted peaks in scan order.
func (p *PeakFinder) Peaks() []Candidate {
	return p.peaks
}

// Score evaluates the Parzen aggregate sum(strength * kernel(d - depth)).
func Score(candidates []Candidate, k Kernel, d float64) float64 {
	var s float64
	for _, c := range candidates {
		s += c.Strength * k.Weight(d-c.Depth)
	}
	return s
}
