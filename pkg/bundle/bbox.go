package bundle

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// featurePoint is a feature position in a kd-tree.
type featurePoint r3.Vec

// Compare implements the kdtree.Comparable interface
func (p featurePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(featurePoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p featurePoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p featurePoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(r3.Vec(p), r3.Vec(c.(featurePoint))))
}

// featurePoints satisfies kdtree.Interface
type featurePoints []featurePoint

func (p featurePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p featurePoints) Len() int                              { return len(p) }
func (p featurePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p featurePoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(featurePlane{featurePoints: p, Dim: d}, kdtree.MedianOfRandoms(featurePlane{featurePoints: p, Dim: d}, 100))
}

// featurePlane implements sort.Interface and kdtree.SortSlicer
type featurePlane struct {
	featurePoints
	kdtree.Dim
}

func (p featurePlane) Less(i, j int) bool {
	return p.featurePoints[i].Compare(p.featurePoints[j], p.Dim) < 0
}

func (p featurePlane) Slice(start, end int) kdtree.SortSlicer {
	return featurePlane{featurePoints: p.featurePoints[start:end], Dim: p.Dim}
}

func (p featurePlane) Swap(i, j int) {
	p.featurePoints[i], p.featurePoints[j] = p.featurePoints[j], p.featurePoints[i]
}

// FilterOutliers drops statistical outliers: points whose mean distance
// to their k nearest neighbours exceeds the mean of that statistic over
// all points by more than stddev standard deviations. With k <= 0 or too
// few points the input is returned unchanged.
func FilterOutliers(points []r3.Vec, k int, stddev float64) []r3.Vec {
	if k <= 0 || len(points) <= k {
		return points
	}
	data := make(featurePoints, len(points))
	for i, p := range points {
		data[i] = featurePoint(p)
	}
	tree := kdtree.New(data, false)

	meanDist := make([]float64, len(points))
	for i, p := range points {
		// The query point is its own nearest neighbour.
		keeper := kdtree.NewNKeeper(k + 1)
		tree.NearestSet(keeper, featurePoint(p))
		var sum float64
		n := 0
		for _, item := range keeper.Heap {
			if item.Comparable == nil {
				continue
			}
			sum += math.Sqrt(item.Dist)
			n++
		}
		if n > 1 {
			meanDist[i] = sum / float64(n-1)
		}
	}

	mean, std := stat.MeanStdDev(meanDist, nil)
	limit := mean + stddev*std
	var kept []r3.Vec
	for i, p := range points {
		if meanDist[i] <= limit {
			kept = append(kept, p)
		}
	}
	return kept
}

// BoundingBox returns the box around the points that survive outlier
// removal, grown on every side by padding times its largest extent.
func BoundingBox(points []r3.Vec, k int, stddev, padding float64) (r3.Box, error) {
	kept := FilterOutliers(points, k, stddev)
	if len(kept) == 0 {
		return r3.Box{}, errors.New("bounding box: no feature points")
	}
	box := r3.Box{Min: kept[0], Max: kept[0]}
	for _, p := range kept[1:] {
		box.Min = r3.Vec{X: math.Min(box.Min.X, p.X), Y: math.Min(box.Min.Y, p.Y), Z: math.Min(box.Min.Z, p.Z)}
		box.Max = r3.Vec{X: math.Max(box.Max.X, p.X), Y: math.Max(box.Max.Y, p.Y), Z: math.Max(box.Max.Z, p.Z)}
	}
	size := r3.Sub(box.Max, box.Min)
	extent := math.Max(size.X, math.Max(size.Y, size.Z))
	pad := padding * extent
	if extent == 0 {
		// A single point or a degenerate cloud still needs some volume.
		pad = math.Max(padding, 1e-3)
	}
	margin := r3.Vec{X: pad, Y: pad, Z: pad}
	return r3.Box{Min: r3.Sub(box.Min, margin), Max: r3.Add(box.Max, margin)}, nil
}
