// Package pointcloud exports voxel models as PCD point clouds of voxel
// centres.
package pointcloud

import (
	"os"

	"github.com/pkg/errors"
	"github.com/seqsense/pcgol/mat"
	"github.com/seqsense/pcgol/pc"

	"voxelcut/internal/models"
)

// Labels stored in the "label" field.
const (
	LabelInterior uint32 = 0
	LabelSurface  uint32 = 1
)

// FromOccupancy builds a cloud with one point per occupied voxel centre
// and a label telling surface voxels from interior ones. With
// surfaceOnly set only surface voxels are written.
func FromOccupancy(occ *models.Occupancy, surfaceOnly bool) (*pc.PointCloud, error) {
	codes := occ.Codes()
	if surfaceOnly {
		codes = occ.SurfaceCodes()
	}
	n := len(codes)
	pp := &pc.PointCloud{
		PointCloudHeader: pc.PointCloudHeader{
			Version: 0.7,
			Fields:  []string{"x", "y", "z", "label"},
			Size:    []int{4, 4, 4, 4},
			Type:    []string{"F", "F", "F", "U"},
			Count:   []int{1, 1, 1, 1},
			Width:   n,
			Height:  1,
			// Identity pose: translation then quaternion wxyz.
			Viewpoint: []float32{0, 0, 0, 1, 0, 0, 0},
		},
		Points: n,
		Data:   make([]byte, 16*n),
	}
	if n == 0 {
		return pp, nil
	}

	it, err := pp.Vec3Iterator()
	if err != nil {
		return nil, errors.Wrap(err, "point iterator")
	}
	itL, err := pp.Uint32Iterator("label")
	if err != nil {
		return nil, errors.Wrap(err, "label iterator")
	}
	for _, code := range codes {
		c := occ.Center(code)
		it.SetVec3(mat.Vec3{float32(c.X), float32(c.Y), float32(c.Z)})
		if occ.IsSurface(code) {
			itL.SetUint32(LabelSurface)
		} else {
			itL.SetUint32(LabelInterior)
		}
		it.Incr()
		itL.Incr()
	}
	return pp, nil
}

// Save writes a cloud as a PCD file.
func Save(pp *pc.PointCloud, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create point cloud file")
	}
	if err := pc.Marshal(pp, f); err != nil {
		f.Close()
		return errors.Wrap(err, "write point cloud")
	}
	return errors.Wrap(f.Close(), "close point cloud file")
}

// Load reads a PCD file.
func Load(path string) (*pc.PointCloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open point cloud file")
	}
	defer f.Close()
	pp, err := pc.Unmarshal(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read point cloud %s", path)
	}
	return pp, nil
}

// SaveOccupancy exports an occupancy to a PCD file.
func SaveOccupancy(occ *models.Occupancy, path string, surfaceOnly bool) error {
	pp, err := FromOccupancy(occ, surfaceOnly)
	if err != nil {
		return err
	}
	return Save(pp, path)
}
