package models

import (
	"voxelcut/pkg/camera"
	"voxelcut/pkg/raster"
)

// View is one calibrated photograph with its silhouette mask
type View struct {
	// Name identifies the view, usually the image file name
	Name string

	// Camera is the calibrated camera that took the photograph
	Camera *camera.Camera

	// Image is the luminance of the photograph, used for photo-consistency
	Image *raster.Raster

	// Mask is the foreground mask; values at or above the carving
	// threshold are inside the silhouette. It may have a different
	// resolution than Image.
	Mask *raster.Raster
}
