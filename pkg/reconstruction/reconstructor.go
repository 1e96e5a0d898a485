package reconstruction

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/anthonynsimon/bild/transform"
	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/internal/models"
	"voxelcut/pkg/bundle"
	"voxelcut/pkg/config"
	"voxelcut/pkg/graph"
	"voxelcut/pkg/hull"
	"voxelcut/pkg/maxflow"
	"voxelcut/pkg/photo"
	"voxelcut/pkg/pointcloud"
	"voxelcut/pkg/raster"
	"voxelcut/pkg/stl"
	"voxelcut/pkg/visualization"
	"voxelcut/pkg/voxel"
)

// DefaultIntermediaryDir receives the stage volumes when intermediary
// results are requested without a slices directory.
const DefaultIntermediaryDir = "intermediary_results"

// StageTiming records how long one pipeline stage took
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Metrics summarizes a reconstruction run.
type Metrics struct {
	// Cameras is the number of calibrated views used
	Cameras int

	// Voxels is the size of the grid
	Voxels int

	// HullVoxels is the number of voxels left after carving
	HullVoxels int

	// FacesScored counts the faces that received a photo-consistency vote
	FacesScored int

	// FacesWithEvidence counts the scored faces with a positive weight
	FacesWithEvidence int

	// Graph is the size of the cut graph
	Graph graph.Stats

	// Flow is the value of the maximum flow, equal to the cut energy
	Flow float64

	// Augmentations counts the augmenting paths of the solver
	Augmentations int

	// OccupiedVoxels is the number of voxels in the final model
	OccupiedVoxels int

	// SurfaceVoxels is the number of occupied voxels with an empty neighbour
	SurfaceVoxels int

	// Timings lists the stages in the order they ran
	Timings []StageTiming
}

// Reconstructor runs the full pipeline:
//  1. Loading the bundle, images and masks
//  2. Bounding the object from the feature points
//  3. Allocating the voxel grid
//  4. Carving the visual hull
//  5. Scoring faces for photo-consistency
//  6. Building the cut graph
//  7. Solving the min-cut
//  8. Exporting the model
type Reconstructor struct {
	config *config.Config

	box       r3.Box
	grid      *voxel.Grid
	occupancy *models.Occupancy

	metrics Metrics
}

// sliceVolume is one volume dumped as PNG slices
type sliceVolume struct {
	name   string
	viewer *visualization.Viewer
}

// NewReconstructor creates a new reconstructor instance with the provided configuration.
func NewReconstructor(cfg *config.Config) *Reconstructor {
	return &Reconstructor{config: cfg}
}

// Process runs the complete reconstruction pipeline, from the bundle
// file named in the configuration to the exported model.
func (r *Reconstructor) Process() error {
	if err := r.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	r.logf("Step 1: Loading bundle %s...\n", r.config.Input.BundlePath)
	start := time.Now()
	b, err := bundle.Load(r.config.Input.BundlePath)
	if err != nil {
		return fmt.Errorf("failed to load bundle: %w", err)
	}
	views, err := r.loadViews(b)
	if err != nil {
		return fmt.Errorf("failed to load views: %w", err)
	}
	r.recordStage("load", start)
	r.logf("Loaded %d views\n", len(views))

	r.logf("Step 2: Bounding %d feature points...\n", len(b.Points))
	start = time.Now()
	box, err := bundle.BoundingBox(b.Positions(), r.config.Grid.OutlierNeighbors,
		r.config.Grid.OutlierStdDev, r.config.Grid.Padding)
	if err != nil {
		return fmt.Errorf("failed to compute bounding box: %w", err)
	}
	r.recordStage("bbox", start)

	if err := r.Run(views, box); err != nil {
		return err
	}

	r.logf("Step 8: Exporting results...\n")
	start = time.Now()
	r.export()
	r.recordStage("export", start)
	return nil
}

// Run reconstructs a model from views that are already in memory. The
// grid covers box, expanded to a cube.
func (r *Reconstructor) Run(views []models.View, box r3.Box) error {
	cfg := r.config
	r.box = box
	r.metrics.Cameras = len(views)

	r.logf("Step 3: Allocating level %d voxel grid...\n", cfg.Grid.Level)
	start := time.Now()
	grid, err := voxel.NewGrid(cfg.Grid.Level, box)
	if err != nil {
		return fmt.Errorf("failed to create voxel grid: %w", err)
	}
	r.grid = grid
	r.metrics.Voxels = grid.Count()
	r.recordStage("grid", start)

	r.logf("Step 4: Carving visual hull from %d silhouettes...\n", len(views))
	start = time.Now()
	carver := hull.NewCarver(cfg.Processing.NumCores)
	carver.Threshold = cfg.Hull.MaskThreshold
	hs := carver.Carve(grid, views)
	r.metrics.HullVoxels = hs.Remaining
	r.recordStage("carve", start)
	r.logf("Visual hull keeps %d of %d voxels\n", hs.Remaining, hs.Initial)

	if cfg.Photo.Enabled && len(views) > 1 && hs.Remaining > 0 {
		r.logf("Step 5: Scoring photo-consistency (%s voter)...\n", cfg.Photo.Strategy)
		start = time.Now()
		if err := r.scorePhotoConsistency(grid, views); err != nil {
			return err
		}
		r.recordStage("photo", start)
	} else {
		r.logf("Step 5: Skipping photo-consistency\n")
	}

	r.logf("Step 6: Building graph...\n")
	start = time.Now()
	builder := &graph.Builder{
		Lambda:           cfg.GraphCut.Lambda,
		Mu:               cfg.GraphCut.Mu,
		BackgroundWeight: cfg.GraphCut.BackgroundWeight,
		Workers:          cfg.Processing.NumCores,
	}
	g := builder.Build(grid)
	r.metrics.Graph = g.Stats()
	r.recordStage("graph", start)
	r.logf("Graph has %d nodes, %d terminal and %d neighbour edges\n",
		r.metrics.Graph.Nodes, r.metrics.Graph.TerminalEdges, r.metrics.Graph.NeighborEdges)

	r.logf("Step 7: Solving min-cut...\n")
	start = time.Now()
	solver, err := maxflow.NewSolver(g.Nodes(), g.SourceNode(), g.SinkNode(), g.Edges(),
		maxflow.Options{MaxAugmentations: cfg.GraphCut.MaxAugmentations})
	if err != nil {
		return fmt.Errorf("failed to create max-flow solver: %w", err)
	}
	res, err := solver.Solve()
	if err != nil {
		return fmt.Errorf("failed to solve min-cut: %w", err)
	}
	r.occupancy = g.Occupancy(res)
	r.metrics.Flow = res.Flow
	r.metrics.Augmentations = res.Augmentations
	r.metrics.OccupiedVoxels = r.occupancy.Count()
	r.metrics.SurfaceVoxels = len(r.occupancy.SurfaceCodes())
	r.recordStage("mincut", start)
	r.logf("Cut flow %.6g after %d augmenting paths; %d voxels occupied\n",
		res.Flow, res.Augmentations, r.metrics.OccupiedVoxels)

	return nil
}

// scorePhotoConsistency stores a fused vote on the faces near the hull
// boundary.
func (r *Reconstructor) scorePhotoConsistency(grid *voxel.Grid, views []models.View) error {
	cfg := r.config
	strategy, err := photo.NewStrategy(cfg.Photo.Strategy, cfg.PhotoParams())
	if err != nil {
		return fmt.Errorf("failed to create voting strategy: %w", err)
	}
	fuser := &photo.Fuser{Strategy: strategy, Thresholder: cfg.Thresholder()}
	scene := photo.NewScene(views, grid.VoxelSize)

	opts := photo.ScoreOptions{
		Band:    cfg.Photo.ScoringBand,
		Workers: cfg.Processing.NumCores,
	}
	if cfg.Processing.Verbose {
		lastPct := -1
		opts.Progress = func(done, total int) {
			pct := done * 100 / total
			if pct != lastPct {
				lastPct = pct
				fmt.Printf("\rScoring faces: %d%%", pct)
			}
		}
	}
	stats := photo.ScoreGrid(grid, scene, fuser, opts)
	r.logf("\n")
	r.metrics.FacesScored = stats.Faces
	r.metrics.FacesWithEvidence = stats.WithEvidence
	r.logf("Scored %d faces, %d with evidence\n", stats.Faces, stats.WithEvidence)
	return nil
}

// export writes the configured outputs. Failures are reported and do
// not abort the others.
func (r *Reconstructor) export() {
	out := r.config.Output

	if out.STLPath != "" {
		if r.occupancy.Count() == 0 {
			fmt.Printf("Warning: model is empty, skipping STL output\n")
		} else if err := stl.Save(r.occupancy, out.STLPath); err != nil {
			fmt.Printf("Warning: failed to save STL: %v\n", err)
		} else {
			r.logf("Saved mesh to %s\n", out.STLPath)
		}
	}

	if out.PCDPath != "" {
		if err := pointcloud.SaveOccupancy(r.occupancy, out.PCDPath, out.SurfaceOnly); err != nil {
			fmt.Printf("Warning: failed to save point cloud: %v\n", err)
		} else {
			r.logf("Saved point cloud to %s\n", out.PCDPath)
		}
	}

	dir := out.SlicesDir
	if dir == "" && out.SaveIntermediaryResults {
		dir = DefaultIntermediaryDir
	}
	if dir == "" {
		return
	}
	volumes := []sliceVolume{{"occupancy", visualization.OccupancyViewer(r.occupancy)}}
	if out.SaveIntermediaryResults {
		volumes = append(volumes,
			sliceVolume{"hull", visualization.ForegroundViewer(r.grid)},
			sliceVolume{"votes", visualization.WeightViewer(r.grid)},
		)
	}
	for _, vol := range volumes {
		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(dir, vol.name, axis)
			if err := vol.viewer.SaveSliceSequence(axis, vol.name, axisDir); err != nil {
				fmt.Printf("Warning: failed to save %s %s-axis slices: %v\n", vol.name, axis, err)
			}
		}
	}
	r.logf("Saved slices to %s\n", dir)
}

// loadViews reads every image and mask of the bundle. All files are
// checked before any pixels are decoded.
func (r *Reconstructor) loadViews(b *bundle.Bundle) ([]models.View, error) {
	imagePaths := make([]string, len(b.Cameras))
	maskPaths := make([]string, len(b.Cameras))
	sizes := make([][2]int, len(b.Cameras))
	for i := range b.Cameras {
		imagePaths[i] = b.ImagePath(i)
		maskPaths[i] = r.maskPath(imagePaths[i])
		w, h, err := bundle.ImageSize(imagePaths[i])
		if err != nil {
			return nil, fmt.Errorf("camera %d: %w", i, err)
		}
		if _, _, err := bundle.ImageSize(maskPaths[i]); err != nil {
			return nil, fmt.Errorf("camera %d mask: %w", i, err)
		}
		sizes[i] = [2]int{w, h}
	}

	maxWidth := r.config.Input.MaxImageWidth
	views := make([]models.View, len(b.Cameras))
	for i, rec := range b.Cameras {
		img, err := loadImage(imagePaths[i])
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", imagePaths[i], err)
		}
		mask, err := loadImage(maskPaths[i])
		if err != nil {
			return nil, fmt.Errorf("failed to load mask %s: %w", maskPaths[i], err)
		}
		views[i] = models.View{
			Name:   rec.Image,
			Camera: rec.Camera(sizes[i][0], sizes[i][1]),
			Image:  raster.FromImage(downscale(img, maxWidth, transform.Linear)),
			Mask:   raster.FromImage(downscale(mask, maxWidth, transform.NearestNeighbor)),
		}
		r.logf("\rLoading views: %d%%", (i+1)*100/len(b.Cameras))
	}
	r.logf("\n")
	return views, nil
}

// maskPath locates the mask of an image: the same file name under the
// configured mask directory, or under <image dir>/../masks.
func (r *Reconstructor) maskPath(imagePath string) string {
	dir := r.config.Input.MaskDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(imagePath), "..", "masks")
	}
	return filepath.Join(dir, filepath.Base(imagePath))
}

// downscale halves the image until it is at most maxWidth pixels wide.
// Cameras use normalized intrinsics, so they need no adjustment.
func downscale(img image.Image, maxWidth int, filter transform.ResampleFilter) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxWidth <= 0 || w <= maxWidth {
		return img
	}
	for w > maxWidth && w > 1 && h > 1 {
		w /= 2
		h /= 2
	}
	return transform.Resize(img, w, h, filter)
}

// loadImage loads an image from a file
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}

	return img, nil
}

func (r *Reconstructor) recordStage(stage string, start time.Time) {
	r.metrics.Timings = append(r.metrics.Timings, StageTiming{Stage: stage, Duration: time.Since(start)})
}

func (r *Reconstructor) logf(format string, args ...interface{}) {
	if r.config.Processing.Verbose {
		fmt.Printf(format, args...)
	}
}

// GetMetrics returns the metrics of the last run
func (r *Reconstructor) GetMetrics() Metrics {
	return r.metrics
}

// GetOccupancy returns the reconstructed model, or nil before a run
func (r *Reconstructor) GetOccupancy() *models.Occupancy {
	return r.occupancy
}

// GetGrid returns the voxel grid with its hull flags and face votes
func (r *Reconstructor) GetGrid() *voxel.Grid {
	return r.grid
}

// GetBoundingBox returns the box the grid was built on
func (r *Reconstructor) GetBoundingBox() r3.Box {
	return r.box
}
