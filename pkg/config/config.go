// Package config provides configuration loading and management for voxelcut.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"voxelcut/pkg/photo"
	"voxelcut/pkg/voxel"
)

// Fusion modes
const (
	FusionOtsu  = "otsu"
	FusionFixed = "fixed"
)

// Kernel names
const (
	KernelIndicator = "indicator"
	KernelGaussian  = "gaussian"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"processing"`

	// Input parameters
	Input struct {
		// BundlePath is the NVM_V3 bundle describing the cameras
		BundlePath string `yaml:"bundlePath"`

		// MaskDir holds one mask per image under the image's file name;
		// empty means <image dir>/../masks
		MaskDir string `yaml:"maskDir"`

		// MaxImageWidth halves wider images until they fit; 0 disables it
		MaxImageWidth int `yaml:"maxImageWidth"`
	} `yaml:"input"`

	// Voxel grid parameters
	Grid struct {
		// Level sets the resolution to 2^level voxels per axis
		Level int `yaml:"level"`

		// Padding grows the feature point box by this fraction of its extent
		Padding float64 `yaml:"padding"`

		// OutlierNeighbors is the k of the feature point outlier filter; 0 disables it
		OutlierNeighbors int `yaml:"outlierNeighbors"`

		// OutlierStdDev is how many standard deviations above the mean
		// neighbour distance a feature point may sit
		OutlierStdDev float64 `yaml:"outlierStdDev"`
	} `yaml:"grid"`

	// Visual hull parameters
	Hull struct {
		// MaskThreshold is the mask brightness (0..255) counted as foreground
		MaskThreshold float64 `yaml:"maskThreshold"`
	} `yaml:"hull"`

	// Photo-consistency parameters
	Photo struct {
		// Enabled turns photo-consistency scoring on
		Enabled bool `yaml:"enabled"`

		// Strategy selects the voter: epipolar or ray
		Strategy string `yaml:"strategy"`

		// AngleBands select neighbour cameras by viewing angle in degrees
		AngleBands []photo.AngleBand `yaml:"angleBands"`

		// MaxNeighbors caps the neighbour cameras per vote
		MaxNeighbors int `yaml:"maxNeighbors"`

		// NCCThreshold is the correlation a peak must exceed
		NCCThreshold float64 `yaml:"nccThreshold"`

		// DepthRange is the searched half-length of the ray in ray steps
		DepthRange float64 `yaml:"depthRange"`

		// DepthStep is the spacing of tested depths in ray steps
		DepthStep float64 `yaml:"depthStep"`

		// RayStep is one ray step as a fraction of the voxel size
		RayStep float64 `yaml:"rayStep"`

		// Kernel is the Parzen window: indicator or gaussian
		Kernel string `yaml:"kernel"`

		// KernelWidth is the indicator half-width or the Gaussian sigma
		KernelWidth float64 `yaml:"kernelWidth"`

		// PeakTolerance is how far from the point the score maximum may lie
		PeakTolerance float64 `yaml:"peakTolerance"`

		// ScoringBand limits scoring to this many voxels inside the hull
		// boundary; 0 scores every face touching the hull
		ScoringBand int `yaml:"scoringBand"`
	} `yaml:"photo"`

	// Vote fusion parameters
	Fusion struct {
		// Mode is otsu or fixed
		Mode string `yaml:"mode"`

		// Threshold is the vote threshold of the fixed mode
		Threshold float64 `yaml:"threshold"`
	} `yaml:"fusion"`

	// Graph cut parameters
	GraphCut struct {
		// Lambda scales the ballooning source weight of hull voxels
		Lambda float64 `yaml:"lambda"`

		// Mu controls how fast a vote cheapens a face
		Mu float64 `yaml:"mu"`

		// BackgroundWeight is the sink weight of carved voxels; 0 means infinite
		BackgroundWeight float64 `yaml:"backgroundWeight"`

		// MaxAugmentations bounds the max-flow search; 0 means unbounded
		MaxAugmentations int `yaml:"maxAugmentations"`
	} `yaml:"graphCut"`

	// Output parameters
	Output struct {
		// STLPath is where the mesh is written; empty skips it
		STLPath string `yaml:"stlPath"`

		// PCDPath is where the voxel centres are written; empty skips it
		PCDPath string `yaml:"pcdPath"`

		// SlicesDir receives PNG slices of the volumes; empty skips them
		SlicesDir string `yaml:"slicesDir"`

		// SurfaceOnly writes only surface voxels to the point cloud
		SurfaceOnly bool `yaml:"surfaceOnly"`

		// SaveIntermediaryResults determines whether to save intermediary processing results
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.Verbose = true

	// Set default input parameters
	cfg.Input.MaxImageWidth = 960

	// Set default grid parameters
	cfg.Grid.Level = 7
	cfg.Grid.Padding = 0.05
	cfg.Grid.OutlierNeighbors = 8
	cfg.Grid.OutlierStdDev = 2.0

	// Set default hull parameters
	cfg.Hull.MaskThreshold = 100

	// Set default photo-consistency parameters
	p := photo.DefaultParams()
	cfg.Photo.Enabled = true
	cfg.Photo.Strategy = photo.StrategyEpipolar
	cfg.Photo.AngleBands = append([]photo.AngleBand(nil), p.Bands...)
	cfg.Photo.MaxNeighbors = p.MaxNeighbors
	cfg.Photo.NCCThreshold = p.NCCThreshold
	cfg.Photo.DepthRange = p.DepthRange
	cfg.Photo.DepthStep = p.DepthStep
	cfg.Photo.RayStep = p.RayStep
	cfg.Photo.Kernel = KernelIndicator
	cfg.Photo.KernelWidth = 1.0
	cfg.Photo.PeakTolerance = p.PeakTolerance
	cfg.Photo.ScoringBand = 2

	// Set default fusion parameters
	cfg.Fusion.Mode = FusionOtsu
	cfg.Fusion.Threshold = 0.5

	// Set default graph cut parameters
	cfg.GraphCut.Lambda = 0.5
	cfg.GraphCut.Mu = 2.0

	// Set default output parameters
	cfg.Output.STLPath = "output.stl"
	cfg.Output.SaveIntermediaryResults = false

	return cfg
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.Processing.NumCores < 0 {
		return fmt.Errorf("numCores must be non-negative, got %d", c.Processing.NumCores)
	}
	if c.Grid.Level < 0 || c.Grid.Level > voxel.MaxLevel {
		return fmt.Errorf("grid level %d: %w", c.Grid.Level, voxel.ErrLevelTooHigh)
	}
	if c.Grid.Padding < 0 {
		return fmt.Errorf("grid padding must be non-negative, got %g", c.Grid.Padding)
	}
	if c.Hull.MaskThreshold < 0 || c.Hull.MaskThreshold > 255 {
		return fmt.Errorf("mask threshold must be in [0, 255], got %g", c.Hull.MaskThreshold)
	}
	if c.Photo.Enabled {
		switch c.Photo.Strategy {
		case photo.StrategyEpipolar, photo.StrategyRay:
		default:
			return fmt.Errorf("unknown voting strategy %q", c.Photo.Strategy)
		}
		switch c.Photo.Kernel {
		case KernelIndicator, KernelGaussian:
		default:
			return fmt.Errorf("unknown kernel %q", c.Photo.Kernel)
		}
		if c.Photo.MaxNeighbors <= 0 {
			return fmt.Errorf("maxNeighbors must be positive, got %d", c.Photo.MaxNeighbors)
		}
		if c.Photo.NCCThreshold < -1 || c.Photo.NCCThreshold >= 1 || math.IsNaN(c.Photo.NCCThreshold) {
			return fmt.Errorf("nccThreshold must be in [-1, 1), got %g", c.Photo.NCCThreshold)
		}
		if c.Photo.KernelWidth <= 0 {
			return fmt.Errorf("kernel width must be positive, got %g", c.Photo.KernelWidth)
		}
		if c.Photo.DepthRange <= 0 || c.Photo.DepthStep <= 0 || c.Photo.RayStep <= 0 {
			return fmt.Errorf("depth range, depth step and ray step must be positive")
		}
		for _, b := range c.Photo.AngleBands {
			if b.MinDeg < 0 || b.MaxDeg < b.MinDeg || b.MaxDeg > 180 {
				return fmt.Errorf("invalid angle band [%g, %g]", b.MinDeg, b.MaxDeg)
			}
		}
	}
	switch c.Fusion.Mode {
	case FusionOtsu, FusionFixed:
	default:
		return fmt.Errorf("unknown fusion mode %q", c.Fusion.Mode)
	}
	if c.GraphCut.Lambda < 0 || c.GraphCut.Mu < 0 || c.GraphCut.BackgroundWeight < 0 {
		return fmt.Errorf("graph cut weights must be non-negative")
	}
	return nil
}

// PhotoParams converts the photo-consistency section into voter parameters
func (c *Config) PhotoParams() photo.Params {
	p := photo.DefaultParams()
	p.Bands = c.Photo.AngleBands
	p.MaxNeighbors = c.Photo.MaxNeighbors
	p.NCCThreshold = c.Photo.NCCThreshold
	p.DepthRange = c.Photo.DepthRange
	p.DepthStep = c.Photo.DepthStep
	p.RayStep = c.Photo.RayStep
	p.PeakTolerance = c.Photo.PeakTolerance
	if c.Photo.Kernel == KernelGaussian {
		p.Kernel = photo.NewGaussianKernel(c.Photo.KernelWidth)
	} else {
		p.Kernel = photo.IndicatorKernel{Width: c.Photo.KernelWidth}
	}
	return p
}

// Thresholder returns the vote threshold selected by the fusion section
func (c *Config) Thresholder() photo.Thresholder {
	if c.Fusion.Mode == FusionFixed {
		return photo.FixedThreshold{Value: c.Fusion.Threshold}
	}
	return photo.OtsuThreshold{}
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
