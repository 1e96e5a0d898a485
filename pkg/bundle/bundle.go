// Package bundle reads NVM_V3 bundle adjustment files: the calibrated
// cameras of a photo set and the sparse feature points they observed.
package bundle

import (
	"bufio"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"voxelcut/pkg/camera"

	// Image formats whose size DecodeConfig can read.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Magic is the first token of a bundle file.
const Magic = "NVM_V3"

// MaxCameras is the largest camera count a bundle may declare.
const MaxCameras = 10000

// CameraRecord is one camera as stored in the bundle.
type CameraRecord struct {
	// Image is the photograph's file name as written in the bundle
	Image string

	// FocalPixels is the focal length in pixels
	FocalPixels float64

	// Orientation rotates world into camera coordinates
	Orientation quat.Number

	// Center is the camera position in world space
	Center r3.Vec

	// Distortion is the radial distortion coefficient
	Distortion float64
}

// Observation is a feature point seen in one image.
type Observation struct {
	Image   int
	Feature int
	X, Y    float64
}

// Point is a triangulated feature point.
type Point struct {
	Position     r3.Vec
	Color        [3]uint8
	Observations []Observation
}

// Bundle is the content of a bundle file.
type Bundle struct {
	// Dir is the directory relative image names resolve against
	Dir string

	Cameras []CameraRecord
	Points  []Point
}

// Load reads a bundle file. Image names resolve against its directory.
func Load(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open bundle")
	}
	defer f.Close()

	b, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse bundle %s", path)
	}
	b.Dir = filepath.Dir(path)
	return b, nil
}

// Parse reads a bundle from r. The camera count must lie in
// [1, MaxCameras] and every observation must name a known camera.
func Parse(r io.Reader) (*Bundle, error) {
	t := newTokenizer(r)

	magic, err := t.next("magic")
	if err != nil {
		return nil, errors.Wrap(err, "read magic")
	}
	if magic != Magic {
		return nil, errors.Errorf("bad magic %q, want %q", magic, Magic)
	}

	numCams, err := t.int("camera count")
	if err != nil {
		return nil, err
	}
	if numCams <= 0 {
		return nil, errors.Errorf("invalid number of cameras: %d", numCams)
	}
	if numCams > MaxCameras {
		return nil, errors.Errorf("too many cameras: %d (max %d)", numCams, MaxCameras)
	}

	b := &Bundle{Cameras: make([]CameraRecord, numCams)}
	for i := range b.Cameras {
		c, err := t.camera()
		if err != nil {
			return nil, errors.Wrapf(err, "camera %d", i)
		}
		b.Cameras[i] = c
	}

	numPoints, err := t.int("point count")
	if err == io.ErrUnexpectedEOF {
		// Bundles without a point section are valid.
		return b, nil
	} else if err != nil {
		return nil, err
	}
	if numPoints < 0 {
		return nil, errors.Errorf("invalid number of points: %d", numPoints)
	}
	b.Points = make([]Point, numPoints)
	for i := range b.Points {
		p, err := t.point(numCams)
		if err != nil {
			return nil, errors.Wrapf(err, "point %d", i)
		}
		b.Points[i] = p
	}
	return b, nil
}

// ImagePath returns the path of camera i's photograph.
func (b *Bundle) ImagePath(i int) string {
	name := b.Cameras[i].Image
	if filepath.IsAbs(name) || b.Dir == "" {
		return name
	}
	return filepath.Join(b.Dir, name)
}

// Positions returns the feature point positions.
func (b *Bundle) Positions() []r3.Vec {
	res := make([]r3.Vec, len(b.Points))
	for i, p := range b.Points {
		res[i] = p.Position
	}
	return res
}

// Camera builds the camera for an image of the given size. The focal
// length is normalized by the image height.
func (c CameraRecord) Camera(width, height int) *camera.Camera {
	return camera.New(camera.Params{
		Focal:      c.FocalPixels / float64(height),
		Aspect:     float64(width) / float64(height),
		Distortion: [2]float64{c.Distortion, 0},
		Center:     c.Center,
		Rotation:   camera.RotationFromQuaternion(c.Orientation),
	})
}

// ImageSize reads the dimensions of an image file without decoding it.
func ImageSize(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.Wrap(err, "open image")
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return 0, 0, errors.Wrapf(err, "decode image header %s", path)
	}
	return cfg.Width, cfg.Height, nil
}

type tokenizer struct {
	s *bufio.Scanner
}

func newTokenizer(r io.Reader) *tokenizer {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1<<20)
	s.Split(bufio.ScanWords)
	return &tokenizer{s: s}
}

func (t *tokenizer) next(what string) (string, error) {
	if t.s.Scan() {
		return t.s.Text(), nil
	}
	if err := t.s.Err(); err != nil {
		return "", errors.Wrapf(err, "read %s", what)
	}
	return "", io.ErrUnexpectedEOF
}

func (t *tokenizer) int(what string) (int, error) {
	tok, err := t.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.Errorf("invalid %s %q", what, tok)
	}
	return v, nil
}

func (t *tokenizer) float(what string) (float64, error) {
	tok, err := t.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, errors.Errorf("invalid %s %q", what, tok)
	}
	return v, nil
}

func (t *tokenizer) floats(what string, n int) ([]float64, error) {
	res := make([]float64, n)
	for i := range res {
		v, err := t.float(what)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func (t *tokenizer) camera() (CameraRecord, error) {
	var c CameraRecord
	name, err := t.next("image name")
	if err != nil {
		return c, err
	}
	// Fields: focal, quaternion wxyz, centre xyz, distortion.
	v, err := t.floats("camera field", 9)
	if err != nil {
		return c, err
	}
	if _, err := t.int("camera terminator"); err != nil {
		return c, err
	}
	c.Image = name
	c.FocalPixels = v[0]
	c.Orientation = quat.Number{Real: v[1], Imag: v[2], Jmag: v[3], Kmag: v[4]}
	c.Center = r3.Vec{X: v[5], Y: v[6], Z: v[7]}
	c.Distortion = v[8]
	if !(c.FocalPixels > 0) {
		return c, errors.Errorf("invalid focal length %g", c.FocalPixels)
	}
	if quat.Abs(c.Orientation) == 0 {
		return c, errors.New("zero orientation quaternion")
	}
	return c, nil
}

func (t *tokenizer) point(numCams int) (Point, error) {
	var p Point
	v, err := t.floats("position", 3)
	if err != nil {
		return p, err
	}
	p.Position = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	for i := range p.Color {
		c, err := t.int("color")
		if err != nil {
			return p, err
		}
		if c < 0 || c > 255 {
			return p, errors.Errorf("color component %d out of range", c)
		}
		p.Color[i] = uint8(c)
	}
	m, err := t.int("measurement count")
	if err != nil {
		return p, err
	}
	if m < 0 {
		return p, errors.Errorf("invalid measurement count %d", m)
	}
	p.Observations = make([]Observation, m)
	for j := range p.Observations {
		img, err := t.int("image index")
		if err != nil {
			return p, err
		}
		if img < 0 || img >= numCams {
			return p, errors.Errorf("observation of unknown image %d", img)
		}
		feat, err := t.int("feature index")
		if err != nil {
			return p, err
		}
		xy, err := t.floats("feature position", 2)
		if err != nil {
			return p, err
		}
		p.Observations[j] = Observation{Image: img, Feature: feat, X: xy[0], Y: xy[1]}
	}
	return p, nil
}
