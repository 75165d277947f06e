// internal/calib/calib.go
package calib

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tamzrod/plc-inspector/internal/vision"
)

// ErrInsufficientMarkers is returned when a calibration frame does not show
// at least two column markers.
var ErrInsufficientMarkers = errors.New("calib: need at least 2 column markers")

// ErrNotCalibrated is returned by lookups before the first successful
// calibration.
var ErrNotCalibrated = errors.New("calib: not calibrated")

// Calibration maps column index (1..N) to its ideal pixel X center.
// Centers are monotonically increasing, spaced by the mean observed
// inter-column distance. The zero value is invalid.
type Calibration struct {
	centers []float64 // index 0 holds column 1
	spacing float64
}

// Valid reports whether the calibration holds usable centers.
func (c Calibration) Valid() bool { return len(c.centers) > 0 }

// Columns returns N.
func (c Calibration) Columns() int { return len(c.centers) }

// Spacing returns the mean inter-column pixel distance.
func (c Calibration) Spacing() float64 { return c.spacing }

// Center returns the ideal pixel X for a 1-based column index.
func (c Calibration) Center(column int) (float64, error) {
	if !c.Valid() {
		return 0, ErrNotCalibrated
	}
	if column < 1 || column > len(c.centers) {
		return 0, fmt.Errorf("calib: column %d out of range 1..%d", column, len(c.centers))
	}
	return c.centers[column-1], nil
}

// Nearest returns the column whose ideal center is closest to x, and the
// pixel distance to it. Linear scan; N is small.
func (c Calibration) Nearest(x float64) (column int, distance float64, err error) {
	if !c.Valid() {
		return 0, 0, ErrNotCalibrated
	}

	distance = math.Inf(1)
	for i, center := range c.centers {
		if d := math.Abs(x - center); d < distance {
			distance = d
			column = i + 1
		}
	}
	return column, distance, nil
}

// Config for the engine. Marker classes identify both occupied and empty
// column slots; either counts as a reference point.
type Config struct {
	OccupiedClass string
	EmptyClass    string
	Columns       int
}

// Engine owns the last-known calibration. Single owner, no cross-goroutine
// sharing.
type Engine struct {
	cfg  Config
	last Calibration
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Columns < 1 {
		return nil, errors.New("calib: column count must be >= 1")
	}
	if cfg.OccupiedClass == "" || cfg.EmptyClass == "" {
		return nil, errors.New("calib: marker classes required")
	}
	return &Engine{cfg: cfg}, nil
}

// Current returns the last successful calibration (may be invalid).
func (e *Engine) Current() Calibration { return e.last }

// Calibrate derives ideal centers from one frame's detections and replaces
// any prior calibration. All-or-nothing: a failed calibration leaves the
// previous state untouched.
func (e *Engine) Calibrate(dets []vision.Detection) (Calibration, error) {
	centers := make([]float64, 0, len(dets))
	for _, d := range dets {
		if d.Class == e.cfg.OccupiedClass || d.Class == e.cfg.EmptyClass {
			centers = append(centers, d.Box.CenterX())
		}
	}

	if len(centers) < 2 {
		return Calibration{}, fmt.Errorf("%w (got %d)", ErrInsufficientMarkers, len(centers))
	}

	sort.Float64s(centers)

	var sum float64
	for i := 1; i < len(centers); i++ {
		sum += centers[i] - centers[i-1]
	}
	spacing := sum / float64(len(centers)-1)

	ideal := make([]float64, e.cfg.Columns)
	for i := range ideal {
		ideal[i] = centers[0] + float64(i)*spacing
	}

	e.last = Calibration{centers: ideal, spacing: spacing}
	return e.last, nil
}
