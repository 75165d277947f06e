// internal/topview/topview.go
package topview

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tamzrod/plc-inspector/internal/calib"
	"github.com/tamzrod/plc-inspector/internal/vision"
)

// Config is the top-camera interpretation policy.
type Config struct {
	FaultClasses  []string // any of these in frame => quality fault
	OccupiedClass string
	EmptyClass    string

	MinConfidence     float64
	TolerancePx       float64 // allowed distance from the ideal center
	CorrectionLimitPx float64 // lateral correction clamp, +/-
}

// Result is one cycle's top-camera verdict. Soft failures are values here,
// never errors.
type Result struct {
	RowCount     int
	CorrectionPx float64 // signed lateral correction, clamped
	Fault        bool
	Diagnostic   string
}

type occupancy int

const (
	occEmpty occupancy = iota
	occOccupied
)

// Interpreter converts one top-camera detection set into a Result.
type Interpreter struct {
	cfg Config
}

func New(cfg Config) (*Interpreter, error) {
	if cfg.OccupiedClass == "" || cfg.EmptyClass == "" {
		return nil, errors.New("topview: marker classes required")
	}
	if cfg.TolerancePx <= 0 || cfg.CorrectionLimitPx <= 0 {
		return nil, errors.New("topview: tolerance and correction limit must be > 0")
	}
	return &Interpreter{cfg: cfg}, nil
}

// Interpret runs the occupancy count, lateral-alignment check and quality
// gate against the current calibration.
//
// An uncalibrated engine yields a fault result, not a geometry guess.
func (it *Interpreter) Interpret(dets []vision.Detection, cal calib.Calibration) Result {
	if !cal.Valid() {
		return Result{Fault: true, Diagnostic: "no column calibration"}
	}

	dets = vision.FilterConfidence(dets, it.cfg.MinConfidence)

	res := Result{}
	if vision.HasClass(dets, it.cfg.FaultClasses) {
		// Faults accumulate; nothing below clears this.
		res.Fault = true
		res.Diagnostic = "quality-fault class detected"
	}

	// Occupancy keyed by rounded pixel X. OCCUPIED always beats EMPTY at
	// the same pixel, independent of detection order.
	slots := make(map[int]occupancy)
	for _, d := range dets {
		x := int(d.Box.CenterX())
		switch d.Class {
		case it.cfg.OccupiedClass:
			slots[x] = occOccupied
		case it.cfg.EmptyClass:
			if _, taken := slots[x]; !taken {
				slots[x] = occEmpty
			}
		}
	}

	xs := make([]int, 0, len(slots))
	for x := range slots {
		xs = append(xs, x)
	}
	sort.Ints(xs)

	activeX := -1
	for _, x := range xs {
		if slots[x] == occOccupied {
			res.RowCount++
			if activeX < 0 {
				activeX = x
			}
		}
	}

	// No active work column: nothing to align against.
	if activeX < 0 {
		return res
	}

	column, dist, err := cal.Nearest(float64(activeX))
	if err != nil {
		res.Fault = true
		res.Diagnostic = err.Error()
		return res
	}

	if dist > it.cfg.TolerancePx {
		ideal, _ := cal.Center(column)
		res.CorrectionPx = clamp(float64(activeX)-ideal, it.cfg.CorrectionLimitPx)
		// An out-of-tolerance column position is itself a quality fault.
		res.Fault = true
		if res.Diagnostic == "" {
			res.Diagnostic = fmt.Sprintf("column %d off center by %.0fpx", column, dist)
		}
	}

	return res
}

func clamp(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
