// internal/sideview/sideview.go
package sideview

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tamzrod/plc-inspector/internal/vision"
)

// Config is the side-camera interpretation policy.
type Config struct {
	AnomalyClasses []string // safety stop, absolute priority

	ReferenceClass string // fixed reference landmark
	EdgeClass      string // near-edge landmark
	MidClass       string // mid-reference landmark

	MinConfidence  float64
	RealDistanceMM float64 // physical edge-to-mid distance
	ZeroOffsetPx   float64 // pixel offset of the zero position
}

// Result is one cycle's side-camera verdict.
type Result struct {
	CorrectionCentiMM int // depth correction in 1/100 mm
	Stop              bool
	Diagnostic        string
}

// Interpreter converts one side-camera detection set into a Result.
type Interpreter struct {
	cfg Config
}

func New(cfg Config) (*Interpreter, error) {
	if cfg.ReferenceClass == "" || cfg.EdgeClass == "" || cfg.MidClass == "" {
		return nil, errors.New("sideview: landmark classes required")
	}
	if cfg.RealDistanceMM < 0 {
		return nil, errors.New("sideview: real distance must be >= 0")
	}
	return &Interpreter{cfg: cfg}, nil
}

// Interpret runs the safety gate and depth calculation.
//
// A safety anomaly short-circuits everything else. Missing landmarks and
// degenerate geometry are soft zeroes with a diagnostic, never a stop.
func (it *Interpreter) Interpret(dets []vision.Detection, imageHeight int) Result {
	dets = vision.FilterConfidence(dets, it.cfg.MinConfidence)

	landmarks := map[string]float64{}
	for _, d := range dets {
		for _, anomaly := range it.cfg.AnomalyClasses {
			if d.Class == anomaly {
				return Result{Stop: true, Diagnostic: "critical anomaly " + anomaly}
			}
		}

		switch d.Class {
		case it.cfg.ReferenceClass, it.cfg.EdgeClass, it.cfg.MidClass:
			// First occurrence wins for each landmark class.
			if _, seen := landmarks[d.Class]; !seen {
				landmarks[d.Class] = d.Box.CenterY()
			}
		}
	}

	var notes []string

	refY, ok := landmarks[it.cfg.ReferenceClass]
	if !ok {
		refY = float64(imageHeight) / 2
		notes = append(notes, "reference missing, using image midline")
	}

	edgeY, haveEdge := landmarks[it.cfg.EdgeClass]
	midY, haveMid := landmarks[it.cfg.MidClass]
	if !haveEdge || !haveMid {
		missing := make([]string, 0, 2)
		if !haveEdge {
			missing = append(missing, it.cfg.EdgeClass)
		}
		if !haveMid {
			missing = append(missing, it.cfg.MidClass)
		}
		sort.Strings(missing)
		notes = append(notes, "missing landmarks: "+strings.Join(missing, ", "))
		return Result{Diagnostic: strings.Join(notes, "; ")}
	}

	scaleSpanPx := math.Abs(edgeY - midY)
	if scaleSpanPx == 0 || it.cfg.RealDistanceMM == 0 {
		notes = append(notes, "depth scale collapsed (edge and mid landmarks coincide)")
		return Result{Diagnostic: strings.Join(notes, "; ")}
	}

	pxPerMM := scaleSpanPx / it.cfg.RealDistanceMM
	rawErrPx := (edgeY - refY) - it.cfg.ZeroOffsetPx
	centiMM := int(math.Round(rawErrPx / pxPerMM * 10))

	notes = append(notes, fmt.Sprintf("depth ok: %.2fmm", float64(centiMM)/100))
	return Result{
		CorrectionCentiMM: centiMM,
		Diagnostic:        strings.Join(notes, "; "),
	}
}
