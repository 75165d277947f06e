// internal/arbiter/arbiter.go
package arbiter

import (
	"github.com/tamzrod/plc-inspector/internal/sideview"
	"github.com/tamzrod/plc-inspector/internal/topview"
)

// Code is the per-cycle outcome visible to the operator.
// Priority: SAFETY_STOP > QUALITY_FAULT > OK.
type Code int

const (
	CodeOK Code = iota
	CodeQualityFault
	CodeSafetyStop
)

func (c Code) String() string {
	switch c {
	case CodeQualityFault:
		return "QUALITY_FAULT"
	case CodeSafetyStop:
		return "SAFETY_STOP"
	default:
		return "OK"
	}
}

// DeviationSource selects which camera's correction is transmitted on the
// value register. The side depth value is the source default; the top
// lateral value exists because the register's name suggests it, and the
// choice must stay an explicit operator decision.
type DeviationSource int

const (
	SourceSideDepth DeviationSource = iota
	SourceTopLateral
)

// Policy is the merge configuration.
type Policy struct {
	Source  DeviationSource
	MMPerPx float64 // used only by SourceTopLateral
}

// Outcome is the single controller-visible result of one cycle.
type Outcome struct {
	Code    Code
	Success bool // protocol success flag; a quality fault is still a success

	RowCount    int
	DeviationMM float64

	// Diagnostic-only values for the operator record.
	LateralPx  float64
	Diagnostic string
}

// Merge combines the two camera verdicts. Pure function.
//
// On a safety stop the top result is nil by contract: the control loop
// never runs the top inference for a stopped cycle.
func Merge(side sideview.Result, top *topview.Result, p Policy) Outcome {
	if side.Stop {
		return Outcome{
			Code:       CodeSafetyStop,
			Success:    false,
			Diagnostic: side.Diagnostic,
		}
	}

	out := Outcome{
		Code:       CodeOK,
		Success:    true,
		Diagnostic: side.Diagnostic,
	}

	if top != nil {
		out.RowCount = top.RowCount
		out.LateralPx = top.CorrectionPx
		if top.Fault {
			// The controller still receives real data to act on; a quality
			// fault is not a communication failure.
			out.Code = CodeQualityFault
		}
		if top.Diagnostic != "" {
			if out.Diagnostic != "" {
				out.Diagnostic += "; "
			}
			out.Diagnostic += top.Diagnostic
		}
	}

	switch p.Source {
	case SourceTopLateral:
		out.DeviationMM = out.LateralPx * p.MMPerPx
	default:
		out.DeviationMM = float64(side.CorrectionCentiMM) / 100.0
	}

	return out
}
