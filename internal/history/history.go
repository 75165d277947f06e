// internal/history/history.go
package history

import (
	"context"
	"time"
)

// Record is the per-cycle diagnostic record consumed by the operator UI and
// (optionally) persisted. It mirrors the inspection outcome plus the raw
// interpreter diagnostics.
type Record struct {
	At          time.Time
	Outcome     string
	Success     bool
	RowCount    int
	DeviationMM float64
	LateralPx   float64
	Diagnostic  string
}

// Recorder is the delivery-only contract for cycle records. It receives a
// record and stores it verbatim; no logic, no interpretation.
type Recorder interface {
	Record(ctx context.Context, r Record) error
	Close(ctx context.Context)
}

// Nop discards records. Used when no history DSN is configured.
type Nop struct{}

func (Nop) Record(context.Context, Record) error { return nil }
func (Nop) Close(context.Context)                {}
