// internal/loop/loop.go
package loop

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/tamzrod/plc-inspector/internal/arbiter"
	"github.com/tamzrod/plc-inspector/internal/calib"
	"github.com/tamzrod/plc-inspector/internal/history"
	"github.com/tamzrod/plc-inspector/internal/metrics"
	"github.com/tamzrod/plc-inspector/internal/plc"
	"github.com/tamzrod/plc-inspector/internal/sideview"
	"github.com/tamzrod/plc-inspector/internal/topview"
	"github.com/tamzrod/plc-inspector/internal/vision"
)

// PLC is the protocol-client contract the loop needs.
type PLC interface {
	Connect() error
	Disconnect()
	IsConnected() bool
	ReadTrigger() (plc.TriggerState, error)
	WriteResult(valueMM float64, rowCount int, success bool) error
}

// CycleReport is the operator-facing output of one processed cycle: the raw
// frames, the detections that produced the verdict, and the record itself.
type CycleReport struct {
	Top, Side         vision.Frame
	TopDets, SideDets []vision.Detection
	Record            history.Record
}

// OperatorSink consumes cycle reports (annotated display, file dumps).
// Publishing must not block the loop for long; failures are the sink's
// problem.
type OperatorSink interface {
	Publish(report CycleReport)
}

// Config is the loop's runtime policy.
type Config struct {
	PollDelay        time.Duration
	PostProcessDelay time.Duration

	Simulation bool // process every tick, never touch the PLC

	CalibrationConfidence float64
	Columns               int     // plausibility bound for row count
	MaxDeviationMM        float64 // plausibility bound for the transmitted value

	Policy arbiter.Policy
}

// Deps are the injected collaborators. PLC, cameras, engine and both
// interpreters are required; Recorder, Metrics and Sink are optional.
type Deps struct {
	PLC    PLC
	Top    vision.Camera
	Side   vision.Camera
	Engine *calib.Engine

	TopInterp  *topview.Interpreter
	SideInterp *sideview.Interpreter

	Recorder history.Recorder
	Metrics  *metrics.Metrics
	Sink     OperatorSink
}

// Loop drives the inspection handshake: one cycle in flight at a time,
// cancellation honored at cycle boundaries only.
type Loop struct {
	cfg Config
	d   Deps
}

func New(cfg Config, d Deps) (*Loop, error) {
	if d.PLC == nil && !cfg.Simulation {
		return nil, errors.New("loop: plc client required")
	}
	if d.Top.Source == nil || d.Top.Detector == nil ||
		d.Side.Source == nil || d.Side.Detector == nil {
		return nil, errors.New("loop: both cameras required")
	}
	if d.Engine == nil || d.TopInterp == nil || d.SideInterp == nil {
		return nil, errors.New("loop: engine and interpreters required")
	}
	if cfg.PollDelay <= 0 {
		return nil, errors.New("loop: poll delay must be > 0")
	}
	if cfg.PostProcessDelay <= 0 {
		cfg.PostProcessDelay = cfg.PollDelay
	}
	if d.Recorder == nil {
		d.Recorder = history.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	return &Loop{cfg: cfg, d: d}, nil
}

// Run executes the startup calibration pass and then cycles until the
// context is cancelled. A cycle that has started always completes.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.CalibrateOnce(ctx); err != nil {
		// Not fatal: the top interpreter reports a quality fault until a
		// later cycle recalibrates successfully.
		log.Printf("loop: startup calibration failed: %v", err)
	}

	timer := time.NewTimer(l.cfg.PollDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			processed := l.CycleOnce(ctx)
			next := l.cfg.PollDelay
			if processed {
				next = l.cfg.PostProcessDelay
			}
			timer.Reset(next)
		}
	}
}

// CalibrateOnce reads one top-camera frame and rebuilds the column
// calibration from it, using the calibration confidence floor.
func (l *Loop) CalibrateOnce(ctx context.Context) error {
	frame, err := l.d.Top.Source.Next(ctx)
	if err != nil {
		return err
	}
	dets, err := l.d.Top.Detector.Detect(ctx, frame)
	if err != nil {
		return err
	}

	cal, err := l.d.Engine.Calibrate(vision.FilterConfidence(dets, l.cfg.CalibrationConfidence))
	if err != nil {
		return err
	}

	l.d.Metrics.Recalibrations.Add(1)
	log.Printf("loop: calibrated %d columns, spacing %.1fpx", cal.Columns(), cal.Spacing())
	return nil
}

// CycleOnce runs one poll cycle. It reports whether an inspection was
// processed, so Run can apply the post-process delay.
func (l *Loop) CycleOnce(ctx context.Context) bool {
	if l.cfg.Simulation {
		l.inspectAndDeliver(ctx)
		return true
	}

	if !l.d.PLC.IsConnected() {
		l.d.Metrics.Reconnects.Add(1)
		if err := l.d.PLC.Connect(); err != nil {
			log.Printf("loop: reconnect failed: %v", err)
			return false
		}
		log.Printf("loop: controller connected")
	}

	trig, err := l.d.PLC.ReadTrigger()
	if err != nil {
		l.d.Metrics.ReadErrors.Add(1)
		log.Printf("loop: trigger read failed: %v", err)
		return false
	}
	if trig != plc.TriggerRequestPending {
		return false
	}

	l.inspectAndDeliver(ctx)
	return true
}

// inspectAndDeliver runs the dual inference, arbitrates, writes the result
// back and feeds the operator sinks.
func (l *Loop) inspectAndDeliver(ctx context.Context) {
	l.d.Metrics.CyclesTotal.Add(1)

	report, out, err := l.inspect(ctx)
	if err != nil {
		// Vision collaborator failure: the controller still gets a
		// terminated handshake, with zeros and the error code.
		log.Printf("loop: inspection failed: %v", err)
		l.writeBack(0, 0, false)
		return
	}

	switch out.Code {
	case arbiter.CodeSafetyStop:
		l.d.Metrics.SafetyStops.Add(1)
	case arbiter.CodeQualityFault:
		l.d.Metrics.QualityFaults.Add(1)
	default:
		l.d.Metrics.CyclesOK.Add(1)
	}

	l.warn(out)
	l.writeBack(out.DeviationMM, out.RowCount, out.Success)

	report.Record = history.Record{
		At:          time.Now(),
		Outcome:     out.Code.String(),
		Success:     out.Success,
		RowCount:    out.RowCount,
		DeviationMM: out.DeviationMM,
		LateralPx:   out.LateralPx,
		Diagnostic:  out.Diagnostic,
	}
	if err := l.d.Recorder.Record(ctx, report.Record); err != nil {
		log.Printf("loop: history record failed: %v", err)
	}
	if l.d.Sink != nil {
		l.d.Sink.Publish(report)
	}

	log.Printf("loop: cycle done outcome=%s rows=%d deviation=%.2fmm",
		out.Code, out.RowCount, out.DeviationMM)
}

// inspect acquires both frames and runs side-then-top inference. The top
// model is never invoked when the side camera demands a stop.
func (l *Loop) inspect(ctx context.Context) (CycleReport, arbiter.Outcome, error) {
	var report CycleReport
	var err error

	if report.Side, err = l.d.Side.Source.Next(ctx); err != nil {
		return report, arbiter.Outcome{}, err
	}
	if report.Top, err = l.d.Top.Source.Next(ctx); err != nil {
		return report, arbiter.Outcome{}, err
	}

	if report.SideDets, err = l.d.Side.Detector.Detect(ctx, report.Side); err != nil {
		return report, arbiter.Outcome{}, err
	}
	sideRes := l.d.SideInterp.Interpret(report.SideDets, report.Side.Height)

	if sideRes.Stop {
		return report, arbiter.Merge(sideRes, nil, l.cfg.Policy), nil
	}

	if report.TopDets, err = l.d.Top.Detector.Detect(ctx, report.Top); err != nil {
		return report, arbiter.Outcome{}, err
	}

	// Auto-recalibrate when calibration was lost or never succeeded.
	if !l.d.Engine.Current().Valid() {
		markers := vision.FilterConfidence(report.TopDets, l.cfg.CalibrationConfidence)
		if _, calErr := l.d.Engine.Calibrate(markers); calErr != nil {
			log.Printf("loop: recalibration failed: %v", calErr)
		} else {
			l.d.Metrics.Recalibrations.Add(1)
		}
	}

	topRes := l.d.TopInterp.Interpret(report.TopDets, l.d.Engine.Current())
	return report, arbiter.Merge(sideRes, &topRes, l.cfg.Policy), nil
}

// writeBack delivers the result unless running in simulation.
func (l *Loop) writeBack(deviationMM float64, rows int, success bool) {
	if l.cfg.Simulation {
		return
	}
	if err := l.d.PLC.WriteResult(deviationMM, rows, success); err != nil {
		l.d.Metrics.WriteErrors.Add(1)
		log.Printf("loop: result write failed: %v", err)
	}
}

// warn logs plausibility findings. Warnings never block the write.
func (l *Loop) warn(out arbiter.Outcome) {
	if l.cfg.MaxDeviationMM > 0 && math.Abs(out.DeviationMM) > l.cfg.MaxDeviationMM {
		log.Printf("loop: warning: deviation %.2fmm beyond plausible %.2fmm",
			out.DeviationMM, l.cfg.MaxDeviationMM)
	}
	if l.cfg.Columns > 0 && out.RowCount > l.cfg.Columns {
		log.Printf("loop: warning: row count %d beyond %d columns",
			out.RowCount, l.cfg.Columns)
	}
}
