package loop

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/plc-inspector/internal/arbiter"
	"github.com/tamzrod/plc-inspector/internal/calib"
	"github.com/tamzrod/plc-inspector/internal/history"
	"github.com/tamzrod/plc-inspector/internal/plc"
	"github.com/tamzrod/plc-inspector/internal/sideview"
	"github.com/tamzrod/plc-inspector/internal/topview"
	"github.com/tamzrod/plc-inspector/internal/vision"
)

// ---- fakes ----

type fakePLC struct {
	connected bool
	trigger   plc.TriggerState
	readErr   error
	writeErr  error

	connects int
	writes   []writeCall
}

type writeCall struct {
	deviationMM float64
	rows        int
	success     bool
}

func (f *fakePLC) Connect() error {
	f.connects++
	f.connected = true
	return nil
}
func (f *fakePLC) Disconnect()       { f.connected = false }
func (f *fakePLC) IsConnected() bool { return f.connected }

func (f *fakePLC) ReadTrigger() (plc.TriggerState, error) {
	if f.readErr != nil {
		f.connected = false
		return plc.TriggerIdle, f.readErr
	}
	return f.trigger, nil
}

func (f *fakePLC) WriteResult(deviationMM float64, rows int, success bool) error {
	if f.writeErr != nil {
		f.connected = false
		return f.writeErr
	}
	f.writes = append(f.writes, writeCall{deviationMM, rows, success})
	return nil
}

type fakeSource struct {
	frame vision.Frame
	err   error
}

func (f *fakeSource) Next(context.Context) (vision.Frame, error) { return f.frame, f.err }
func (f *fakeSource) Close() error                               { return nil }

type fakeDetector struct {
	dets  []vision.Detection
	err   error
	calls int
}

func (f *fakeDetector) Detect(context.Context, vision.Frame) ([]vision.Detection, error) {
	f.calls++
	return f.dets, f.err
}

type fakeSink struct {
	reports []CycleReport
}

func (f *fakeSink) Publish(r CycleReport) { f.reports = append(f.reports, r) }

// ---- fixture ----

func det(class string, x, y, conf float64) vision.Detection {
	return vision.Detection{
		Class:      class,
		Box:        vision.Box{X1: x - 10, Y1: y - 10, X2: x + 10, Y2: y + 10},
		Confidence: conf,
	}
}

type fixture struct {
	loop    *Loop
	plc     *fakePLC
	topDet  *fakeDetector
	sideDet *fakeDetector
	sink    *fakeSink
	engine  *calib.Engine
}

func newFixture(t *testing.T, topDets, sideDets []vision.Detection) *fixture {
	t.Helper()

	engine, err := calib.NewEngine(calib.Config{
		OccupiedClass: "slot_occupied",
		EmptyClass:    "slot_empty",
		Columns:       8,
	})
	require.NoError(t, err)

	topInt, err := topview.New(topview.Config{
		FaultClasses:      []string{"stack_error"},
		OccupiedClass:     "slot_occupied",
		EmptyClass:        "slot_empty",
		MinConfidence:     0.45,
		TolerancePx:       30,
		CorrectionLimitPx: 50,
	})
	require.NoError(t, err)

	sideInt, err := sideview.New(sideview.Config{
		AnomalyClasses: []string{"fallen_part"},
		ReferenceClass: "fixed_reference",
		EdgeClass:      "container_edge",
		MidClass:       "container_mid",
		MinConfidence:  0.05,
		RealDistanceMM: 100,
		ZeroOffsetPx:   40,
	})
	require.NoError(t, err)

	fx := &fixture{
		plc:     &fakePLC{connected: true, trigger: plc.TriggerRequestPending},
		topDet:  &fakeDetector{dets: topDets},
		sideDet: &fakeDetector{dets: sideDets},
		sink:    &fakeSink{},
		engine:  engine,
	}

	fx.loop, err = New(
		Config{
			PollDelay:             1,
			CalibrationConfidence: 0.1,
			Columns:               8,
			MaxDeviationMM:        50,
			Policy:                arbiter.Policy{Source: arbiter.SourceSideDepth},
		},
		Deps{
			PLC:        fx.plc,
			Top:        vision.Camera{Source: &fakeSource{frame: vision.Frame{Width: 640, Height: 480}}, Detector: fx.topDet},
			Side:       vision.Camera{Source: &fakeSource{frame: vision.Frame{Width: 640, Height: 480}}, Detector: fx.sideDet},
			Engine:     engine,
			TopInterp:  topInt,
			SideInterp: sideInt,
			Recorder:   history.Nop{},
			Sink:       fx.sink,
		},
	)
	require.NoError(t, err)
	return fx
}

// calibrate seeds the engine with centers 100, 150, 200, ...
func (fx *fixture) calibrate(t *testing.T) {
	t.Helper()
	_, err := fx.engine.Calibrate([]vision.Detection{
		det("slot_empty", 100, 50, 0.9),
		det("slot_empty", 150, 50, 0.9),
	})
	require.NoError(t, err)
}

// goodSideDets yields a 2.50mm depth correction:
// scale |300-250|/100 = 0.5 px/mm, raw (300-200)-40 = 60px... that is 12mm;
// use zero offset so the numbers stay simple per test.
func sideDetsFor(correctionCentiMM int) []vision.Detection {
	// reference 200, mid 250, edge chosen so that
	// ((edge-200)-40)/0.5*10 == correctionCentiMM with |edge-mid| == 50.
	// correction 250 -> edge 252.5 breaks the 50px span, so instead keep
	// edge fixed at 300 and shift the reference.
	// ((300-ref)-40)/0.5*10 = c  =>  ref = 260 - c/20.
	ref := 260 - float64(correctionCentiMM)/20
	return []vision.Detection{
		det("fixed_reference", 0, ref, 0.8),
		det("container_edge", 0, 300, 0.8),
		det("container_mid", 0, 250, 0.8),
	}
}

// ---- tests ----

func TestCycle_SafetyStopShortCircuitsTopModel(t *testing.T) {
	fx := newFixture(t,
		[]vision.Detection{det("slot_occupied", 150, 50, 0.9)},
		append(sideDetsFor(250), det("fallen_part", 0, 100, 0.6)),
	)
	fx.calibrate(t)

	processed := fx.loop.CycleOnce(context.Background())
	require.True(t, processed)

	require.Equal(t, 0, fx.topDet.calls, "top model must never run on a safety stop")
	require.Len(t, fx.plc.writes, 1)
	w := fx.plc.writes[0]
	require.False(t, w.success)
	require.Equal(t, 0, w.rows)
	require.Equal(t, 0.0, w.deviationMM)

	require.Len(t, fx.sink.reports, 1)
	require.Equal(t, "SAFETY_STOP", fx.sink.reports[0].Record.Outcome)
}

func TestCycle_CleanInspection(t *testing.T) {
	fx := newFixture(t,
		[]vision.Detection{
			det("slot_occupied", 150, 50, 0.9),
			det("slot_occupied", 250, 50, 0.9),
			det("slot_occupied", 300, 50, 0.9),
			det("slot_empty", 200, 50, 0.9),
			det("slot_empty", 350, 50, 0.9),
		},
		sideDetsFor(250),
	)
	fx.calibrate(t)

	require.True(t, fx.loop.CycleOnce(context.Background()))

	require.Equal(t, 1, fx.topDet.calls)
	require.Len(t, fx.plc.writes, 1)
	w := fx.plc.writes[0]
	require.True(t, w.success)
	require.Equal(t, 3, w.rows)
	require.InDelta(t, 2.50, w.deviationMM, 1e-9)

	require.Equal(t, "OK", fx.sink.reports[0].Record.Outcome)
}

func TestCycle_QualityFaultStillWritesSuccess(t *testing.T) {
	fx := newFixture(t,
		[]vision.Detection{
			det("stack_error", 400, 50, 0.9),
			det("slot_occupied", 150, 50, 0.9),
		},
		sideDetsFor(250),
	)
	fx.calibrate(t)

	require.True(t, fx.loop.CycleOnce(context.Background()))

	w := fx.plc.writes[0]
	require.True(t, w.success, "a quality fault is not a communication failure")
	require.Equal(t, 1, w.rows)
	require.Equal(t, "QUALITY_FAULT", fx.sink.reports[0].Record.Outcome)
}

func TestCycle_IdleTriggerDoesNothing(t *testing.T) {
	fx := newFixture(t, nil, nil)
	fx.plc.trigger = plc.TriggerLastSuccess

	require.False(t, fx.loop.CycleOnce(context.Background()))
	require.Equal(t, 0, fx.topDet.calls)
	require.Equal(t, 0, fx.sideDet.calls)
	require.Empty(t, fx.plc.writes)
}

func TestCycle_ReadFailureEndsCycleWithoutWrite(t *testing.T) {
	fx := newFixture(t, nil, nil)
	fx.plc.readErr = errors.New("link lost")

	require.False(t, fx.loop.CycleOnce(context.Background()))
	require.Empty(t, fx.plc.writes)
	require.False(t, fx.plc.connected)

	// Next cycle reconnects explicitly before reading again.
	fx.plc.readErr = nil
	fx.plc.trigger = plc.TriggerIdle
	require.False(t, fx.loop.CycleOnce(context.Background()))
	require.Equal(t, 1, fx.plc.connects)
}

func TestCycle_DetectorFailureWritesErrorResult(t *testing.T) {
	fx := newFixture(t, nil, sideDetsFor(250))
	fx.calibrate(t)
	fx.sideDet.err = errors.New("model unavailable")

	require.True(t, fx.loop.CycleOnce(context.Background()))
	require.Len(t, fx.plc.writes, 1)
	w := fx.plc.writes[0]
	require.False(t, w.success)
	require.Equal(t, 0, w.rows)
	require.Equal(t, 0.0, w.deviationMM)
}

func TestCycle_UncalibratedRecalibratesFromCycleFrame(t *testing.T) {
	// Markers in the cycle frame allow auto-recalibration, so the cycle
	// ends OK instead of faulting forever.
	fx := newFixture(t,
		[]vision.Detection{
			det("slot_occupied", 100, 50, 0.9),
			det("slot_empty", 150, 50, 0.9),
		},
		sideDetsFor(0),
	)

	require.True(t, fx.loop.CycleOnce(context.Background()))
	require.True(t, fx.engine.Current().Valid())

	w := fx.plc.writes[0]
	require.True(t, w.success)
	require.Equal(t, 1, w.rows)
}

func TestCycle_SimulationNeverTouchesPLC(t *testing.T) {
	fx := newFixture(t,
		[]vision.Detection{det("slot_occupied", 150, 50, 0.9)},
		sideDetsFor(0),
	)
	fx.calibrate(t)
	fx.loop.cfg.Simulation = true
	fx.plc.connected = false

	require.True(t, fx.loop.CycleOnce(context.Background()))
	require.Equal(t, 0, fx.plc.connects)
	require.Empty(t, fx.plc.writes)
	require.Len(t, fx.sink.reports, 1)
}

func TestCalibrateOnce(t *testing.T) {
	fx := newFixture(t,
		[]vision.Detection{
			det("slot_empty", 100, 50, 0.2), // above the 0.1 calibration floor
			det("slot_occupied", 150, 50, 0.9),
		},
		nil,
	)

	require.NoError(t, fx.loop.CalibrateOnce(context.Background()))
	require.True(t, fx.engine.Current().Valid())

	c1, err := fx.engine.Current().Center(1)
	require.NoError(t, err)
	require.Equal(t, 100.0, c1)
}

func TestCalibrateOnce_InsufficientMarkers(t *testing.T) {
	fx := newFixture(t, []vision.Detection{det("slot_occupied", 150, 50, 0.9)}, nil)

	err := fx.loop.CalibrateOnce(context.Background())
	require.ErrorIs(t, err, calib.ErrInsufficientMarkers)
	require.False(t, fx.engine.Current().Valid())
}
