// internal/config/normalize.go
package config

// Tunable defaults. Protocol addresses and class names have no defaults on
// purpose; these cover thresholds and timing only.
const (
	DefaultTimeoutMs             = 1000
	DefaultTopConfidence         = 0.45
	DefaultCalibrationConfidence = 0.10
	DefaultSideConfidence        = 0.05
	DefaultColumns               = 8
	DefaultTolerancePx           = 30
	DefaultCorrectionLimitPx     = 50
	DefaultRealDistanceMM        = 100
	DefaultZeroOffsetPx          = 40
	DefaultMMPerPixel            = 0.5
	DefaultMaxDeviationMM        = 50
	DefaultPollMs                = 100
	DefaultPostProcessMs         = 500
	DefaultInputSize             = 640

	DefaultTopDevice  = "0"
	DefaultSideDevice = "1"
)

// Normalize applies post-validation defaulting.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	ins := &cfg.Inspector

	if ins.PLC.TimeoutMs == 0 {
		ins.PLC.TimeoutMs = DefaultTimeoutMs
	}

	top := &ins.Vision.Top
	if top.Camera.Device == "" {
		top.Camera.Device = DefaultTopDevice
	}
	if top.Camera.InputSize == 0 {
		top.Camera.InputSize = DefaultInputSize
	}
	if top.Confidence == 0 {
		top.Confidence = DefaultTopConfidence
	}
	if top.CalibrationConfidence == 0 {
		top.CalibrationConfidence = DefaultCalibrationConfidence
	}
	if top.Columns == 0 {
		top.Columns = DefaultColumns
	}
	if top.TolerancePx == 0 {
		top.TolerancePx = DefaultTolerancePx
	}
	if top.CorrectionLimitPx == 0 {
		top.CorrectionLimitPx = DefaultCorrectionLimitPx
	}

	side := &ins.Vision.Side
	if side.Camera.Device == "" {
		side.Camera.Device = DefaultSideDevice
	}
	if side.Camera.InputSize == 0 {
		side.Camera.InputSize = DefaultInputSize
	}
	if side.Confidence == 0 {
		side.Confidence = DefaultSideConfidence
	}
	if side.RealDistanceMM == 0 {
		side.RealDistanceMM = DefaultRealDistanceMM
	}
	if side.ZeroOffsetPx == 0 {
		side.ZeroOffsetPx = DefaultZeroOffsetPx
	}

	tr := &ins.Vision.Transmit
	if tr.Source == "" {
		tr.Source = "side_depth"
	}
	if tr.MMPerPixel == 0 {
		tr.MMPerPixel = DefaultMMPerPixel
	}
	if tr.MaxDeviationMM == 0 {
		tr.MaxDeviationMM = DefaultMaxDeviationMM
	}

	if ins.Timing.PollMs == 0 {
		ins.Timing.PollMs = DefaultPollMs
	}
	if ins.Timing.PostProcessMs == 0 {
		ins.Timing.PostProcessMs = DefaultPostProcessMs
	}
}
