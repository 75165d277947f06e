// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/tamzrod/plc-inspector/internal/plc"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	ins := cfg.Inspector

	// ------------------------------------------------------------
	// PLC LINK (required; no default-masking of protocol addresses)
	// ------------------------------------------------------------

	if ins.PLC.Host == "" {
		return fmt.Errorf("config: plc.host is required")
	}
	if ins.PLC.Port < 1 || ins.PLC.Port > 65535 {
		return fmt.Errorf("config: plc.port %d out of range 1-65535", ins.PLC.Port)
	}
	if ins.PLC.TimeoutMs < 0 {
		return fmt.Errorf("config: plc.timeout_ms must be >= 0")
	}

	devices := map[string]string{
		"plc.devices.trigger": ins.PLC.Devices.Trigger,
		"plc.devices.value":   ins.PLC.Devices.Value,
		"plc.devices.rows":    ins.PLC.Devices.Rows,
	}
	for field, name := range devices {
		if name == "" {
			return fmt.Errorf("config: %s is required", field)
		}
		if _, err := plc.ParseDevice(name); err != nil {
			return fmt.Errorf("config: %s: %w", field, err)
		}
	}

	codes := ins.PLC.Codes
	if codes.Request == 0 || codes.Success == 0 || codes.Error == 0 {
		return fmt.Errorf("config: plc.codes.{request,success,error} are all required and non-zero")
	}
	if codes.Request == codes.Success || codes.Request == codes.Error || codes.Success == codes.Error {
		return fmt.Errorf("config: plc.codes must be pairwise distinct (got %d/%d/%d)",
			codes.Request, codes.Success, codes.Error)
	}

	// ------------------------------------------------------------
	// VISION CLASS NAMES (required; thresholds are defaulted later)
	// ------------------------------------------------------------

	cameras := map[string]CameraConfig{
		"vision.top.camera":  ins.Vision.Top.Camera,
		"vision.side.camera": ins.Vision.Side.Camera,
	}
	for field, cam := range cameras {
		if cam.ModelPath != "" && len(cam.ClassNames) == 0 {
			return fmt.Errorf("config: %s.class_names is required when model_path is set", field)
		}
		if cam.InputSize < 0 {
			return fmt.Errorf("config: %s.input_size must be >= 0", field)
		}
	}

	top := ins.Vision.Top
	if top.OccupiedClass == "" || top.EmptyClass == "" {
		return fmt.Errorf("config: vision.top.{occupied_class,empty_class} are required")
	}
	if top.OccupiedClass == top.EmptyClass {
		return fmt.Errorf("config: vision.top occupied and empty classes must differ")
	}
	if top.Columns < 0 {
		return fmt.Errorf("config: vision.top.columns must be >= 0")
	}
	if top.Confidence < 0 || top.Confidence > 1 ||
		top.CalibrationConfidence < 0 || top.CalibrationConfidence > 1 {
		return fmt.Errorf("config: vision.top confidence values must be in [0,1]")
	}

	side := ins.Vision.Side
	if side.ReferenceClass == "" || side.EdgeClass == "" || side.MidClass == "" {
		return fmt.Errorf("config: vision.side.{reference_class,edge_class,mid_class} are required")
	}
	if side.Confidence < 0 || side.Confidence > 1 {
		return fmt.Errorf("config: vision.side.confidence must be in [0,1]")
	}
	if side.RealDistanceMM < 0 {
		return fmt.Errorf("config: vision.side.real_distance_mm must be >= 0")
	}

	switch ins.Vision.Transmit.Source {
	case "", "side_depth", "top_lateral":
	default:
		return fmt.Errorf("config: vision.transmit.source %q (want side_depth or top_lateral)",
			ins.Vision.Transmit.Source)
	}
	if ins.Vision.Transmit.Source == "top_lateral" && ins.Vision.Transmit.MMPerPixel <= 0 {
		return fmt.Errorf("config: vision.transmit.mm_per_pixel must be > 0 for top_lateral")
	}

	// ------------------------------------------------------------
	// TIMING
	// ------------------------------------------------------------

	if ins.Timing.PollMs < 0 || ins.Timing.PostProcessMs < 0 {
		return fmt.Errorf("config: timing values must be >= 0")
	}

	return nil
}
