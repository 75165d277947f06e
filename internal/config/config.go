// internal/config/config.go
package config

type Config struct {
	Inspector InspectorConfig `yaml:"inspector"`
}

type InspectorConfig struct {
	PLC        PLCConfig     `yaml:"plc"`
	Vision     VisionConfig  `yaml:"vision"`
	Timing     TimingConfig  `yaml:"timing"`
	Simulation bool          `yaml:"simulation"`
	History    HistoryConfig `yaml:"history"`
	Metrics    MetricsConfig `yaml:"metrics"`
}

// ---- PLC LINK ----

type PLCConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`

	Devices DeviceConfig `yaml:"devices"`
	Codes   CodeConfig   `yaml:"codes"`
}

// DeviceConfig holds the symbolic register names ("D28").
type DeviceConfig struct {
	Trigger string `yaml:"trigger"`
	Value   string `yaml:"value"`
	Rows    string `yaml:"rows"`
}

// CodeConfig holds the three handshake codes on the trigger register.
type CodeConfig struct {
	Request uint16 `yaml:"request"`
	Success uint16 `yaml:"success"`
	Error   uint16 `yaml:"error"`
}

// ---- VISION ----

type VisionConfig struct {
	Top      TopConfig      `yaml:"top"`
	Side     SideConfig     `yaml:"side"`
	Transmit TransmitConfig `yaml:"transmit"`
}

// CameraConfig names the capture device and the detection network serving
// one camera position.
type CameraConfig struct {
	Device     string   `yaml:"device"`      // index ("0") or device path / stream URL
	ModelPath  string   `yaml:"model_path"`  // detection network, unused in simulation
	ClassNames []string `yaml:"class_names"` // network output index -> class name
	InputSize  int      `yaml:"input_size"`
}

type TopConfig struct {
	Camera                CameraConfig `yaml:"camera"`
	Confidence            float64      `yaml:"confidence"`
	CalibrationConfidence float64      `yaml:"calibration_confidence"`
	FaultClasses          []string     `yaml:"fault_classes"`
	OccupiedClass         string       `yaml:"occupied_class"`
	EmptyClass            string       `yaml:"empty_class"`
	Columns               int          `yaml:"columns"`
	TolerancePx           float64      `yaml:"tolerance_px"`
	CorrectionLimitPx     float64      `yaml:"correction_limit_px"`
}

type SideConfig struct {
	Camera         CameraConfig `yaml:"camera"`
	Confidence     float64      `yaml:"confidence"`
	AnomalyClasses []string     `yaml:"anomaly_classes"`
	ReferenceClass string       `yaml:"reference_class"`
	EdgeClass      string       `yaml:"edge_class"`
	MidClass       string       `yaml:"mid_class"`
	RealDistanceMM float64      `yaml:"real_distance_mm"`
	ZeroOffsetPx   float64      `yaml:"zero_offset_px"`
}

// TransmitConfig selects which correction drives the value register.
// "side_depth" preserves the historical behavior; "top_lateral" is the
// alternative the register's name suggests.
type TransmitConfig struct {
	Source         string  `yaml:"source"` // side_depth | top_lateral
	MMPerPixel     float64 `yaml:"mm_per_pixel"`
	MaxDeviationMM float64 `yaml:"max_deviation_mm"` // plausibility warning bound
}

// ---- TIMING ----

type TimingConfig struct {
	PollMs        int `yaml:"poll_ms"`
	PostProcessMs int `yaml:"post_process_ms"`
}

// ---- OPTIONAL SINKS ----

type HistoryConfig struct {
	DSN string `yaml:"dsn"` // empty disables persistence
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the scrape endpoint
}
