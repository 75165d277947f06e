// cmd/inspector/run.go
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tamzrod/plc-inspector/internal/annotate"
	"github.com/tamzrod/plc-inspector/internal/arbiter"
	"github.com/tamzrod/plc-inspector/internal/calib"
	"github.com/tamzrod/plc-inspector/internal/config"
	"github.com/tamzrod/plc-inspector/internal/detect"
	"github.com/tamzrod/plc-inspector/internal/history"
	"github.com/tamzrod/plc-inspector/internal/loop"
	"github.com/tamzrod/plc-inspector/internal/metrics"
	"github.com/tamzrod/plc-inspector/internal/plc"
	"github.com/tamzrod/plc-inspector/internal/sideview"
	"github.com/tamzrod/plc-inspector/internal/topview"
	"github.com/tamzrod/plc-inspector/internal/vision"
)

var (
	dumpDir  string
	simulate bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the inspection loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStation(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVar(&dumpDir, "dump-dir", "", "Write annotated cycle frames into this directory")
	runCmd.Flags().BoolVar(&simulate, "simulate", false, "Process cycles without touching the controller")
	rootCmd.AddCommand(runCmd)
}

func runStation(ctx context.Context) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	ins := cfg.Inspector
	if simulate {
		ins.Simulation = true
	}

	// --------------------
	// Controller link
	// --------------------

	client, err := buildClient(ins.PLC)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	// --------------------
	// Cameras + detectors
	// --------------------

	topCam, closeTop, err := buildCamera(ins.Vision.Top.Camera)
	if err != nil {
		return fmt.Errorf("top camera: %w", err)
	}
	defer closeTop()

	sideCam, closeSide, err := buildCamera(ins.Vision.Side.Camera)
	if err != nil {
		return fmt.Errorf("side camera: %w", err)
	}
	defer closeSide()

	// --------------------
	// Interpretation
	// --------------------

	engine, err := calib.NewEngine(calib.Config{
		OccupiedClass: ins.Vision.Top.OccupiedClass,
		EmptyClass:    ins.Vision.Top.EmptyClass,
		Columns:       ins.Vision.Top.Columns,
	})
	if err != nil {
		return err
	}

	topInt, err := topview.New(topview.Config{
		FaultClasses:      ins.Vision.Top.FaultClasses,
		OccupiedClass:     ins.Vision.Top.OccupiedClass,
		EmptyClass:        ins.Vision.Top.EmptyClass,
		MinConfidence:     ins.Vision.Top.Confidence,
		TolerancePx:       ins.Vision.Top.TolerancePx,
		CorrectionLimitPx: ins.Vision.Top.CorrectionLimitPx,
	})
	if err != nil {
		return err
	}

	sideInt, err := sideview.New(sideview.Config{
		AnomalyClasses: ins.Vision.Side.AnomalyClasses,
		ReferenceClass: ins.Vision.Side.ReferenceClass,
		EdgeClass:      ins.Vision.Side.EdgeClass,
		MidClass:       ins.Vision.Side.MidClass,
		MinConfidence:  ins.Vision.Side.Confidence,
		RealDistanceMM: ins.Vision.Side.RealDistanceMM,
		ZeroOffsetPx:   ins.Vision.Side.ZeroOffsetPx,
	})
	if err != nil {
		return err
	}

	// --------------------
	// Optional sinks
	// --------------------

	var recorder history.Recorder = history.Nop{}
	if ins.History.DSN != "" {
		store, err := history.NewStore(ctx, ins.History.DSN)
		if err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		defer store.Close(context.Background())
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("history schema: %w", err)
		}
		recorder = store
	}

	m := metrics.New()
	if ins.Metrics.Listen != "" {
		go serveMetrics(ins.Metrics.Listen, m)
	}

	var sink loop.OperatorSink
	if dumpDir != "" {
		ds, err := annotate.NewDirSink(dumpDir)
		if err != nil {
			return err
		}
		sink = ds
	}

	// --------------------
	// Loop
	// --------------------

	l, err := loop.New(
		loop.Config{
			PollDelay:             time.Duration(ins.Timing.PollMs) * time.Millisecond,
			PostProcessDelay:      time.Duration(ins.Timing.PostProcessMs) * time.Millisecond,
			Simulation:            ins.Simulation,
			CalibrationConfidence: ins.Vision.Top.CalibrationConfidence,
			Columns:               ins.Vision.Top.Columns,
			MaxDeviationMM:        ins.Vision.Transmit.MaxDeviationMM,
			Policy:                transmitPolicy(ins.Vision.Transmit),
		},
		loop.Deps{
			PLC:        client,
			Top:        topCam,
			Side:       sideCam,
			Engine:     engine,
			TopInterp:  topInt,
			SideInterp: sideInt,
			Recorder:   recorder,
			Metrics:    m,
			Sink:       sink,
		},
	)
	if err != nil {
		return err
	}

	log.Printf("inspector %s starting (simulation=%v)", Version, ins.Simulation)
	return l.Run(ctx)
}

func buildClient(cfg config.PLCConfig) (*plc.Client, error) {
	// Device names were validated already; parse cannot fail here.
	trigger, _ := plc.ParseDevice(cfg.Devices.Trigger)
	value, _ := plc.ParseDevice(cfg.Devices.Value)
	rows, _ := plc.ParseDevice(cfg.Devices.Rows)

	return plc.New(
		plc.Config{
			TriggerAddr: trigger,
			ValueAddr:   value,
			RowsAddr:    rows,
			Codes: plc.StatusCodes{
				Request: cfg.Codes.Request,
				Success: cfg.Codes.Success,
				Error:   cfg.Codes.Error,
			},
		},
		plc.TCPFactory(plc.BusConfig{
			Endpoint: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			UnitID:   cfg.UnitID,
			Timeout:  time.Duration(cfg.TimeoutMs) * time.Millisecond,
		}),
	)
}

func buildCamera(cfg config.CameraConfig) (vision.Camera, func(), error) {
	src, err := annotate.OpenCamera(cfg.Device)
	if err != nil {
		return vision.Camera{}, nil, err
	}

	model, err := detect.Open(detect.Config{
		ModelPath:  cfg.ModelPath,
		ClassNames: cfg.ClassNames,
		InputSize:  cfg.InputSize,
	})
	if err != nil {
		src.Close()
		return vision.Camera{}, nil, err
	}

	closer := func() {
		src.Close()
		model.Close()
	}
	return vision.Camera{Source: src, Detector: model}, closer, nil
}

func transmitPolicy(cfg config.TransmitConfig) arbiter.Policy {
	source := arbiter.SourceSideDepth
	if cfg.Source == "top_lateral" {
		source = arbiter.SourceTopLateral
	}
	return arbiter.Policy{Source: source, MMPerPx: cfg.MMPerPixel}
}

func serveMetrics(listen string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	log.Printf("metrics listening on %s", listen)
	if err := http.ListenAndServe(listen, mux); err != nil {
		log.Printf("metrics server stopped: %v", err)
	}
}
