// cmd/inspector/checkconfig.go
package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tamzrod/plc-inspector/internal/config"
)

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration and print the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
		config.Normalize(cfg)

		ins := cfg.Inspector
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "controller  %s (unit %d, timeout %dms)\n",
			net.JoinHostPort(ins.PLC.Host, strconv.Itoa(ins.PLC.Port)),
			ins.PLC.UnitID, ins.PLC.TimeoutMs)
		fmt.Fprintf(out, "devices     trigger=%s value=%s rows=%s\n",
			ins.PLC.Devices.Trigger, ins.PLC.Devices.Value, ins.PLC.Devices.Rows)
		fmt.Fprintf(out, "codes       request=%d success=%d error=%d\n",
			ins.PLC.Codes.Request, ins.PLC.Codes.Success, ins.PLC.Codes.Error)
		fmt.Fprintf(out, "top camera  device=%s confidence=%.2f columns=%d tolerance=%.0fpx\n",
			ins.Vision.Top.Camera.Device, ins.Vision.Top.Confidence,
			ins.Vision.Top.Columns, ins.Vision.Top.TolerancePx)
		fmt.Fprintf(out, "side camera device=%s confidence=%.2f distance=%.0fmm offset=%.0fpx\n",
			ins.Vision.Side.Camera.Device, ins.Vision.Side.Confidence,
			ins.Vision.Side.RealDistanceMM, ins.Vision.Side.ZeroOffsetPx)
		fmt.Fprintf(out, "transmit    source=%s max_deviation=%.1fmm\n",
			ins.Vision.Transmit.Source, ins.Vision.Transmit.MaxDeviationMM)
		fmt.Fprintf(out, "timing      poll=%dms post_process=%dms\n",
			ins.Timing.PollMs, ins.Timing.PostProcessMs)
		if ins.History.DSN != "" {
			fmt.Fprintln(out, "history     enabled")
		}
		if ins.Metrics.Listen != "" {
			fmt.Fprintf(out, "metrics     %s\n", ins.Metrics.Listen)
		}
		fmt.Fprintln(out, "config OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkConfigCmd)
}
