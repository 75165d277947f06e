// cmd/inspector/snapshot.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tamzrod/plc-inspector/internal/config"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Read the handshake registers once and print them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
		config.Normalize(cfg)

		client, err := buildClient(cfg.Inspector.PLC)
		if err != nil {
			return err
		}
		if err := client.Connect(); err != nil {
			return fmt.Errorf("controller connect failed: %w", err)
		}
		defer client.Disconnect()

		state, err := client.Snapshot()
		if err != nil {
			return fmt.Errorf("register read failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "trigger   %d (%s)\n", state.RawTrigger, state.Trigger)
		fmt.Fprintf(out, "rows      %d\n", state.RowCount)
		fmt.Fprintf(out, "deviation %.2f mm\n", state.DeviationMM)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
