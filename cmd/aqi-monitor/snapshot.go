package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var snapshotTimeout time.Duration

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Refresh every location once and print the snapshot as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), snapshotTimeout)
		defer cancel()

		snapshot, err := a.service.Refresh(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"snapshot_id":  snapshot.ID,
			"refreshed_at": snapshot.RefreshedAt,
			"locations":    snapshot.Reports,
			"alerts":       a.service.Alerts(),
		})
	},
}

func init() {
	snapshotCmd.Flags().DurationVar(&snapshotTimeout, "timeout", time.Minute, "maximum time to wait for the refresh")
}
