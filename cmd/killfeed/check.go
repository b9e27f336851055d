package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the collector is reachable",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	setupLogging(nil, false)
	defer closeLogging()

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	url := viper.GetString("api.serverUrl")
	if err := newAPIClient().Healthcheck(ctx); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Collector at %s is offline\n", url)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Collector at %s is online\n", url)
	return nil
}
