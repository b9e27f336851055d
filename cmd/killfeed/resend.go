package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sctracker/killfeed/internal/delivery"
	"github.com/sctracker/killfeed/internal/storage"
	"github.com/sctracker/killfeed/internal/worker"
)

var resendLimit int

var resendCmd = &cobra.Command{
	Use:   "resend",
	Short: "Submit journaled kills whose delivery never finished",
	Long: `Read kills from the journal whose last delivery ran out of attempts or
was cut short by a shutdown, and submit them again. The journal must be
persistent (sqlite or postgres). Outcomes are written back to the journal.`,
	Args: cobra.NoArgs,
	RunE: runResend,
}

func init() {
	resendCmd.Flags().IntVar(&resendLimit, "limit", 100, "maximum number of kills to resubmit, 0 for all")
}

func runResend(cmd *cobra.Command, args []string) error {
	setupLogging(nil, true)
	defer closeLogging()

	switch viper.GetString("storage.type") {
	case "sqlite":
		// read the dump when the live database was kept in memory
		if viper.GetString("storage.sqlite.path") == "" {
			viper.Set("storage.sqlite.path", viper.GetString("storage.sqlite.dumpPath"))
		}
	case "postgres":
	default:
		return fmt.Errorf("resend needs a persistent journal, storage.type is %q", viper.GetString("storage.type"))
	}

	journal, err := openJournal()
	if err != nil {
		return err
	}
	defer func() {
		if err := journal.Close(); err != nil {
			Logger.Error("Error closing journal", "error", err)
		}
	}()

	r, ok := journal.(storage.Resubmitter)
	if !ok {
		return errors.New("journal cannot list undelivered kills")
	}
	payloads, err := r.Undelivered(resendLimit)
	if err != nil {
		return err
	}
	if len(payloads) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to resend")
		return nil
	}

	m := worker.NewManager(worker.Dependencies{
		Journal: journal,
		Logger:  Logger.With("component", "worker"),
	})
	// Deduplication is the collector's job here; every payload was never confirmed.
	cfg := deliveryConfig()
	cfg.DedupeTTL = 0
	q, err := delivery.New(cfg, newAPIClient(), Logger.With("component", "delivery"),
		delivery.WithResultHandler(m.HandleResult))
	if err != nil {
		return err
	}
	defer q.Stop(shutdownTimeout)

	var failed int
	for _, p := range payloads {
		if res := q.Deliver(p); !res.Success() {
			failed++
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Resent %d kills, %d failed\n", len(payloads), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d kills could not be delivered", failed, len(payloads))
	}
	return nil
}
