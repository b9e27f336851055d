package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sctracker/killfeed/internal/feed"
	"github.com/sctracker/killfeed/internal/ingest"
	"github.com/sctracker/killfeed/internal/session"
	"github.com/sctracker/killfeed/pkg/core"
)

// maxLineSize bounds one log line. Longer lines fail the scan.
const maxLineSize = 1024 * 1024

var scanCmd = &cobra.Command{
	Use:   "scan <game.log>",
	Short: "Run an existing log through the event pipeline and print the events",
	Long: `Read a finished game log from start to end and print every recognised
event as one JSON object per line. Correlation windows follow the log
timestamps, so the output matches what watch would have produced live.
Nothing is delivered to the collector.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	state := session.New()
	setupLogging(state.Snapshot, false)
	defer closeLogging()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	start := time.Now()
	stats, err := scanLog(f, cmd.OutOrStdout(), state)
	if err != nil {
		return err
	}
	Logger.Info("Scan complete",
		"lines", stats.Lines,
		"kills", stats.Kills,
		"deaths", stats.Deaths,
		"vehicles", stats.Vehicles,
		"player", state.User(),
		"duration", time.Since(start))
	return nil
}

// scanLog processes every line of r in order and writes the resulting events
// to w. Vehicle events still waiting for a death at end of input are expired.
func scanLog(r io.Reader, w io.Writer, state *session.State) (ingest.Stats, error) {
	enc := json.NewEncoder(w)
	var writeErr error

	p, err := newPipeline(state, pipelineOptions{
		logTime: true,
		output: func(e core.JournalEntry) {
			if writeErr != nil {
				return
			}
			writeErr = enc.Encode(feed.NewEventPayload(e))
		},
	})
	if err != nil {
		return ingest.Stats{}, err
	}
	defer p.dispatcher.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		p.processor.Process(sc.Text())
		p.drainCorrelator()
		if writeErr != nil {
			return p.processor.Stats(), fmt.Errorf("failed to write event: %w", writeErr)
		}
	}
	if err := sc.Err(); err != nil {
		return p.processor.Stats(), fmt.Errorf("failed to read log: %w", err)
	}

	p.expirePending()
	p.drainCorrelator()

	if writeErr != nil {
		return p.processor.Stats(), fmt.Errorf("failed to write event: %w", writeErr)
	}
	return p.processor.Stats(), nil
}
