package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sctracker/killfeed/internal/config"
	"github.com/sctracker/killfeed/internal/monitor"
	"github.com/sctracker/killfeed/internal/session"
	"github.com/sctracker/killfeed/internal/tailer"
	"github.com/sctracker/killfeed/pkg/core"
)

var watchCmd = &cobra.Command{
	Use:   "watch [game.log]",
	Short: "Follow the game log and report kills",
	Long: `Follow the game log until interrupted. The file is replayed from the start
to recover the player handle and game mode, then new lines are processed
as they are written. Rotated or recreated logs are picked up automatically.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var errNoLogPath = errors.New("no game log given: pass a path, use --log-path or set game.logPath")

func runWatch(cmd *cobra.Command, args []string) error {
	path := viper.GetString("game.logPath")
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return errNoLogPath
	}

	state := session.New()
	setupLogging(state.Snapshot, true)
	defer closeLogging()

	Logger.Info("Starting up...", "version", Version, "build", BuildDate, "log", path)

	deliver := config.GetBool("delivery.enabled")
	out := openSinks()
	p, err := newPipeline(state, pipelineOptions{
		deliver:    deliver,
		bufferSize: config.GetInt("dispatcher.bufferSize"),
		sinks:      out,
	})
	if err != nil {
		_ = out.close()
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if deliver {
		checkServerStatus(ctx)
	}

	sess := core.Session{
		LogPath:       path,
		ClientVersion: clientVersion(),
		StartedAt:     SessionStartTime,
	}
	out.startSession(&sess)

	t := tailer.New(path, tailerConfig(), Logger.With("component", "tailer"))
	monitorService := monitor.NewService(p.monitorDeps(t))

	p.start()
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Failed to start status monitor", "error", err)
	}

	err = t.Follow(ctx, p.processor)

	Logger.Info("Shutting down...")
	monitorService.Stop()
	p.shutdown()
	monitorService.Report()

	sess.Player = state.User()
	sess.EndedAt = time.Now()
	out.endSession(sess)
	if cerr := out.close(); cerr != nil {
		Logger.Error("Error closing sinks", "error", cerr)
	}

	c := p.worker.Counters()
	Logger.Info("Stopped", "events", c.Handled, "submitted", c.Submitted, "failed", c.Failed)

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// checkServerStatus logs whether the collector answers its healthcheck.
func checkServerStatus(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := viper.GetString("api.serverUrl")
	if err := newAPIClient().Healthcheck(ctx); err != nil {
		Logger.Warn("Collector is offline, kills will be retried", "url", url, "error", err)
		return
	}
	Logger.Info("Collector is online", "url", url)
}
