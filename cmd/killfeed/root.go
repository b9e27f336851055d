package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/sctracker/killfeed/internal/config"
	"github.com/sctracker/killfeed/internal/logging"
	intOtel "github.com/sctracker/killfeed/internal/otel"
	"github.com/sctracker/killfeed/pkg/core"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   AppName,
	Short: "Star Citizen kill feed agent",
	Long: `killfeed follows the Star Citizen game log, recognises combat events,
pairs vehicle destructions with the deaths they cause and reports the
player's kills to a collector server.

Without a subcommand it runs watch.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runWatch,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (built %s)", Version, BuildDate)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(watchCmd, scanCmd, checkCmd, resendCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configDir, "config-dir", ".", "directory containing "+config.FileName)
	flags.String("log-level", "", "log level: TRACE, DEBUG, INFO, WARN or ERROR")
	flags.String("log-path", "", "game log to follow")

	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))
	_ = viper.BindPFlag("game.logPath", flags.Lookup("log-path"))
}

// loadConfig reads the config file. A missing file leaves the defaults.
func loadConfig(cmd *cobra.Command, args []string) error {
	err := config.Load(configDir)
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config, using defaults: %v\n", err)
	}
	return nil
}

// setupLogging builds the slog and zerolog loggers for one run. Records are
// stamped with the player and game mode returned by snapshot. With toFile
// the run also gets its own log file under logsDir.
func setupLogging(snapshot func() (string, core.GameMode), toFile bool) {
	level := viper.GetString("logLevel")

	SlogManager = logging.NewSlogManager()
	SlogManager.SetConsole(os.Stderr)
	if snapshot != nil {
		SlogManager.SetContextProvider(logging.SessionContext(snapshot))
	}
	SlogManager.Setup(nil, level, nil)
	Logger = SlogManager.Logger()

	var file io.Writer
	if toFile {
		LogFilePath = logging.LogFilePath(viper.GetString("logsDir"), AppName, SessionStartTime)
		f, err := logging.OpenLogFile(LogFilePath)
		if err != nil {
			Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		} else {
			LogFile = f
			file = f
		}
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		var err error
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: Version,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      file,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		}
	}

	var extra []slog.Handler
	if viper.GetBool("graylog.enabled") {
		h, err := logging.NewGraylogHandler(viper.GetString("graylog.address"), level)
		if err != nil {
			Logger.Error("Failed to set up Graylog output", "error", err)
		} else {
			extra = append(extra, h)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(file, level, otelLogProvider, extra...)
	Logger = SlogManager.Logger()
	ZLogger = logging.NewZerolog(os.Stderr, file, level, nil)

	if LogFile != nil {
		Logger.Info("Logging to file", "path", LogFilePath)
	}
}

// closeLogging flushes OTel and closes the session log.
func closeLogging() {
	if OTelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("OTel shutdown failed", "error", err)
		}
		cancel()
	}
	if LogFile != nil {
		_ = LogFile.Close()
		LogFile = nil
	}
}
