package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/sctracker/killfeed/internal/logging"
	intOtel "github.com/sctracker/killfeed/internal/otel"
)

// build info, set via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"
)

// AppName names the log files and the OTel service.
const AppName = "killfeed"

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	// ZLogger serves the database and stats managers
	ZLogger zerolog.Logger = zerolog.Nop()

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFilePath string
	LogFile     *os.File

	SessionStartTime time.Time = time.Now()
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
