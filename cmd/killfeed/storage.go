package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sctracker/killfeed/internal/config"
	"github.com/sctracker/killfeed/internal/database"
	"github.com/sctracker/killfeed/internal/feed"
	"github.com/sctracker/killfeed/internal/influx"
	"github.com/sctracker/killfeed/internal/storage"
	"github.com/sctracker/killfeed/pkg/core"
)

// sinks are the optional outputs next to the collector. Any of them may be nil.
type sinks struct {
	journal storage.Backend
	feed    *feed.Feed
	stats   *influx.Manager
}

// openSinks brings up whatever the config enables. A sink that fails to
// start is logged and left out.
func openSinks() sinks {
	var s sinks

	journal, err := openJournal()
	if err != nil {
		Logger.Error("Journal unavailable, continuing without it", "error", err)
	}
	s.journal = journal

	s.feed = openFeed()
	s.stats = openStats()
	return s
}

// startSession announces the session to the journal and the feed. The
// journal assigns the ID.
func (s sinks) startSession(sess *core.Session) {
	if s.journal != nil {
		if err := s.journal.StartSession(sess); err != nil {
			Logger.Error("Failed to record session start", "error", err)
		}
	}
	if s.feed != nil {
		if err := s.feed.StartSession(*sess); err != nil {
			Logger.Warn("Live feed did not acknowledge session start", "error", err)
		}
	}
}

func (s sinks) endSession(sess core.Session) {
	if s.journal != nil {
		if err := s.journal.EndSession(sess); err != nil {
			Logger.Error("Failed to record session end", "error", err)
		}
	}
	if s.feed != nil {
		if err := s.feed.EndSession(sess); err != nil {
			Logger.Warn("Live feed did not acknowledge session end", "error", err)
		}
	}
}

func (s sinks) close() error {
	var errs []error
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
	}
	if s.feed != nil {
		if err := s.feed.Close(); err != nil {
			errs = append(errs, fmt.Errorf("feed: %w", err))
		}
	}
	if s.stats != nil {
		if err := s.stats.Close(); err != nil {
			errs = append(errs, fmt.Errorf("stats: %w", err))
		}
	}
	return errors.Join(errs...)
}

// openJournal returns nil without error when storage.type is "none".
func openJournal() (storage.Backend, error) {
	cfg := config.GetStorageConfig()
	dbm := database.NewManager(ZLogger.With().Str("component", "database").Logger())

	backend, err := storage.NewBackend(cfg, dbm, Logger.With("component", "journal"))
	if err != nil {
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}
	if backend == nil {
		Logger.Info("Journal disabled")
		return nil, nil
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s journal: %w", cfg.Type, err)
	}
	Logger.Info("Journal initialized", "type", cfg.Type)
	return backend, nil
}

func openFeed() *feed.Feed {
	if !viper.GetBool("feed.enabled") {
		return nil
	}
	url := viper.GetString("feed.url")
	if url == "" {
		url = httpToWS(viper.GetString("api.serverUrl")) + "/api/feed"
	}

	f := feed.New(feed.Config{
		URL:    url,
		Secret: viper.GetString("feed.secret"),
	}, Logger.With("component", "feed"))
	if err := f.Init(); err != nil {
		Logger.Error("Failed to connect live feed", "url", url, "error", err)
		return nil
	}
	Logger.Info("Live feed connected", "url", url)
	return f
}

func openStats() *influx.Manager {
	if !viper.GetBool("influx.enabled") {
		return nil
	}
	m := influx.NewManager(
		ZLogger.With().Str("component", "influx").Logger(),
		viper.GetString("influx.backupPath"),
	)
	if err := m.Connect(); err != nil {
		Logger.Error("Failed to set up stats sink", "error", err)
		return nil
	}
	return m
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
