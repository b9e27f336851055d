package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sctracker/killfeed/internal/model"
	"github.com/sctracker/killfeed/internal/model/convert"
)

// JournalExport is the root JSON structure
type JournalExport struct {
	LogPath       string              `json:"logPath"`
	ClientVersion string              `json:"clientVersion"`
	Player        string              `json:"player"`
	StartedAt     time.Time           `json:"startedAt"`
	EndedAt       time.Time           `json:"endedAt"`
	Evicted       int                 `json:"evicted"`
	Events        []model.EventRecord `json:"events"`
}

// exportJSON writes the journal to a JSON file, gzipped if configured.
// Callers hold b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	started := export.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	timestamp := started.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("killfeed_%s.json.gz", timestamp)
	} else {
		filename = fmt.Sprintf("killfeed_%s.json", timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() JournalExport {
	export := JournalExport{
		Evicted: b.records.Dropped(),
		Events:  make([]model.EventRecord, 0, b.records.Len()),
	}
	if b.session != nil {
		export.LogPath = b.session.LogPath
		export.ClientVersion = b.session.ClientVersion
		export.Player = b.session.Player
		export.StartedAt = b.session.StartedAt
		export.EndedAt = b.session.EndedAt
	}

	for i, r := range b.records.Snapshot() {
		row := convert.EntryToRecord(r.Entry)
		row.ID = uint(i + 1)
		if b.session != nil {
			row.SessionID = b.session.ID
		}
		if r.Delivery != nil {
			convert.ApplyDelivery(&row, *r.Delivery)
		}
		export.Events = append(export.Events, row)
	}
	return export
}

func writeJSON(path string, data JournalExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data JournalExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
