package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogHandler sends records as GELF messages to addr (host:port, UDP).
// The first line of each record becomes the short message.
func NewGraylogHandler(addr, level string) (slog.Handler, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("creating GELF writer for %s: %w", addr, err)
	}
	return NewTextHandler(w, level), nil
}
