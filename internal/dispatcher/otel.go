package dispatcher

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sctracker/killfeed/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
