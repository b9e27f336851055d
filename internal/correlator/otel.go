package correlator

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sctracker/killfeed/internal/correlator"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
