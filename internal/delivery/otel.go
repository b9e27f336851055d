package delivery

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sctracker/killfeed/internal/delivery"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
