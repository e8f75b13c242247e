package terrain

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/terrasketch/drawtool/internal/terrain"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
