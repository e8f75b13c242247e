package annotation

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/terrasketch/drawtool/internal/annotation"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
