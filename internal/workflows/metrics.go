package workflows

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/clinicore/consultd/internal/workflows"

var (
	transcriptionAttempts metric.Int64Counter
	transcriptionDuration metric.Float64Histogram
	reportGenerations     metric.Int64Counter
)

// initMetrics initializes OpenTelemetry metrics for workflows.
// This is called once during package initialization.
func initMetrics() {
	meter := otel.Meter(instrumentationName)

	var err error

	transcriptionAttempts, err = meter.Int64Counter(
		"consultd.workflows.transcription.attempts",
		metric.WithDescription("Transcription attempts by terminal outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create transcription attempts counter: %v", err))
	}

	transcriptionDuration, err = meter.Float64Histogram(
		"consultd.workflows.transcription.duration",
		metric.WithDescription("Duration of speech-to-text capability calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create transcription duration histogram: %v", err))
	}

	reportGenerations, err = meter.Int64Counter(
		"consultd.workflows.report.generations",
		metric.WithDescription("Report documents generated or regenerated"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create report generations counter: %v", err))
	}
}

func init() {
	initMetrics()
}
