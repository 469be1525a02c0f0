package synth

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/loqalabs/loqa-speak/synth"

type instruments struct {
	tracer    trace.Tracer
	downloads metric.Int64Counter
	bytes     metric.Int64Counter
	duration  metric.Float64Histogram
}

func newInstruments(log *slog.Logger) instruments {
	meter := otel.Meter(instrumentationName)
	inst, err := buildInstruments(meter)
	if err != nil {
		log.Warn("failed to initialize metrics", slogError(err))
		inst, _ = buildInstruments(noop.NewMeterProvider().Meter(instrumentationName))
	}
	inst.tracer = otel.Tracer(instrumentationName)
	return inst
}

func buildInstruments(meter metric.Meter) (instruments, error) {
	var inst instruments
	var err error
	inst.downloads, err = meter.Int64Counter("loqa_speak.downloads",
		metric.WithDescription("Processed synthesis requests by outcome"))
	if err != nil {
		return inst, err
	}
	inst.bytes, err = meter.Int64Counter("loqa_speak.download.bytes",
		metric.WithDescription("Audio bytes written to disk"),
		metric.WithUnit("By"))
	if err != nil {
		return inst, err
	}
	inst.duration, err = meter.Float64Histogram("loqa_speak.download.duration",
		metric.WithDescription("Time from dequeue to outcome"),
		metric.WithUnit("s"))
	if err != nil {
		return inst, err
	}
	return inst, nil
}

func (i instruments) observe(ctx context.Context, voice, outcome string, written int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("voice", voice),
		attribute.String("outcome", outcome),
	)
	i.downloads.Add(ctx, 1, attrs)
	i.duration.Record(ctx, elapsed.Seconds(), attrs)
	if written > 0 {
		i.bytes.Add(ctx, int64(written), metric.WithAttributes(attribute.String("voice", voice)))
	}
}
