package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Reporter é o canal lateral para falhas que não podem chegar ao chamador,
// como erros internos do webhook (que sempre responde 200).
type Reporter interface {
	Report(ctx context.Context, component string, err error, fields ...zap.Field)
}

// OTelReporter conta a falha em marketplace.internal_errors, marca o span atual e loga
type OTelReporter struct {
	counter metric.Int64Counter
	logger  *zap.Logger
}

// NewOTelReporter cria uma nova instância de OTelReporter
func NewOTelReporter(meter metric.Meter, logger *zap.Logger) (*OTelReporter, error) {
	counter, err := meter.Int64Counter(
		"marketplace.internal_errors",
		metric.WithDescription("Falhas internas mascaradas na borda"),
	)
	if err != nil {
		return nil, err
	}
	return &OTelReporter{counter: counter, logger: logger}, nil
}

// Report registra a falha nos três canais
func (r *OTelReporter) Report(ctx context.Context, component string, err error, fields ...zap.Field) {
	r.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("component", component)))

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, component)

	r.logger.Error("Falha interna reportada",
		append([]zap.Field{zap.String("component", component), zap.Error(err)}, fields...)...,
	)
}
