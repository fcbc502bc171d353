package graph

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/logger"
	"github.com/ooyales/it-biz-dev-lite-sub000/internal/observability"
)

const tracerName = "github.com/ooyales/it-biz-dev-lite-sub000/internal/server/graph"

// Options carries the optional collaborators shared by both backends
type Options struct {
	Metrics *observability.Collector
	// SearchLimit is both the default and the maximum result count of
	// substring searches and contract listings
	SearchLimit int
}

// searchLimit applies the default to a missing limit and caps larger ones
func (o Options) searchLimit(limit int) int {
	max := o.SearchLimit
	if max <= 0 {
		max = DefaultSearchLimit
	}
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

// instrumentation wraps every operation in a span and a metrics sample
type instrumentation struct {
	backend string
	tracer  trace.Tracer
	metrics *observability.Collector
}

func newInstrumentation(backend string, metrics *observability.Collector) instrumentation {
	return instrumentation{
		backend: backend,
		tracer:  otel.Tracer(tracerName),
		metrics: metrics,
	}
}

// start opens a span for op. The returned func must be deferred with a
// pointer to the operation's named error result.
func (in instrumentation) start(ctx context.Context, op string) (context.Context, func(*error)) {
	began := time.Now()
	ctx, span := in.tracer.Start(ctx, "graph."+op,
		trace.WithAttributes(attribute.String("graph.backend", in.backend)))

	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		status := "ok"
		switch {
		case err == nil:
		case IsNotFound(err):
			status = "not_found"
		case IsValidation(err) || IsConsistency(err):
			status = "rejected"
			span.SetStatus(codes.Error, err.Error())
		default:
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("graph store failure", "backend", in.backend, "op", op, "err", err)
		}
		span.End()
		in.metrics.ObserveStoreOp(in.backend, op, status, time.Since(began))
	}
}
