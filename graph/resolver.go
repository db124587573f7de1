package graph

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Resolver holds the operation registry served at /query.
type Resolver struct {
	Tracer     trace.Tracer
	operations map[string]operation
}

func NewResolver(tracer trace.Tracer) *Resolver {
	if tracer == nil {
		tracer = otel.Tracer("frontdesk-backend")
	}
	r := &Resolver{Tracer: tracer}
	r.operations = r.registerOperations()
	return r
}

// Operations lists the registered operation names, for docs and tests.
func (r *Resolver) Operations() []string {
	names := make([]string, 0, len(r.operations))
	for name := range r.operations {
		names = append(names, name)
	}
	return names
}
