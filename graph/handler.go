package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/frontdesk_backend/config"
	"bitbucket.org/mmdatafocus/frontdesk_backend/metrics"
	"bitbucket.org/mmdatafocus/frontdesk_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Request is the /query body. Query is an optional GraphQL document.
type Request struct {
	Query         string          `json:"query"`
	OperationName string          `json:"operationName"`
	Variables     json.RawMessage `json:"variables"`
}

type Response struct {
	Data   map[string]interface{} `json:"data"`
	Errors gqlerror.List          `json:"errors,omitempty"`
}

// Handler serves POST /query.
func (r *Resolver) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{Errors: gqlerror.List{toGQLError("", utils.NewValidationError("invalid request body", map[string]string{
				"body": "body must be a JSON object with query or operationName, and variables",
			}))}})
			return
		}
		c.JSON(http.StatusOK, r.Execute(c.Request.Context(), req))
	}
}

// Execute runs one operation under its directive.
func (r *Resolver) Execute(ctx context.Context, req Request) Response {
	c, err := r.plan(req)
	if err != nil {
		metrics.ObserveOperation("unknown", string(utils.ErrorKindOf(err)), time.Now())
		return Response{Errors: gqlerror.List{toGQLError(strings.TrimSpace(req.OperationName), err)}}
	}
	name, op := c.name, c.op

	start := time.Now()
	ctx, span := r.Tracer.Start(ctx, string(op.kind)+" "+name, trace.WithAttributes(
		attribute.String("graph.operation", name),
		attribute.String("graph.kind", string(op.kind)),
	))
	defer span.End()

	result, err := op.guard(ctx, func(ctx context.Context) (interface{}, error) {
		return op.resolve(ctx, c.variables)
	})
	if err != nil {
		kind := utils.ErrorKindOf(err)
		metrics.ObserveOperation(name, string(kind), start)
		span.SetAttributes(attribute.String("graph.error_kind", string(kind)))
		if kind == utils.ErrorKindInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
			config.GetLogger().WithFields(logrus.Fields{
				"field":          "graph",
				"operation":      name,
				"correlation_id": correlationId,
			}).Error(err.Error())
		}
		return Response{Errors: gqlerror.List{toGQLError(c.key, err)}}
	}

	metrics.ObserveOperation(name, "ok", start)
	return Response{Data: map[string]interface{}{c.key: result}}
}
