package restyutil

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentOutput receives the text of every captured exchange.
type InstrumentOutput interface {
	Write(id string, contents string)
}

type instrumentCtx struct {
	output    InstrumentOutput
	tracer    trace.Tracer
	idcounter *uint64
}

type messageIdKeyType int

var messageIdKey messageIdKeyType

// InstrumentClient opens a span for every request made through client and,
// when output is non-nil, writes each full exchange to it.
//
// `tracer` can be nil, it will default to a library name of "resty"
func InstrumentClient(client *resty.Client, tracer trace.Tracer, output InstrumentOutput) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}

	var idcounter uint64
	i := instrumentCtx{output: output, tracer: tracer, idcounter: &idcounter}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

func (i instrumentCtx) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))
	messageId := strconv.FormatUint(atomic.AddUint64(i.idcounter, 1), 10)
	ctx = context.WithValue(ctx, messageIdKey, messageId)
	req.SetContext(ctx)
	return nil
}

func requestAttributes(req *resty.Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", req.URL),
	}
}

func (i instrumentCtx) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(requestAttributes(res.Request)...)
	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode()))
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	if i.output != nil {
		messageId, ok := ctx.Value(messageIdKey).(string)
		if ok {
			i.output.Write(messageId, FormatExchange(res))
		}
	}
	return nil
}

func (i instrumentCtx) onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	span.SetAttributes(requestAttributes(req)...)
	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
}
