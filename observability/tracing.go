// Copyright 2023 The hoxy Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"

	"github.com/apex/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// TraceConfig tracing setup
type TraceConfig struct {
	// ServiceName identifies this service in traces
	ServiceName string
	// ServiceVersion identifies the service build
	ServiceVersion string
	// Endpoint OTLP gRPC collector endpoint. Tracing is a no-op when empty.
	Endpoint string
	// Insecure disables TLS toward the collector
	Insecure bool
	// SamplingRate fraction of traces recorded
	SamplingRate float64
}

// Tracer span factory
//
// A nil *Tracer is valid and produces no-op spans.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer define a tracer and the shutdown function flushing it
func NewTracer(config TraceConfig) (*Tracer, func(context.Context) error) {
	logTags := log.Fields{"module": "observability", "component": "tracer"}
	if config.ServiceName == "" {
		config.ServiceName = "hoxy"
	}
	noop := func(context.Context) error { return nil }
	if config.Endpoint == "" {
		return &Tracer{tracer: otel.Tracer(config.ServiceName)}, noop
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Unable to define OTLP exporter. Tracing disabled.")
		return &Tracer{tracer: otel.Tracer(config.ServiceName)}, noop
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", config.ServiceName),
			attribute.String("service.version", config.ServiceVersion),
		),
	)
	if err != nil {
		res = resource.Default()
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.WithFields(logTags).Infof("Exporting traces to %s", config.Endpoint)

	return &Tracer{tracer: provider.Tracer(config.ServiceName)}, provider.Shutdown
}

// Start open a span as a child of any span in ctxt
func (t *Tracer) Start(
	ctxt context.Context, name string, attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	tracer := otel.Tracer("hoxy")
	if t != nil && t.tracer != nil {
		tracer = t.tracer
	}
	return tracer.Start(ctxt, name, trace.WithAttributes(attrs...))
}

// RecordError mark the span as failed
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
