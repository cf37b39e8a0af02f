/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tracing wraps an OpenTelemetry tracer provider so that every finished span
// also counts as an operation and records its duration.
package tracing

import (
	"context"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
)

type LabelName = string

var (
	WithAttributes = trace.WithAttributes
	Bool           = attribute.Bool
	String         = attribute.String
)

const (
	namespaceKey = "metrics.namespace"
	labelsKey    = "metrics.labels"
)

// WithLabels tells the tracer which span attributes become labels of its metrics
func WithLabels(namespace string, names ...LabelName) trace.TracerOption {
	return trace.WithInstrumentationAttributes(
		attribute.String(namespaceKey, namespace),
		attribute.StringSlice(labelsKey, names),
	)
}

type metricsProvider interface {
	NewCounter(opts metrics.CounterOpts) metrics.Counter
	NewHistogram(opts metrics.HistogramOpts) metrics.Histogram
}

// NewTracerProvider returns a provider whose spans feed the metrics of mp.
// A nil tp selects the noop provider, metrics are recorded anyway.
func NewTracerProvider(tp trace.TracerProvider, mp metricsProvider) trace.TracerProvider {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &provider{backing: tp, metrics: mp}
}

type provider struct {
	embedded.TracerProvider

	backing trace.TracerProvider
	metrics metricsProvider
}

func (p *provider) Tracer(name string, options ...trace.TracerOption) trace.Tracer {
	c := trace.NewTracerConfig(options...)
	attrs := c.InstrumentationAttributes()
	namespace, _ := attrs.Value(namespaceKey)
	names, _ := attrs.Value(labelsKey)
	t := &tracer{
		backing: p.backing.Tracer(name, options...),
		labels:  names.AsStringSlice(),
	}
	t.operations = p.metrics.NewCounter(metrics.CounterOpts{
		Namespace:  namespace.AsString(),
		Name:       name + "_operations",
		Help:       "Number of finished '" + name + "' operations",
		LabelNames: t.labels,
	})
	t.duration = p.metrics.NewHistogram(metrics.HistogramOpts{
		Namespace:  namespace.AsString(),
		Name:       name + "_duration",
		Help:       "Duration in seconds of the '" + name + "' operations",
		LabelNames: t.labels,
	})
	return t
}

type tracer struct {
	embedded.Tracer

	backing    trace.Tracer
	labels     []LabelName
	operations metrics.Counter
	duration   metrics.Histogram
}

func (t *tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, backing := t.backing.Start(ctx, name, opts...)
	c := trace.NewSpanStartConfig(opts...)
	s := &span{Span: backing, tracer: t, values: map[string]string{}, start: c.Timestamp()}
	if s.start.IsZero() {
		s.start = time.Now()
	}
	s.record(c.Attributes())
	return trace.ContextWithSpan(ctx, s), s
}

type span struct {
	trace.Span

	tracer *tracer
	values map[string]string
	start  time.Time
}

func (s *span) SetAttributes(kv ...attribute.KeyValue) {
	s.Span.SetAttributes(kv...)
	s.record(kv)
}

func (s *span) AddEvent(name string, options ...trace.EventOption) {
	s.Span.AddEvent(name, options...)
	c := trace.NewEventConfig(options...)
	s.record(c.Attributes())
}

func (s *span) End(options ...trace.SpanEndOption) {
	s.Span.End(options...)

	c := trace.NewSpanEndConfig(options...)
	end := c.Timestamp()
	if end.IsZero() {
		end = time.Now()
	}
	// label values follow the order the tracer declared the names in
	lvs := make([]string, 0, 2*len(s.tracer.labels))
	for _, name := range s.tracer.labels {
		lvs = append(lvs, name, s.values[name])
	}
	s.tracer.operations.With(lvs...).Add(1)
	s.tracer.duration.With(lvs...).Observe(end.Sub(s.start).Seconds())
}

// record keeps the values of the attributes that are metric labels
func (s *span) record(kvs []attribute.KeyValue) {
	for _, kv := range kvs {
		if !kv.Valid() {
			continue
		}
		for _, name := range s.tracer.labels {
			if string(kv.Key) == name {
				s.values[name] = kv.Value.Emit()
			}
		}
	}
}
