/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	"github.com/go-kit/kit/metrics/prometheus"
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/metrics"
	prom "github.com/prometheus/client_golang/prometheus"
)

const DefaultNamespace = "iou"

// Provider creates prometheus-backed instruments and registers them with its registerer.
// Asking twice for the same instrument returns the one registered first.
type Provider struct {
	registerer prom.Registerer
}

// NewProvider returns a provider bound to registerer, the default one when nil
func NewProvider(registerer prom.Registerer) *Provider {
	if registerer == nil {
		registerer = prom.DefaultRegisterer
	}
	return &Provider{registerer: registerer}
}

func (p *Provider) NewCounter(o metrics.CounterOpts) metrics.Counter {
	cv := register(p.registerer, prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace(o.Namespace),
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
	}, o.LabelNames))
	return &counter{prometheus.NewCounter(cv)}
}

func (p *Provider) NewGauge(o metrics.GaugeOpts) metrics.Gauge {
	gv := register(p.registerer, prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace(o.Namespace),
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
	}, o.LabelNames))
	return &gauge{prometheus.NewGauge(gv)}
}

func (p *Provider) NewHistogram(o metrics.HistogramOpts) metrics.Histogram {
	hv := register(p.registerer, prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace(o.Namespace),
		Subsystem: o.Subsystem,
		Name:      o.Name,
		Help:      o.Help,
		Buckets:   o.Buckets,
	}, o.LabelNames))
	return &histogram{prometheus.NewHistogram(hv)}
}

func namespace(ns string) string {
	if len(ns) == 0 {
		return DefaultNamespace
	}
	return ns
}

// register panics when c clashes with a different collector of the same name
func register[C prom.Collector](r prom.Registerer, c C) C {
	err := r.Register(c)
	if err == nil {
		return c
	}
	var are prom.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

type counter struct{ *prometheus.Counter }

func (c *counter) With(labelValues ...string) metrics.Counter {
	return &counter{c.Counter.With(labelValues...).(*prometheus.Counter)}
}

type gauge struct{ *prometheus.Gauge }

func (g *gauge) With(labelValues ...string) metrics.Gauge {
	return &gauge{g.Gauge.With(labelValues...).(*prometheus.Gauge)}
}

type histogram struct{ *prometheus.Histogram }

func (h *histogram) With(labelValues ...string) metrics.Histogram {
	return &histogram{h.Histogram.With(labelValues...).(*prometheus.Histogram)}
}
