/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package prometheus

import (
	"testing"

	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/metrics"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderRegistersInstruments(t *testing.T) {
	registry := prom.NewRegistry()
	p := NewProvider(registry)

	c := p.NewCounter(metrics.CounterOpts{
		Namespace:  "iou",
		Subsystem:  "test",
		Name:       "processes",
		Help:       "processes",
		LabelNames: []string{"outcome"},
	})
	c.With("outcome", "finalized").Add(2)

	g := p.NewGauge(metrics.GaugeOpts{Namespace: "iou", Subsystem: "test", Name: "open"})
	g.Set(3)

	h := p.NewHistogram(metrics.HistogramOpts{Namespace: "iou", Subsystem: "test", Name: "latency", Buckets: []float64{0.1, 1}})
	h.Observe(0.5)

	families, err := registry.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[f.GetName()] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[f.GetName()] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				values[f.GetName()] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	assert.Equal(t, 2.0, values["iou_test_processes"])
	assert.Equal(t, 3.0, values["iou_test_open"])
	assert.Equal(t, 1.0, values["iou_test_latency"])

	// the same instrument again is the one registered first
	again := p.NewCounter(metrics.CounterOpts{
		Namespace:  "iou",
		Subsystem:  "test",
		Name:       "processes",
		Help:       "processes",
		LabelNames: []string{"outcome"},
	})
	again.With("outcome", "finalized").Add(1)
	families, err = registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "iou_test_processes" {
			assert.Equal(t, 3.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}

	// a different instrument under a taken name does not
	assert.Panics(t, func() {
		p.NewGauge(metrics.GaugeOpts{Namespace: "iou", Subsystem: "test", Name: "processes"})
	})
}

func TestDefaultNamespace(t *testing.T) {
	registry := prom.NewRegistry()
	NewProvider(registry).NewGauge(metrics.GaugeOpts{Subsystem: "view", Name: "contexts"}).Set(1)

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "iou_view_contexts", families[0].GetName())
}
