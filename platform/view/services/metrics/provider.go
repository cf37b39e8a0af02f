/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

// Provider creates metric instruments
type Provider interface {
	NewCounter(CounterOpts) Counter
	NewGauge(GaugeOpts) Gauge
	NewHistogram(HistogramOpts) Histogram
}

// Counter is a monotonically increasing value
type Counter interface {
	// With is used to provide label values when updating a Counter. This must be
	// used to provide values for all LabelNames provided to CounterOpts.
	With(labelValues ...string) Counter

	// Add increments a counter value.
	Add(delta float64)
}

// CounterOpts contains the information used to create a Counter.
type CounterOpts struct {
	// Namespace, Subsystem and Name are components of the fully-qualified name of the metric.
	// An empty Namespace selects the default one of the provider.
	Namespace string
	Subsystem string
	Name      string

	// Help provides information about this metric.
	Help string

	// LabelNames provides the names of the labels that can be attached to this metric.
	// When a metric is recorded, label values must be provided for each of these label names.
	LabelNames []string
}

// Gauge is a value that can go up and down
type Gauge interface {
	With(labelValues ...string) Gauge
	Add(delta float64)
	Set(value float64)
}

// GaugeOpts contains the information used to create a Gauge.
type GaugeOpts struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	LabelNames []string
}

// Histogram records observations in buckets
type Histogram interface {
	With(labelValues ...string) Histogram
	Observe(value float64)
}

// HistogramOpts contains the information used to create a Histogram.
type HistogramOpts struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	Buckets    []float64
	LabelNames []string
}
