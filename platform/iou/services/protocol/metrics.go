/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/metrics"
)

const (
	commandLabel = "command"
	outcomeLabel = "outcome"
	roleLabel    = "role"

	initiatorRole = "initiator"
	responderRole = "responder"
)

type Metrics struct {
	Processes   metrics.Counter
	Duration    metrics.Histogram
	Undelivered metrics.Counter
}

func NewMetrics(p metrics.Provider) *Metrics {
	return &Metrics{
		Processes: p.NewCounter(metrics.CounterOpts{
			Namespace:  "iou",
			Subsystem:  "protocol",
			Name:       "processes",
			Help:       "The number of commitment processes by final state",
			LabelNames: []string{roleLabel, commandLabel, outcomeLabel},
		}),
		Duration: p.NewHistogram(metrics.HistogramOpts{
			Namespace:  "iou",
			Subsystem:  "protocol",
			Name:       "duration",
			Help:       "The duration in seconds of the commitment processes",
			LabelNames: []string{roleLabel, commandLabel},
			Buckets:    []float64{.005, .01, .05, .1, .5, 1, 5, 10, 30},
		}),
		Undelivered: p.NewCounter(metrics.CounterOpts{
			Namespace: "iou",
			Subsystem: "protocol",
			Name:      "undelivered",
			Help:      "The number of finalized transactions not delivered to a party",
		}),
	}
}
