/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// RunViewOptions are the options of Context.RunView
type RunViewOptions struct {
	// Ctx replaces the go context of the caller
	Ctx context.Context
}

type RunViewOption func(*RunViewOptions) error

func CompileRunViewOptions(opts ...RunViewOption) (*RunViewOptions, error) {
	o := &RunViewOptions{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithContext runs the view under ctx instead of the caller's go context,
// e.g. to let a view outlive the cancellation of its caller.
func WithContext(ctx context.Context) RunViewOption {
	return func(o *RunViewOptions) error {
		o.Ctx = ctx
		return nil
	}
}

// Context is the environment a view runs in
type Context interface {
	// StartSpanFrom starts a span, child of the one in ctx
	StartSpanFrom(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)

	// GetService returns the service registered for the type of v
	GetService(v interface{}) (interface{}, error)

	// ID identifies the interaction this context is part of, it is shared by initiator and responders
	ID() string

	// RunView runs v as a child of this context
	RunView(v View, opts ...RunViewOption) (interface{}, error)

	// Me returns the well-known identity of the node
	Me() Identity

	// IsMe returns true if the node holds the keys of id
	IsMe(id Identity) bool

	// Initiator returns the view that started the interaction, nil for responders
	Initiator() View

	// GetSession returns the session to party opened on behalf of caller.
	// A responder gets its default session back when party is the one that contacted it.
	GetSession(caller View, party Identity) (Session, error)

	// Session returns the session a responder was contacted through, nil for initiators
	Session() Session

	// Context returns the go context of the running view
	Context() context.Context

	// OnError registers a callback invoked when the running view fails or panics
	OnError(callback func())
}
