/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"context"

	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// ParentContext is a context views can be nested in
type ParentContext interface {
	DisposableContext
	// Cleanup invokes the callbacks registered with OnError
	Cleanup()
}

// ChildContext is the context of a nested view. It shares sessions, services and identity
// with its parent, it may run under a different go context, and it keeps its own error callbacks.
type ChildContext struct {
	ParentContext

	goContext context.Context
	onError   []func()
}

// NewChildContext returns a child of parent. A nil goContext keeps the parent's one.
func NewChildContext(parent ParentContext, goContext context.Context) *ChildContext {
	return &ChildContext{ParentContext: parent, goContext: goContext}
}

func (c *ChildContext) Context() context.Context {
	if c.goContext == nil {
		return c.ParentContext.Context()
	}
	return c.goContext
}

func (c *ChildContext) RunView(v view.View, opts ...view.RunViewOption) (interface{}, error) {
	return RunViewNow(c, v, opts...)
}

func (c *ChildContext) OnError(f func()) {
	c.onError = append(c.onError, f)
}

func (c *ChildContext) Cleanup() {
	logger.Debugf("cleaning up child context [%s][%d]", c.ID(), len(c.onError))
	for _, f := range c.onError {
		safeInvoke(f)
	}
}
