/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils"
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	"go.opentelemetry.io/otel/trace"
)

// CommLayer opens sessions towards remote parties
type CommLayer interface {
	NewSession(from view.Identity, callerViewID, contextID string, to view.Identity) (view.Session, error)
}

// LocalIdentityChecker tells whether an identity belongs to the local node
type LocalIdentityChecker interface {
	IsMe(id view.Identity) bool
}

// DisposableContext extends view.Context with additional functions
type DisposableContext interface {
	view.Context
	Dispose()
}

// Context is the root view context of an initiator or of a responder
type Context struct {
	context   context.Context
	sp        *ServiceProvider
	id        string
	session   view.Session
	initiator view.View
	me        view.Identity
	caller    view.Identity
	commLayer CommLayer

	sessionsMu         sync.Mutex
	sessions           map[string]view.Session
	errorCallbackFuncs []func()

	tracer               trace.Tracer
	localIdentityChecker LocalIdentityChecker
}

// NewContextForInitiator returns a context to run the passed initiator view
func NewContextForInitiator(
	contextID string,
	context context.Context,
	sp *ServiceProvider,
	commLayer CommLayer,
	party view.Identity,
	initiator view.View,
	tracer trace.Tracer,
	localIdentityChecker LocalIdentityChecker,
) (*Context, error) {
	if len(contextID) == 0 {
		contextID = utils.GenerateUUID()
	}
	ctx, err := NewContext(context, sp, contextID, commLayer, party, nil, nil, tracer, localIdentityChecker)
	if err != nil {
		return nil, err
	}
	ctx.initiator = initiator
	return ctx, nil
}

// NewContext returns a new context. When session is not nil, the context is a responder context.
func NewContext(
	context context.Context,
	sp *ServiceProvider,
	contextID string,
	commLayer CommLayer,
	party view.Identity,
	session view.Session,
	caller view.Identity,
	tracer trace.Tracer,
	localIdentityChecker LocalIdentityChecker,
) (*Context, error) {
	if context == nil {
		return nil, errors.Errorf("a context should not be nil [%s]", string(debug.Stack()))
	}
	return &Context{
		context:              context,
		id:                   contextID,
		commLayer:            commLayer,
		session:              session,
		me:                   party,
		sessions:             map[string]view.Session{},
		caller:               caller,
		sp:                   sp,
		localIdentityChecker: localIdentityChecker,
		tracer:               tracer,
	}, nil
}

func (c *Context) StartSpanFrom(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, opts...)
}

func (c *Context) ID() string {
	return c.id
}

func (c *Context) Initiator() view.View {
	return c.initiator
}

func (c *Context) RunView(v view.View, opts ...view.RunViewOption) (res interface{}, err error) {
	return RunViewNow(c, v, opts...)
}

func (c *Context) Me() view.Identity {
	return c.me
}

func (c *Context) IsMe(id view.Identity) bool {
	if c.me.Equal(id) {
		return true
	}
	return c.localIdentityChecker != nil && c.localIdentityChecker.IsMe(id)
}

func (c *Context) Caller() view.Identity {
	return c.caller
}

func (c *Context) GetSession(caller view.View, party view.Identity) (view.Session, error) {
	if party.IsNone() {
		return nil, errors.New("no party provided")
	}
	viewID := GetIdentifier(caller)

	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()

	key := sessionKey(viewID, party)
	if s, ok := c.sessions[key]; ok && !s.Info().Closed {
		logger.Debugf("[%s] reusing session [%s:%s]", c.me, viewID, party)
		return s, nil
	}
	if c.session != nil && c.caller.Equal(party) && !c.session.Info().Closed {
		// answering back to the party that opened this context
		return c.session, nil
	}
	if caller == nil {
		return nil, errors.Errorf("a session should already exist, passed nil view")
	}

	logger.Debugf("[%s] create session [%s][%s:%s]", c.me, c.id, viewID, party)
	s, err := c.commLayer.NewSession(c.me, viewID, c.id, party)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed opening session to [%s]", party)
	}
	c.sessions[key] = s
	return s, nil
}

func (c *Context) Session() view.Session {
	return c.session
}

func (c *Context) GetService(v interface{}) (interface{}, error) {
	return c.sp.GetService(v)
}

func (c *Context) OnError(callback func()) {
	c.errorCallbackFuncs = append(c.errorCallbackFuncs, callback)
}

func (c *Context) Context() context.Context {
	return c.context
}

// Dispose closes every session opened by this context and the default session
func (c *Context) Dispose() {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()

	for key, s := range c.sessions {
		logger.Debugf("[%s] close session [%s]", c.me, s.Info().ID)
		s.Close()
		delete(c.sessions, key)
	}
	if c.session != nil {
		c.session.Close()
	}
}

func (c *Context) Cleanup() {
	logger.Debugf("cleaning up context [%s][%d]", c.ID(), len(c.errorCallbackFuncs))
	for _, callbackFunc := range c.errorCallbackFuncs {
		safeInvoke(callbackFunc)
	}
}

func safeInvoke(f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debugf("function [%v] panicked [%s]", f, r)
		}
	}()
	f()
}

func sessionKey(viewID string, party view.Identity) string {
	return viewID + "|" + party.UniqueID()
}
