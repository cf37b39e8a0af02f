/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"context"
	"reflect"
	"runtime/debug"
	"sync"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/comm"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/metrics"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/tracing"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	"go.opentelemetry.io/otel/trace"
)

var logger = logging.MustGetLogger("view-sdk.manager")

// Manager runs initiator views and dispatches incoming sessions to the registered responders
type Manager struct {
	serviceProvider      *ServiceProvider
	commLayer            CommLayer
	me                   view.Identity
	registry             *Registry
	tracer               trace.Tracer
	metrics              *Metrics
	localIdentityChecker LocalIdentityChecker

	contexts   map[string]DisposableContext
	contextsMu sync.RWMutex
	responders sync.WaitGroup
}

func NewManager(
	serviceProvider *ServiceProvider,
	commLayer CommLayer,
	me view.Identity,
	registry *Registry,
	tracerProvider trace.TracerProvider,
	metricsProvider metrics.Provider,
	localIdentityChecker LocalIdentityChecker,
) *Manager {
	return &Manager{
		serviceProvider: serviceProvider,
		commLayer:       commLayer,
		me:              me,
		registry:        registry,
		contexts:        map[string]DisposableContext{},

		tracer:               tracerProvider.Tracer("calls", tracing.WithLabels("view", SuccessLabel, ViewLabel, InitiatorViewLabel)),
		metrics:              newMetrics(metricsProvider),
		localIdentityChecker: localIdentityChecker,
	}
}

// GetManager returns an instance of *Manager, if available, an error otherwise
func GetManager(sp view.ServiceProvider) (*Manager, error) {
	s, err := sp.GetService(reflect.TypeOf((*Manager)(nil)))
	if err != nil {
		return nil, err
	}
	return s.(*Manager), nil
}

func (cm *Manager) Me() view.Identity {
	return cm.me
}

func (cm *Manager) RegisterFactory(id string, factory Factory) error {
	return cm.registry.RegisterFactory(id, factory)
}

func (cm *Manager) NewView(id string, in []byte) (view.View, error) {
	return cm.registry.NewView(id, in)
}

func (cm *Manager) RegisterResponder(responder view.View, initiatedBy interface{}) error {
	return cm.registry.RegisterResponder(responder, initiatedBy)
}

func (cm *Manager) GetResponder(initiatedBy interface{}) (view.View, error) {
	return cm.registry.GetResponder(initiatedBy)
}

// Initiate builds the view bound to id with the passed input and runs it as initiator
func (cm *Manager) Initiate(ctx context.Context, id string, in []byte) (interface{}, error) {
	v, err := cm.registry.NewView(id, in)
	if err != nil {
		return nil, err
	}
	return cm.InitiateView(ctx, v)
}

// InitiateView runs the passed view as initiator in a fresh context
func (cm *Manager) InitiateView(ctx context.Context, v view.View) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	viewContext, err := NewContextForInitiator(
		"",
		ctx,
		cm.serviceProvider,
		cm.commLayer,
		cm.me,
		v,
		cm.tracer,
		cm.localIdentityChecker,
	)
	if err != nil {
		return nil, err
	}
	c := NewChildContext(viewContext, nil)
	cm.putContext(c.ID(), c)
	defer cm.deleteContext(c.ID())

	logger.Debugf("[%s] InitiateView [view:%s], [ContextID:%s]", cm.me, logging.Identifier(v), c.ID())
	res, err := c.RunView(v)
	if err != nil {
		logger.Debugf("[%s] InitiateView [view:%s], [ContextID:%s] failed [%s]", cm.me, logging.Identifier(v), c.ID(), err)
		return nil, err
	}
	logger.Debugf("[%s] InitiateView [view:%s], [ContextID:%s] terminated", cm.me, logging.Identifier(v), c.ID())
	return res, nil
}

// Context returns the view.Context with the passed id, if still running
func (cm *Manager) Context(contextID string) (view.Context, error) {
	cm.contextsMu.RLock()
	defer cm.contextsMu.RUnlock()
	viewCtx, ok := cm.contexts[contextID]
	if !ok {
		return nil, errors.Errorf("context %s not found", contextID)
	}
	return viewCtx, nil
}

// Respond runs the responder bound to the caller view of the session.
// It is invoked by the comm layer when the first message arrives.
func (cm *Manager) Respond(session *comm.LocalSession) {
	cm.responders.Add(1)
	defer cm.responders.Done()

	info := session.Info()
	responder, err := cm.registry.ExistResponderForCaller(info.CallerViewID)
	if err != nil {
		logger.Errorf("[%s] no responder exists for [%s]: [%s]", cm.me, info.CallerViewID, err)
		if err := session.SendError([]byte(err.Error())); err != nil {
			logger.Debugf("failed notifying missing responder: [%s]", err)
		}
		session.Close()
		return
	}

	if err := cm.respond(responder, session); err != nil {
		logger.Errorf("[%s] error during respond [%s]", cm.me, err)
	}
}

// Wait blocks until all the running responders have returned
func (cm *Manager) Wait() {
	cm.responders.Wait()
}

func (cm *Manager) respond(responder view.View, session *comm.LocalSession) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("respond triggered panic: %s\n%s\n", r, debug.Stack())
			err = errors.Errorf("failed responding [%s]", r)
		}
	}()

	info := session.Info()
	viewContext, err := NewContext(
		context.Background(),
		cm.serviceProvider,
		session.ContextID(),
		cm.commLayer,
		cm.me,
		session,
		info.Caller,
		cm.tracer,
		cm.localIdentityChecker,
	)
	if err != nil {
		return errors.WithMessagef(err, "failed creating context for [%s]", session.ContextID())
	}
	c := NewChildContext(viewContext, nil)
	key := c.ID() + ":" + info.ID
	cm.putContext(key, c)
	defer cm.deleteContext(key)

	logger.Debugf("[%s] Respond [from:%s], [sessionID:%s], [contextID:%s], [view:%s]", cm.me, info.Caller, info.ID, c.ID(), logging.Identifier(responder))
	if _, err := c.RunView(responder); err != nil {
		logger.Debugf("[%s] Respond Failure [from:%s], [sessionID:%s], [contextID:%s] [%s]", cm.me, info.Caller, info.ID, c.ID(), err)
		// try to send error back to caller
		if err := session.SendError([]byte(err.Error())); err != nil {
			logger.Debugf("failed sending error back to [%s]: [%s]", info.Caller, err)
		}
	}
	return nil
}

func (cm *Manager) putContext(id string, c DisposableContext) {
	cm.contextsMu.Lock()
	defer cm.contextsMu.Unlock()
	cm.contexts[id] = c
	cm.metrics.Contexts.Set(float64(len(cm.contexts)))
}

// deleteContext removes a context from the manager and calls Dispose on the context.
func (cm *Manager) deleteContext(contextID string) {
	cm.contextsMu.Lock()
	defer cm.contextsMu.Unlock()

	logger.Debugf("[%s] delete context [contextID:%s]", cm.me, contextID)
	if viewCtx, ok := cm.contexts[contextID]; ok {
		viewCtx.Dispose()
		delete(cm.contexts, contextID)
		cm.metrics.Contexts.Set(float64(len(cm.contexts)))
	}
}
