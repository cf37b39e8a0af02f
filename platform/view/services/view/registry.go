/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"sync"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// Factory is an alias for view.Factory
type Factory = view.Factory

// Registry keeps track of the view factories and of the responders, the latter
// indexed by the identifier of the initiator view they answer to.
type Registry struct {
	mutex      sync.RWMutex
	factories  map[string]Factory
	responders map[string]view.View
}

func NewRegistry() *Registry {
	return &Registry{
		factories:  map[string]Factory{},
		responders: map[string]view.View{},
	}
}

// RegisterFactory binds the passed factory to the passed id
func (r *Registry) RegisterFactory(id string, factory Factory) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	logger.Debugf("register view factory for [%s]", id)
	if _, ok := r.factories[id]; ok {
		return errors.Errorf("factory for [%s] already registered", id)
	}
	r.factories[id] = factory
	return nil
}

// NewView returns a view built by the factory bound to id on input in
func (r *Registry) NewView(id string, in []byte) (v view.View, err error) {
	r.mutex.RLock()
	factory, ok := r.factories[id]
	r.mutex.RUnlock()
	if !ok {
		return nil, errors.Errorf("no factory found for id [%s]", id)
	}

	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = errors.Errorf("failed creating view [%s]: [%v]", id, r)
		}
	}()
	return factory.NewView(in)
}

// RegisterResponder binds responder to the initiator. The initiator can be
// a view or the string identifier of a view.
func (r *Registry) RegisterResponder(responder view.View, initiatedBy interface{}) error {
	id, err := initiatorIdentifier(initiatedBy)
	if err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, ok := r.responders[id]; ok {
		return errors.Errorf("responder for [%s] already registered", id)
	}
	logger.Debugf("register responder [%s] for [%s]", GetIdentifier(responder), id)
	r.responders[id] = responder
	return nil
}

// GetResponder returns the responder bound to the passed initiator
func (r *Registry) GetResponder(initiatedBy interface{}) (view.View, error) {
	id, err := initiatorIdentifier(initiatedBy)
	if err != nil {
		return nil, err
	}
	return r.ExistResponderForCaller(id)
}

// ExistResponderForCaller returns the responder bound to the view with the passed identifier
func (r *Registry) ExistResponderForCaller(caller string) (view.View, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	responder, ok := r.responders[caller]
	if !ok {
		return nil, errors.Errorf("no responder exists for [%s]", caller)
	}
	return responder, nil
}

func initiatorIdentifier(initiatedBy interface{}) (string, error) {
	switch t := initiatedBy.(type) {
	case view.View:
		return GetIdentifier(t), nil
	case string:
		return t, nil
	default:
		return "", errors.Errorf("initiatedBy must be a view or a string, got [%T]", initiatedBy)
	}
}
