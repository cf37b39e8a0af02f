/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"reflect"
	"strings"
	"sync"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
)

var ErrServiceNotFound = errors.New("service not found")

// ServiceProvider is the registry of the services of a node. Services are looked up by type:
// a struct type matches the service registered as a pointer to it, an interface type matches
// the first registered service implementing it.
type ServiceProvider struct {
	mutex    sync.RWMutex
	services []interface{}
	resolved map[reflect.Type]interface{}
}

func NewServiceProvider() *ServiceProvider {
	return &ServiceProvider{resolved: map[reflect.Type]interface{}{}}
}

// GetService accepts either a reflect.Type or a value of the wanted type,
// pointer types are dereferenced first.
func (sp *ServiceProvider) GetService(v interface{}) (interface{}, error) {
	typ, ok := v.(reflect.Type)
	if !ok {
		typ = reflect.TypeOf(v)
	}
	if typ == nil {
		return nil, errors.Wrap(ErrServiceNotFound, "nil type")
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	sp.mutex.RLock()
	s, ok := sp.resolved[typ]
	sp.mutex.RUnlock()
	if ok {
		return s, nil
	}

	sp.mutex.Lock()
	defer sp.mutex.Unlock()
	for _, s := range sp.services {
		if matches(reflect.TypeOf(s), typ) {
			sp.resolved[typ] = s
			return s, nil
		}
	}
	return nil, errors.Wrapf(ErrServiceNotFound, "no [%s/%s] among %s", typ.PkgPath(), typ.Name(), sp.list())
}

// RegisterService adds service. Registering twice a service of the same concrete type fails.
func (sp *ServiceProvider) RegisterService(service interface{}) error {
	if service == nil {
		return errors.New("nil service")
	}
	sp.mutex.Lock()
	defer sp.mutex.Unlock()

	st := reflect.TypeOf(service)
	for _, s := range sp.services {
		if reflect.TypeOf(s) == st {
			return errors.Errorf("service [%s] registered already", logging.Identifier(service))
		}
	}
	logger.Debugf("register service [%s]", logging.Identifier(service))
	sp.services = append(sp.services, service)
	return nil
}

func matches(st, wanted reflect.Type) bool {
	if wanted.Kind() == reflect.Interface {
		return st.Implements(wanted)
	}
	return st.Kind() == reflect.Ptr && st.Elem() == wanted
}

func (sp *ServiceProvider) list() string {
	names := make([]string, len(sp.services))
	for i, s := range sp.services {
		names[i] = logging.Identifier(s).String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}
