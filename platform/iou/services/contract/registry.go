/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package contract

import (
	"reflect"
	"sort"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/driver"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// Registry verifies a transaction against the contracts of all the states it touches
type Registry struct {
	contracts map[string]driver.Contract
}

func NewRegistry() *Registry {
	return &Registry{contracts: map[string]driver.Contract{}}
}

// GetRegistry returns the contract registry registered in the passed service provider
func GetRegistry(sp view.ServiceProvider) (*Registry, error) {
	s, err := sp.GetService(reflect.TypeOf((*Registry)(nil)))
	if err != nil {
		return nil, err
	}
	return s.(*Registry), nil
}

// Register binds a contract to its name
func (r *Registry) Register(name string, contract driver.Contract) {
	r.contracts[name] = contract
}

// Verify runs every contract the transaction refers to, either through a command or a state.
// The transaction is rejected with ErrValidation on the first failure.
func (r *Registry) Verify(t *tx.Transaction) error {
	names := map[string]struct{}{}
	for _, c := range t.Commands {
		names[c.Contract] = struct{}{}
	}
	if len(t.IOUInputs())+len(t.IOUOutputs()) != 0 {
		names[tx.IOUContract] = struct{}{}
	}
	if len(t.CashInputs())+len(t.CashOutputs()) != 0 {
		names[tx.CashContract] = struct{}{}
	}
	if len(names) == 0 {
		return errors.Wrapf(errors2.ErrValidation, "empty transaction")
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	for _, name := range sorted {
		c, ok := r.contracts[name]
		if !ok {
			return errors.Wrapf(errors2.ErrValidation, "unknown contract [%s]", name)
		}
		if err := c.Verify(t); err != nil {
			return err
		}
	}
	return nil
}
