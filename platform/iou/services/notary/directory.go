/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"sync"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/driver"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// Directory resolves notary identities to the notaries of the network
type Directory struct {
	mutex    sync.RWMutex
	notaries map[string]driver.Notary
}

func NewDirectory() *Directory {
	return &Directory{notaries: map[string]driver.Notary{}}
}

func (d *Directory) Register(n driver.Notary) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.notaries[n.Identity().UniqueID()] = n
}

func (d *Directory) Notary(id view.Identity) (driver.Notary, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	n, ok := d.notaries[id.UniqueID()]
	if !ok {
		return nil, errors.Errorf("notary [%s] not found", id)
	}
	return n, nil
}
