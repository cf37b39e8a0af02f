/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package vault

import (
	"context"
	"reflect"
	"sync"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/driver"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/kvs"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

var logger = logging.MustGetLogger("iou.vault")

const (
	namespace        = "vault"
	unconsumedPrefix = "unconsumed"
	consumedPrefix   = "consumed"
	txPrefix         = "tx"
)

// Vault stores the finalized transactions of a node and indexes
// the unconsumed obligation records the node participates in.
// Every consumed ref is remembered, so that a transaction delivered after
// the one spending its outputs does not bring those outputs back.
type Vault struct {
	store      *kvs.KVS
	membership driver.LocalMembership

	mutex sync.Mutex
}

func New(store *kvs.KVS, membership driver.LocalMembership) *Vault {
	return &Vault{store: store.Namespace(namespace), membership: membership}
}

// GetVault returns the vault registered in the passed service provider
func GetVault(sp view.ServiceProvider) (*Vault, error) {
	s, err := sp.GetService(reflect.TypeOf((*Vault)(nil)))
	if err != nil {
		return nil, err
	}
	return s.(*Vault), nil
}

// FindUnconsumed returns the unconsumed versions of the record with the passed linear id
func (v *Vault) FindUnconsumed(ctx context.Context, linearID string) ([]*driver.StateAndRef, error) {
	return v.scan(ctx, []string{linearID})
}

// States returns all the unconsumed records
func (v *Vault) States(ctx context.Context) ([]*driver.StateAndRef, error) {
	return v.scan(ctx, nil)
}

func (v *Vault) scan(ctx context.Context, attrs []string) ([]*driver.StateAndRef, error) {
	it, err := v.store.GetByPartialCompositeID(ctx, unconsumedPrefix, attrs)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed scanning unconsumed states")
	}
	defer it.Close()

	var res []*driver.StateAndRef
	for it.HasNext() {
		s := &driver.StateAndRef{}
		if _, err := it.Next(s); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling state")
		}
		res = append(res, s)
	}
	return res, nil
}

// Transaction returns the finalized transaction with the passed id
func (v *Vault) Transaction(ctx context.Context, txID string) (*tx.Transaction, error) {
	k, err := kvs.CreateCompositeKey(txPrefix, []string{txID})
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := v.store.Get(ctx, k, &raw); err != nil {
		return nil, errors.WithMessagef(err, "transaction [%s] not found", txID)
	}
	return tx.FromBytes(raw)
}

// OnFinalized stores the passed transaction. Storing the same transaction twice has no effect.
func (v *Vault) OnFinalized(ctx context.Context, t *tx.Transaction) error {
	txKey, err := kvs.CreateCompositeKey(txPrefix, []string{t.ID})
	if err != nil {
		return err
	}
	v.mutex.Lock()
	defer v.mutex.Unlock()
	if v.store.Exists(ctx, txKey) {
		logger.Debugf("[%s] stored already", t.ID)
		return nil
	}

	raw, err := t.Bytes()
	if err != nil {
		return err
	}
	puts := map[string]interface{}{txKey: raw}
	var deletes []string
	for _, in := range t.Inputs {
		if in.State == nil || in.State.IOU == nil {
			continue
		}
		k, err := kvs.CreateCompositeKey(unconsumedPrefix, []string{in.State.IOU.LinearID, in.Ref.String()})
		if err != nil {
			return err
		}
		deletes = append(deletes, k)
		consumed, err := consumedKey(in.Ref)
		if err != nil {
			return err
		}
		puts[consumed] = t.ID
	}
	produced := 0
	for i, out := range t.Outputs {
		if out.IOU == nil || !v.isParticipant(ctx, out.IOU.Participants()) {
			continue
		}
		ref := t.OutputRef(i)
		consumed, err := consumedKey(ref)
		if err != nil {
			return err
		}
		if v.store.Exists(ctx, consumed) {
			logger.Debugf("[%s] spent already, skipping it", ref)
			continue
		}
		k, err := kvs.CreateCompositeKey(unconsumedPrefix, []string{out.IOU.LinearID, ref.String()})
		if err != nil {
			return err
		}
		puts[k] = &driver.StateAndRef{Ref: ref, IOU: out.IOU, Notary: t.Notary}
		produced++
	}
	if err := v.store.PutBatch(ctx, puts, deletes); err != nil {
		return errors.WithMessagef(err, "failed storing [%s]", t.ID)
	}
	logger.Debugf("[%s] stored, [%d] records consumed, [%d] produced", t.ID, len(deletes), produced)
	return nil
}

func consumedKey(ref tx.StateRef) (string, error) {
	return kvs.CreateCompositeKey(consumedPrefix, []string{ref.String()})
}

func (v *Vault) isParticipant(ctx context.Context, ids view.Identities) bool {
	for _, id := range ids {
		if v.membership.IsMe(ctx, id) {
			return true
		}
	}
	return false
}
