/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/kvs"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// State is a step of the commitment of a transaction
type State string

const (
	Draft                     State = "Draft"
	LocallySigned             State = "LocallySigned"
	AwaitingCounterSignatures State = "AwaitingCounterSignatures"
	Notarized                 State = "Notarized"
	Finalized                 State = "Finalized"
	Failed                    State = "Failed"
)

var transitions = map[State][]State{
	Draft:                     {LocallySigned, Failed},
	LocallySigned:             {AwaitingCounterSignatures, Failed},
	AwaitingCounterSignatures: {AwaitingCounterSignatures, Notarized, Failed},
	Notarized:                 {Finalized},
	Finalized:                 {Finalized},
}

// Terminal returns true for the states a process never leaves
func (s State) Terminal() bool {
	return s == Finalized || s == Failed
}

// Agreed returns true once the notary ordered the transaction
func (s State) Agreed() bool {
	return s == Notarized || s == Finalized
}

func (s State) canMoveTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Checkpoint is the persisted progress of an initiator
type Checkpoint struct {
	FlowID      string          `json:"flowId"`
	Command     string          `json:"command"`
	State       State           `json:"state"`
	Transaction []byte          `json:"transaction"`
	Parties     []view.Identity `json:"parties,omitempty"`
	Undelivered []view.Identity `json:"undelivered,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Updated     time.Time       `json:"updated"`
}

// Tx decodes the transaction of the checkpoint
func (c *Checkpoint) Tx() (*tx.Transaction, error) {
	return tx.FromBytes(c.Transaction)
}

const checkpointPrefix = "checkpoint"

// Checkpoints persists the checkpoints of the initiators of a node
type Checkpoints struct {
	store *kvs.KVS
	mutex sync.Mutex
}

func NewCheckpoints(store *kvs.KVS) *Checkpoints {
	return &Checkpoints{store: store.Namespace("protocol")}
}

// Start records a new process in Draft for the passed transaction
func (c *Checkpoints) Start(ctx context.Context, t *tx.Transaction) (*Checkpoint, error) {
	command, err := t.IOUCommand()
	if err != nil {
		return nil, err
	}
	raw, err := t.Bytes()
	if err != nil {
		return nil, err
	}
	cp := &Checkpoint{FlowID: t.ID, Command: command.Type, State: Draft, Transaction: raw}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	k, err := c.key(cp.FlowID)
	if err != nil {
		return nil, err
	}
	if c.store.Exists(ctx, k) {
		return nil, errors.Errorf("process [%s] exists already", cp.FlowID)
	}
	return cp, c.put(ctx, k, cp)
}

// Move persists the passed checkpoint in the next state, together with the current transaction
func (c *Checkpoints) Move(ctx context.Context, cp *Checkpoint, next State, t *tx.Transaction) error {
	if !cp.State.canMoveTo(next) {
		return errors.Errorf("process [%s] cannot move from [%s] to [%s]", cp.FlowID, cp.State, next)
	}
	if t != nil {
		raw, err := t.Bytes()
		if err != nil {
			return err
		}
		cp.Transaction = raw
	}
	cp.State = next

	c.mutex.Lock()
	defer c.mutex.Unlock()
	k, err := c.key(cp.FlowID)
	if err != nil {
		return err
	}
	return c.put(ctx, k, cp)
}

// Load returns the checkpoint of the passed process
func (c *Checkpoints) Load(ctx context.Context, flowID string) (*Checkpoint, error) {
	k, err := c.key(flowID)
	if err != nil {
		return nil, err
	}
	cp := &Checkpoint{}
	if err := c.store.Get(ctx, k, cp); err != nil {
		return nil, errors.WithMessagef(err, "process [%s] not found", flowID)
	}
	return cp, nil
}

// Pending returns the processes that did not reach a terminal state,
// plus the finalized ones whose broadcast did not reach every party
func (c *Checkpoints) Pending(ctx context.Context) ([]*Checkpoint, error) {
	it, err := c.store.GetByPartialCompositeID(ctx, checkpointPrefix, nil)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var res []*Checkpoint
	for it.HasNext() {
		cp := &Checkpoint{}
		if _, err := it.Next(cp); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling checkpoint")
		}
		if !cp.State.Terminal() || (cp.State == Finalized && len(cp.Undelivered) != 0) {
			res = append(res, cp)
		}
	}
	return res, nil
}

func (c *Checkpoints) key(flowID string) (string, error) {
	return kvs.CreateCompositeKey(checkpointPrefix, []string{flowID})
}

func (c *Checkpoints) put(ctx context.Context, k string, cp *Checkpoint) error {
	cp.Updated = time.Now()
	if err := c.store.Put(ctx, k, cp); err != nil {
		return errors.WithMessagef(err, "failed checkpointing [%s] in [%s]", cp.FlowID, cp.State)
	}
	logger.Debugf("[%s] checkpoint [%s]", cp.FlowID, cp.State)
	return nil
}
