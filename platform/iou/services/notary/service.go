/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"context"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/runner"
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/kvs"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

var logger = logging.MustGetLogger("iou.notary")

const (
	spentPrefix    = "spent"
	txPrefix       = "tx"
	sequenceKey    = "sequence"
	proofNamespace = "notary"
)

// Signer signs the ordering proofs
type Signer interface {
	Sign(message []byte) ([]byte, error)
}

const (
	batchCapacity = 64
	batchTimeout  = 2 * time.Millisecond
)

// Service is a single-writer notary. It keeps the set of consumed state references
// and the transactions it ordered, so that participants can fetch them again.
// Concurrent requests are decided in batches, one batch at a time.
type Service struct {
	identity view.Identity
	signer   Signer
	verifier tx.Verifier
	store    *kvs.KVS
	decider  runner.BatchExecutor[*request, *tx.Proof]
}

type request struct {
	ctx context.Context
	tx  *tx.Transaction
}

// NewService returns a notary signing with signer under identity.
// Signatures on the transactions are checked with verifier.
func NewService(identity view.Identity, signer Signer, verifier tx.Verifier, store *kvs.KVS) *Service {
	s := &Service{
		identity: identity,
		signer:   signer,
		verifier: verifier,
		store:    store.Namespace(proofNamespace),
	}
	s.decider = runner.NewBatchExecutor(s.decide, batchCapacity, batchTimeout)
	return s
}

func (s *Service) Identity() view.Identity {
	return s.identity
}

// Notarize orders the passed transaction. It is idempotent: a transaction notarized
// already gets back its original proof.
func (s *Service) Notarize(ctx context.Context, t *tx.Transaction) (*tx.Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(errors2.ErrCancelled, "notarization of [%s]: %s", t.ID, err)
	}
	if !t.Notary.Equal(s.identity) {
		return nil, errors.Errorf("transaction [%s] assigned to notary [%s], this is [%s]", t.ID, t.Notary, s.identity)
	}
	if err := t.CheckID(); err != nil {
		return nil, err
	}
	if err := t.VerifySignatures(s.verifier, true); err != nil {
		return nil, errors.WithMessagef(err, "rejecting [%s]", t.ID)
	}
	proof, err := s.decider.Execute(&request{ctx: ctx, tx: t})
	if errors.HasCause(err, runner.ErrClosed) {
		return nil, errors.Wrapf(errors2.ErrTransport, "notary [%s] is closed", s.identity)
	}
	return proof, err
}

// Close stops ordering. The requests arriving afterwards fail as unreachable.
func (s *Service) Close() {
	s.decider.Close()
	logger.Infof("notary [%s] closed", s.identity)
}

// decide orders a batch. Requests are handled in arrival order, the inputs consumed
// by an earlier request of the same batch count as spent. All the accepted
// transactions are recorded with a single write.
func (s *Service) decide(batch []*request) []runner.Output[*tx.Proof] {
	outputs := make([]runner.Output[*tx.Proof], len(batch))
	ctx := context.WithoutCancel(batch[0].ctx)

	var sequence uint64
	if s.store.Exists(ctx, sequenceKey) {
		if err := s.store.Get(ctx, sequenceKey, &sequence); err != nil {
			return failAll(outputs, err)
		}
	}

	puts := map[string]interface{}{}
	accepted := map[string]*tx.Proof{}
	var order []int
	for i, r := range batch {
		proof, err := s.order(ctx, r.tx, puts, accepted, &sequence)
		if err != nil {
			outputs[i].Err = err
			continue
		}
		outputs[i].Val = proof
		order = append(order, i)
	}
	if len(puts) == 0 {
		return outputs
	}

	puts[sequenceKey] = sequence
	if err := s.store.PutBatch(ctx, puts, nil); err != nil {
		err = errors.WithMessagef(err, "failed recording batch of [%d]", len(batch))
		for _, i := range order {
			outputs[i] = runner.Output[*tx.Proof]{Err: err}
		}
		return outputs
	}
	for _, i := range order {
		logger.Debugf("[%s] notarized with sequence [%d]", batch[i].tx.ID, outputs[i].Val.Sequence)
	}
	return outputs
}

// order decides a single transaction against the store and the pending writes of its batch
func (s *Service) order(ctx context.Context, t *tx.Transaction, puts map[string]interface{}, accepted map[string]*tx.Proof, sequence *uint64) (*tx.Proof, error) {
	if proof, ok := accepted[t.ID]; ok {
		return proof, nil
	}
	txKey, err := kvs.CreateCompositeKey(txPrefix, []string{t.ID})
	if err != nil {
		return nil, err
	}
	if s.store.Exists(ctx, txKey) {
		stored, err := s.get(ctx, txKey)
		if err != nil {
			return nil, err
		}
		logger.Debugf("[%s] already notarized", t.ID)
		return stored.Proof, nil
	}

	spent := make([]string, len(t.Inputs))
	for i, in := range t.Inputs {
		k, err := kvs.CreateCompositeKey(spentPrefix, []string{in.Ref.String()})
		if err != nil {
			return nil, err
		}
		spender, consumed := puts[k].(string)
		if !consumed && s.store.Exists(ctx, k) {
			if err := s.store.Get(ctx, k, &spender); err != nil {
				return nil, err
			}
			consumed = true
		}
		if consumed {
			logger.Infof("[%s] rejected, input [%s] consumed by [%s]", t.ID, in.Ref, spender)
			return nil, errors.Wrapf(errors2.ErrNotaryConflict, "input [%s] consumed already by [%s]", in.Ref, spender)
		}
		spent[i] = k
	}

	next := *sequence + 1
	sigma, err := s.signer.Sign(tx.ProofMessage(t.ID, next))
	if err != nil {
		return nil, errors.Wrapf(err, "failed signing proof for [%s]", t.ID)
	}
	proof := &tx.Proof{Notary: s.identity, Sequence: next, Signature: sigma}

	notarized := *t
	notarized.Proof = proof
	raw, err := notarized.Bytes()
	if err != nil {
		return nil, err
	}
	for _, k := range spent {
		puts[k] = t.ID
	}
	puts[txKey] = raw
	accepted[t.ID] = proof
	*sequence = next
	return proof, nil
}

func failAll(outputs []runner.Output[*tx.Proof], err error) []runner.Output[*tx.Proof] {
	for i := range outputs {
		outputs[i].Err = err
	}
	return outputs
}

// Lookup returns the notarized transaction with the passed id
func (s *Service) Lookup(ctx context.Context, txID string) (*tx.Transaction, error) {
	txKey, err := kvs.CreateCompositeKey(txPrefix, []string{txID})
	if err != nil {
		return nil, err
	}
	if !s.store.Exists(ctx, txKey) {
		return nil, errors.Errorf("transaction [%s] not notarized", txID)
	}
	return s.get(ctx, txKey)
}

func (s *Service) get(ctx context.Context, key string) (*tx.Transaction, error) {
	var raw []byte
	if err := s.store.Get(ctx, key, &raw); err != nil {
		return nil, errors.WithMessagef(err, "failed loading [%s]", key)
	}
	return tx.FromBytes(raw)
}
