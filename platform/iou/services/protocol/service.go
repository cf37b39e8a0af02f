/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"context"
	"reflect"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/driver"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/identity"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

var logger = logging.MustGetLogger("iou.protocol")

// Keys gives access to the signing keys of this node and to the verification of any signature
type Keys interface {
	IsMe(ctx context.Context, id view.Identity) bool
	Sign(ctx context.Context, id view.Identity, message []byte) ([]byte, error)
	Verify(identity view.Identity, message, sigma []byte) error
}

// Timeouts bound the suspension points of the protocol
type Timeouts struct {
	// Session bounds the wait for an acknowledgment or a counter-signature
	Session time.Duration
	// Finality bounds the wait of a responder for the notarized transaction
	Finality time.Duration
}

// Service collects what the commitment protocol needs on a node
type Service struct {
	Me          view.Identity
	Keys        Keys
	Contracts   driver.Contract
	Notaries    driver.NotaryDirectory
	Resolver    *identity.Resolver
	Checkpoints *Checkpoints
	Timeouts    Timeouts
	Metrics     *Metrics
	Listeners   []driver.FinalityListener
}

func NewService(
	me view.Identity,
	keys Keys,
	contracts driver.Contract,
	notaries driver.NotaryDirectory,
	resolver *identity.Resolver,
	checkpoints *Checkpoints,
	timeouts Timeouts,
	metrics *Metrics,
	listeners ...driver.FinalityListener,
) *Service {
	return &Service{
		Me:          me,
		Keys:        keys,
		Contracts:   contracts,
		Notaries:    notaries,
		Resolver:    resolver,
		Checkpoints: checkpoints,
		Timeouts:    timeouts,
		Metrics:     metrics,
		Listeners:   listeners,
	}
}

// GetService returns the protocol service registered in the passed service provider
func GetService(sp view.ServiceProvider) (*Service, error) {
	s, err := sp.GetService(reflect.TypeOf((*Service)(nil)))
	if err != nil {
		return nil, err
	}
	return s.(*Service), nil
}

// SignAsMe attaches the signatures of every required signer this node holds the key of
func (s *Service) SignAsMe(ctx context.Context, t *tx.Transaction) (view.Identities, error) {
	var signed view.Identities
	for _, signer := range t.MissingSigners() {
		if !s.Keys.IsMe(ctx, signer) {
			continue
		}
		sigma, err := s.Keys.Sign(ctx, signer, t.SigningMessage())
		if err != nil {
			return nil, errors.WithMessagef(err, "failed signing [%s] with [%s]", t.ID, signer)
		}
		if err := t.AppendSignature(&tx.Signature{Signer: signer, Value: sigma}); err != nil {
			return nil, err
		}
		signed = append(signed, signer)
	}
	return signed, nil
}

// Finalize checks the notarized transaction and hands it to the finality listeners
func (s *Service) Finalize(ctx context.Context, t *tx.Transaction) error {
	if err := t.CheckID(); err != nil {
		return err
	}
	if err := t.VerifyProof(s.Keys); err != nil {
		return err
	}
	if err := t.VerifySignatures(s.Keys, true); err != nil {
		return err
	}
	for _, l := range s.Listeners {
		if err := l.OnFinalized(ctx, t); err != nil {
			return errors.WithMessagef(err, "failed storing [%s]", t.ID)
		}
	}
	logger.Debugf("[%s] stored finalized transaction [%s]", s.Me, t.ID)
	return nil
}

// Lookup asks the notary of the passed transaction for its notarized version
func (s *Service) Lookup(ctx context.Context, notary view.Identity, txID string) (*tx.Transaction, error) {
	n, err := s.Notaries.Notary(notary)
	if err != nil {
		return nil, err
	}
	return n.Lookup(ctx, txID)
}
