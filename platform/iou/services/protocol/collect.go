/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/session"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// CollectSignaturesView asks every party, one after the other, to sign the transaction.
// Progress is reported after each party, so a resumed process asks only the parties still missing.
type CollectSignaturesView struct {
	tx       *tx.Transaction
	parties  []view.Identity
	progress func(*tx.Transaction) error
}

func NewCollectSignaturesView(t *tx.Transaction, parties []view.Identity, progress func(*tx.Transaction) error) *CollectSignaturesView {
	return &CollectSignaturesView{tx: t, parties: parties, progress: progress}
}

func (c *CollectSignaturesView) Call(context view.Context) (interface{}, error) {
	svc, err := GetService(context)
	if err != nil {
		return nil, err
	}
	raw, err := c.tx.Bytes()
	if err != nil {
		return nil, err
	}
	for _, party := range c.parties {
		js, err := session.NewJSON(context, context.Initiator(), party)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed opening session to [%s]", party)
		}
		logger.Debugf("[%s] request signatures from [%s]", c.tx.ID, party)
		if err := js.Send(&Envelope{Kind: KindProposal, Transaction: raw}); err != nil {
			return nil, errors.WithMessagef(err, "failed sending proposal to [%s]", party)
		}
		answer := &Envelope{}
		if err := js.ReceiveWithTimeout(answer, svc.Timeouts.Session); err != nil {
			return nil, errors.WithMessagef(err, "no signatures from [%s]", party)
		}
		if answer.Kind != KindSignatures || len(answer.Signatures) == 0 {
			return nil, errors.Wrapf(errors2.ErrSignatureRefused, "[%s] answered [%s] without signatures", party, answer.Kind)
		}
		for _, sig := range answer.Signatures {
			if err := c.append(svc, sig); err != nil {
				return nil, errors.WithMessagef(err, "invalid signature from [%s]", party)
			}
		}
		if c.progress != nil {
			if err := c.progress(c.tx); err != nil {
				return nil, err
			}
		}
	}
	return c.tx, nil
}

func (c *CollectSignaturesView) append(svc *Service, sig *tx.Signature) error {
	if !c.tx.RequiredSigners().Contain(sig.Signer) {
		return errors.Errorf("[%s] is not a required signer", sig.Signer)
	}
	if err := svc.Keys.Verify(sig.Signer, c.tx.SigningMessage(), sig.Value); err != nil {
		return err
	}
	return c.tx.AppendSignature(sig)
}
