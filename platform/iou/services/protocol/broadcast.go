/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/session"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	"golang.org/x/sync/errgroup"
)

// BroadcastView sends the notarized transaction to the passed parties in parallel.
// It returns the parties that could not be reached, a failed delivery does not fail the view.
type BroadcastView struct {
	tx      *tx.Transaction
	parties []view.Identity
}

func NewBroadcastView(t *tx.Transaction, parties []view.Identity) *BroadcastView {
	return &BroadcastView{tx: t, parties: parties}
}

func (b *BroadcastView) Call(context view.Context) (interface{}, error) {
	raw, err := b.tx.Bytes()
	if err != nil {
		return nil, err
	}
	final := &Envelope{Kind: KindFinal, Transaction: raw}

	failures := make([]error, len(b.parties))
	var g errgroup.Group
	for i, party := range b.parties {
		i, party := i, party
		g.Go(func() error {
			js, err := session.NewJSON(context, context.Initiator(), party)
			if err == nil {
				err = js.Send(final)
			}
			if err != nil {
				failures[i] = errors.WithMessagef(err, "failed delivering [%s] to [%s]", b.tx.ID, party)
			}
			return failures[i]
		})
	}
	if err := g.Wait(); err != nil {
		logger.Debugf("broadcast of [%s] incomplete, first failure: %s", b.tx.ID, err)
	}

	undelivered := []view.Identity{}
	for i, err := range failures {
		if err != nil {
			logger.Warnf("[%s] not delivered to [%s], it can be re-queried from notary [%s]: %s", b.tx.ID, b.parties[i], b.tx.Notary, err)
			undelivered = append(undelivered, b.parties[i])
		}
	}
	return undelivered, nil
}
