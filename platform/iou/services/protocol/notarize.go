/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// NotarizeView submits the fully signed transaction to its notary and returns the ordering proof
type NotarizeView struct {
	tx *tx.Transaction
}

func NewNotarizeView(t *tx.Transaction) *NotarizeView {
	return &NotarizeView{tx: t}
}

func (n *NotarizeView) Call(context view.Context) (interface{}, error) {
	svc, err := GetService(context)
	if err != nil {
		return nil, err
	}
	notary, err := svc.Notaries.Notary(n.tx.Notary)
	if err != nil {
		return nil, errors.WithMessagef(err, "notary of [%s] not available", n.tx.ID)
	}
	logger.Debugf("[%s] submit to notary [%s]", n.tx.ID, n.tx.Notary)
	proof, err := notary.Notarize(context.Context(), n.tx)
	if err != nil {
		return nil, errors.WithMessagef(err, "notarization of [%s] rejected", n.tx.ID)
	}
	return proof, nil
}
