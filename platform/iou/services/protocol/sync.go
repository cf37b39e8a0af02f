/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/identity"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/session"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// SyncIdentitiesView sends the bindings of the anonymous keys of this node to every party
// and waits for each of them to acknowledge
type SyncIdentitiesView struct {
	bindings []*identity.Binding
	parties  []view.Identity
}

func NewSyncIdentitiesView(bindings []*identity.Binding, parties []view.Identity) *SyncIdentitiesView {
	return &SyncIdentitiesView{bindings: bindings, parties: parties}
}

func (s *SyncIdentitiesView) Call(context view.Context) (interface{}, error) {
	svc, err := GetService(context)
	if err != nil {
		return nil, err
	}
	for _, party := range s.parties {
		js, err := session.NewJSON(context, context.Initiator(), party)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed opening session to [%s]", party)
		}
		if err := js.Send(&Envelope{Kind: KindBindings, Bindings: s.bindings}); err != nil {
			return nil, errors.WithMessagef(err, "failed sending bindings to [%s]", party)
		}
		ack := &Envelope{}
		if err := js.ReceiveWithTimeout(ack, svc.Timeouts.Session); err != nil {
			return nil, errors.WithMessagef(err, "no acknowledgment of bindings from [%s]", party)
		}
		if ack.Kind != KindAck {
			return nil, errors.Errorf("expected acknowledgment from [%s], got [%s]", party, ack.Kind)
		}
		logger.Debugf("[%d] bindings acknowledged by [%s]", len(s.bindings), party)
	}
	return nil, nil
}
