/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/identity"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
)

// Kind tells what an envelope carries
type Kind string

const (
	// KindBindings carries the anonymous keys of the initiator, answered by KindAck
	KindBindings Kind = "bindings"
	KindAck      Kind = "ack"
	// KindProposal carries a transaction to sign, answered by KindSignatures
	KindProposal   Kind = "proposal"
	KindSignatures Kind = "signatures"
	// KindFinal carries the notarized transaction
	KindFinal Kind = "final"
)

// Envelope is the message exchanged between initiator and responders
type Envelope struct {
	Kind        Kind                `json:"kind"`
	Transaction []byte              `json:"transaction,omitempty"`
	Signatures  []*tx.Signature     `json:"signatures,omitempty"`
	Bindings    []*identity.Binding `json:"bindings,omitempty"`
}
