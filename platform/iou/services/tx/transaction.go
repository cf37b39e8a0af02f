/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tx

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils"
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/hash"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// StateRef points to an output of a transaction
type StateRef struct {
	TxID  string `json:"txId"`
	Index int    `json:"index"`
}

func (r StateRef) String() string {
	return r.TxID + ":" + strconv.Itoa(r.Index)
}

// State holds exactly one of the state types this ledger knows about
type State struct {
	IOU  *states.IOU  `json:"iou,omitempty"`
	Cash *states.Cash `json:"cash,omitempty"`
}

// Input is a consumed state together with its reference
type Input struct {
	Ref   StateRef `json:"ref"`
	State *State   `json:"state"`
}

// Signature is the signature of Signer over the transaction id
type Signature struct {
	Signer view.Identity `json:"signer"`
	Value  []byte        `json:"value"`
}

// Proof is the ordering proof the notary attaches to a transaction it accepted
type Proof struct {
	Notary    view.Identity `json:"notary"`
	Sequence  uint64        `json:"sequence"`
	Signature []byte        `json:"signature"`
}

// Verifier checks the signature of an identity
type Verifier interface {
	Verify(identity view.Identity, message, sigma []byte) error
}

// Transaction is an atomic proposal to consume and produce states.
// The ID covers everything but the signatures and the proof.
type Transaction struct {
	ID         string        `json:"id"`
	Nonce      string        `json:"nonce"`
	Notary     view.Identity `json:"notary"`
	Inputs     []*Input      `json:"inputs,omitempty"`
	Outputs    []*State      `json:"outputs,omitempty"`
	Commands   []*Command    `json:"commands,omitempty"`
	Signatures []*Signature  `json:"signatures,omitempty"`
	Proof      *Proof        `json:"proof,omitempty"`
}

// New returns an empty transaction to be ordered by the passed notary
func New(notary view.Identity) *Transaction {
	return &Transaction{
		Nonce:  utils.GenerateUUID(),
		Notary: notary,
	}
}

// FromBytes unmarshals a transaction and checks that its id matches its content
func FromBytes(raw []byte) (*Transaction, error) {
	t := &Transaction{}
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, errors.Wrap(err, "failed unmarshalling transaction")
	}
	if err := t.CheckID(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transaction) Bytes() ([]byte, error) {
	return json.Marshal(t)
}

func (t *Transaction) AddIOUInput(ref StateRef, iou *states.IOU) {
	t.Inputs = append(t.Inputs, &Input{Ref: ref, State: &State{IOU: iou}})
}

func (t *Transaction) AddCashInput(ref StateRef, cash *states.Cash) {
	t.Inputs = append(t.Inputs, &Input{Ref: ref, State: &State{Cash: cash}})
}

func (t *Transaction) AddIOUOutput(iou *states.IOU) {
	t.Outputs = append(t.Outputs, &State{IOU: iou})
}

func (t *Transaction) AddCashOutput(cash *states.Cash) {
	t.Outputs = append(t.Outputs, &State{Cash: cash})
}

// AddCommand attaches a command of the passed contract with its explicit signers
func (t *Transaction) AddCommand(contract string, commandType string, signers ...view.Identity) {
	t.Commands = append(t.Commands, &Command{
		Contract: contract,
		Type:     commandType,
		Signers:  view.Identities(signers).Set(),
	})
}

// Seal computes the id of the transaction. The content must not change afterwards.
func (t *Transaction) Seal() error {
	id, err := t.computeID()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// CheckID returns an error if the id does not match the content
func (t *Transaction) CheckID() error {
	id, err := t.computeID()
	if err != nil {
		return err
	}
	if id != t.ID {
		return errors.Errorf("transaction id mismatch, expected [%s], got [%s]", id, t.ID)
	}
	return nil
}

func (t *Transaction) computeID() (string, error) {
	raw, err := json.Marshal(struct {
		Nonce    string        `json:"nonce"`
		Notary   view.Identity `json:"notary"`
		Inputs   []*Input      `json:"inputs"`
		Outputs  []*State      `json:"outputs"`
		Commands []*Command    `json:"commands"`
	}{t.Nonce, t.Notary, t.Inputs, t.Outputs, t.Commands})
	if err != nil {
		return "", errors.Wrap(err, "failed marshalling transaction content")
	}
	return hash.SHA256Hex(raw), nil
}

// OutputRef returns the reference of the i-th output
func (t *Transaction) OutputRef(i int) StateRef {
	return StateRef{TxID: t.ID, Index: i}
}

// RequiredSigners returns the union of the signers of all commands
func (t *Transaction) RequiredSigners() view.Identities {
	var res view.Identities
	for _, c := range t.Commands {
		res = res.Union(c.Signers...)
	}
	return res
}

// MissingSigners returns the required signers whose signature is not attached yet
func (t *Transaction) MissingSigners() view.Identities {
	return t.RequiredSigners().Filter(func(id view.Identity) bool { return !t.SignedBy(id) })
}

func (t *Transaction) SignedBy(id view.Identity) bool {
	for _, s := range t.Signatures {
		if s.Signer.Equal(id) {
			return true
		}
	}
	return false
}

// AppendSignature attaches the passed signature. A second signature by the same signer is ignored.
func (t *Transaction) AppendSignature(signature *Signature) error {
	if len(t.ID) == 0 {
		return errors.New("transaction not sealed")
	}
	if !t.RequiredSigners().Contain(signature.Signer) {
		return errors.Errorf("[%s] is not a required signer", signature.Signer)
	}
	if t.SignedBy(signature.Signer) {
		return nil
	}
	t.Signatures = append(t.Signatures, signature)
	return nil
}

// SigningMessage returns the bytes every signer signs
func (t *Transaction) SigningMessage() []byte {
	return []byte(t.ID)
}

// VerifySignatures checks every attached signature.
// When complete is true, it also checks that every required signer signed.
func (t *Transaction) VerifySignatures(v Verifier, complete bool) error {
	required := t.RequiredSigners()
	for _, s := range t.Signatures {
		if !required.Contain(s.Signer) {
			return errors.Errorf("unexpected signature by [%s]", s.Signer)
		}
		if err := v.Verify(s.Signer, t.SigningMessage(), s.Value); err != nil {
			return errors.WithMessagef(err, "invalid signature on [%s]", t.ID)
		}
	}
	if complete {
		if missing := t.MissingSigners(); len(missing) != 0 {
			return errors.Errorf("missing signatures by %v", missing)
		}
	}
	return nil
}

// ProofMessage returns the bytes the notary signs to order a transaction
func ProofMessage(txID string, sequence uint64) []byte {
	return []byte(fmt.Sprintf("%s|%d", txID, sequence))
}

// VerifyProof checks the ordering proof against the notary of the transaction
func (t *Transaction) VerifyProof(v Verifier) error {
	if t.Proof == nil {
		return errors.Errorf("transaction [%s] not notarized", t.ID)
	}
	if !t.Proof.Notary.Equal(t.Notary) {
		return errors.Errorf("proof by [%s], expected notary [%s]", t.Proof.Notary, t.Notary)
	}
	if err := v.Verify(t.Proof.Notary, ProofMessage(t.ID, t.Proof.Sequence), t.Proof.Signature); err != nil {
		return errors.WithMessagef(err, "invalid proof on [%s]", t.ID)
	}
	return nil
}

// IOUInputs returns the consumed obligation records
func (t *Transaction) IOUInputs() []*states.IOU {
	var res []*states.IOU
	for _, in := range t.Inputs {
		if in.State != nil && in.State.IOU != nil {
			res = append(res, in.State.IOU)
		}
	}
	return res
}

// IOUOutputs returns the produced obligation records
func (t *Transaction) IOUOutputs() []*states.IOU {
	var res []*states.IOU
	for _, out := range t.Outputs {
		if out.IOU != nil {
			res = append(res, out.IOU)
		}
	}
	return res
}

// CashInputs returns the consumed cash inputs
func (t *Transaction) CashInputs() []*Input {
	var res []*Input
	for _, in := range t.Inputs {
		if in.State != nil && in.State.Cash != nil {
			res = append(res, in)
		}
	}
	return res
}

// CashOutputs returns the produced cash states
func (t *Transaction) CashOutputs() []*states.Cash {
	var res []*states.Cash
	for _, out := range t.Outputs {
		if out.Cash != nil {
			res = append(res, out.Cash)
		}
	}
	return res
}

// Participants returns the identities entitled to see the obligation records of the transaction
func (t *Transaction) Participants() view.Identities {
	var res view.Identities
	for _, iou := range append(t.IOUInputs(), t.IOUOutputs()...) {
		res = res.Union(iou.Participants()...)
	}
	return res
}

func (t *Transaction) String() string {
	return t.ID
}
