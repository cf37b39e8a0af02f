/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"context"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/session"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// Outcome is the result of a commitment process that reached Finalized
type Outcome struct {
	FlowID      string
	Transaction *tx.Transaction
	// Undelivered lists the parties the notarized transaction could not be sent to.
	// They can re-query it from the notary.
	Undelivered []view.Identity
}

// CommitView drives a sealed transaction from Draft to Finalized.
// Every transition is checkpointed, a process interrupted before Finalized can be resumed with ResumeView.
type CommitView struct {
	tx         *tx.Transaction
	checkpoint *Checkpoint
}

func NewCommitView(t *tx.Transaction) *CommitView {
	return &CommitView{tx: t}
}

func (c *CommitView) Call(context view.Context) (interface{}, error) {
	svc, err := GetService(context)
	if err != nil {
		return nil, err
	}
	cp := c.checkpoint
	if cp == nil {
		if cp, err = svc.Checkpoints.Start(context.Context(), c.tx); err != nil {
			return nil, err
		}
	}
	t, err := cp.Tx()
	if err != nil {
		return nil, err
	}
	p := &process{svc: svc, context: context, ctx: context.Context(), cp: cp, tx: t}
	return p.run()
}

type process struct {
	svc     *Service
	context view.Context
	ctx     context.Context
	cp      *Checkpoint
	tx      *tx.Transaction
	// contacted are the parties a session was opened to
	contacted   view.Identities
	broadcasted bool
}

func (p *process) run() (*Outcome, error) {
	start := time.Now()
	outcome, err := p.loop()
	p.svc.Metrics.Processes.With(roleLabel, initiatorRole, commandLabel, p.cp.Command, outcomeLabel, outcomeOf(err)).Add(1)
	p.svc.Metrics.Duration.With(roleLabel, initiatorRole, commandLabel, p.cp.Command).Observe(time.Since(start).Seconds())
	return outcome, err
}

func (p *process) loop() (*Outcome, error) {
	for {
		var err error
		switch p.cp.State {
		case Draft:
			err = p.signLocally()
		case LocallySigned:
			err = p.prepareParties()
		case AwaitingCounterSignatures:
			err = p.collectAndNotarize()
		case Notarized:
			err = p.finalize()
		case Finalized:
			if len(p.cp.Undelivered) != 0 && !p.broadcasted {
				err = p.broadcast(p.cp.Undelivered)
				break
			}
			logger.Infof("[%s] process [%s] finalized", p.cp.Command, p.cp.FlowID)
			return &Outcome{FlowID: p.cp.FlowID, Transaction: p.tx, Undelivered: p.cp.Undelivered}, nil
		case Failed:
			return nil, errors.Errorf("process [%s] failed: %s", p.cp.FlowID, p.cp.Reason)
		default:
			return nil, errors.Errorf("process [%s] in unknown state [%s]", p.cp.FlowID, p.cp.State)
		}
		if err != nil {
			return nil, p.fail(err)
		}
	}
}

// signLocally runs the contracts before any interaction with other nodes, then signs with the keys of this node
func (p *process) signLocally() error {
	if err := p.svc.Contracts.Verify(p.tx); err != nil {
		return err
	}
	signed, err := p.svc.SignAsMe(p.ctx, p.tx)
	if err != nil {
		return err
	}
	logger.Debugf("[%s] signed by %v", p.tx.ID, signed)
	return p.svc.Checkpoints.Move(p.ctx, p.cp, LocallySigned, p.tx)
}

// prepareParties resolves the nodes to talk to and, when some of the keys of this node are anonymous,
// tells the counterparties which well-known identity stands behind them
func (p *process) prepareParties() error {
	parties, err := p.parties()
	if err != nil {
		return err
	}
	p.cp.Parties = parties

	bindings, err := p.svc.Resolver.Bind(p.ctx, p.svc.Me, p.tx.RequiredSigners()...)
	if err != nil {
		return err
	}
	if len(bindings) != 0 {
		p.contacted = p.contacted.Union(parties...)
		if _, err := p.context.RunView(NewSyncIdentitiesView(bindings, parties)); err != nil {
			return err
		}
	}
	return p.svc.Checkpoints.Move(p.ctx, p.cp, AwaitingCounterSignatures, p.tx)
}

// parties returns the nodes, other than this one, that either owe a signature or participate in the records
func (p *process) parties() ([]view.Identity, error) {
	var res view.Identities
	for _, signer := range p.tx.MissingSigners() {
		party := p.svc.Resolver.WellKnown(p.ctx, signer)
		if party.Equal(p.svc.Me) {
			return nil, errors.Errorf("missing signature by [%s], a key this node does not hold", signer)
		}
		res = res.Union(party)
	}
	for _, participant := range p.tx.Participants() {
		if participant.Equal(p.svc.Me) || p.svc.Keys.IsMe(p.ctx, participant) {
			continue
		}
		res = res.Union(p.svc.Resolver.WellKnown(p.ctx, participant))
	}
	return res, nil
}

func (p *process) collectAndNotarize() error {
	pending := view.Identities{}
	for _, signer := range p.tx.MissingSigners() {
		pending = pending.Union(p.svc.Resolver.WellKnown(p.ctx, signer))
	}
	p.contacted = p.contacted.Union(pending...)
	_, err := p.context.RunView(NewCollectSignaturesView(p.tx, pending, func(t *tx.Transaction) error {
		return p.svc.Checkpoints.Move(p.ctx, p.cp, AwaitingCounterSignatures, t)
	}))
	if err != nil {
		return err
	}
	if missing := p.tx.MissingSigners(); len(missing) != 0 {
		return errors.Wrapf(errors2.ErrSignatureRefused, "no signature by %v", missing)
	}

	proof, err := p.context.RunView(NewNotarizeView(p.tx))
	if err != nil {
		return err
	}
	p.tx.Proof = proof.(*tx.Proof)
	return p.svc.Checkpoints.Move(p.ctx, p.cp, Notarized, p.tx)
}

// finalize stores the notarized transaction and delivers it to the parties.
// The transaction is agreed already, cancellation of the caller is no longer honoured.
func (p *process) finalize() error {
	if err := p.svc.Finalize(context.WithoutCancel(p.ctx), p.tx); err != nil {
		return err
	}
	return p.broadcast(p.cp.Parties)
}

// broadcast sends the notarized transaction to the passed parties and records the ones not reached
func (p *process) broadcast(parties []view.Identity) error {
	ctx := context.WithoutCancel(p.ctx)
	undelivered, err := p.context.RunView(NewBroadcastView(p.tx, parties), view.WithContext(ctx))
	if err != nil {
		return err
	}
	p.broadcasted = true
	p.cp.Undelivered = undelivered.([]view.Identity)
	if len(p.cp.Undelivered) != 0 {
		p.svc.Metrics.Undelivered.Add(float64(len(p.cp.Undelivered)))
	}
	return p.svc.Checkpoints.Move(ctx, p.cp, Finalized, nil)
}

// fail records the failure. A process that did not reach Notarized aborts for every party contacted so far,
// and it stays resumable when the failure is of the transport or a cancellation.
func (p *process) fail(err error) error {
	err = classify(err)
	if p.cp.State.Agreed() {
		logger.Warnf("[%s] process [%s] notarized, finalization pending: %s", p.cp.Command, p.cp.FlowID, err)
		return err
	}
	p.abort(err)
	if stalled(err) {
		logger.Infof("[%s] process [%s] stalled in [%s]: %s", p.cp.Command, p.cp.FlowID, p.cp.State, err)
		return err
	}
	p.cp.Reason = err.Error()
	if err2 := p.svc.Checkpoints.Move(context.WithoutCancel(p.ctx), p.cp, Failed, nil); err2 != nil {
		logger.Warnf("failed recording failure of [%s]: %s", p.cp.FlowID, err2)
	}
	logger.Infof("[%s] process [%s] failed: %s", p.cp.Command, p.cp.FlowID, err)
	return err
}

func (p *process) abort(err error) {
	for _, party := range p.contacted {
		s, err2 := p.context.GetSession(p.context.Initiator(), party)
		if err2 != nil {
			continue
		}
		if err2 := session.NewFromSession(p.context, s).SendError(err.Error()); err2 != nil {
			logger.Debugf("failed notifying abort to [%s]: %s", party, err2)
		}
	}
}
