/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/assert"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/session"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// ShapeChecker tells whether a responder accepts to sign a proposed transaction
type ShapeChecker func(context view.Context, t *tx.Transaction) error

// RespondView is the counterpart of CommitView: it signs the proposal if acceptable,
// then waits for the notarized transaction and stores it
type RespondView struct {
	check ShapeChecker
}

func NewRespondView(check ShapeChecker) *RespondView {
	return &RespondView{check: check}
}

func (r *RespondView) Call(context view.Context) (interface{}, error) {
	svc, err := GetService(context)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	command := "unknown"
	res, err := func() (*tx.Transaction, error) {
		signed, err := context.RunView(NewSignView(r.check))
		if err != nil {
			return nil, err
		}
		result := signed.(*SignResult)
		if c, err := result.Transaction.IOUCommand(); err == nil {
			command = c.Type
		}
		if result.Final {
			return result.Transaction, nil
		}
		final, err := context.RunView(NewReceiveFinalityView(result.Transaction))
		if err != nil {
			return nil, err
		}
		return final.(*tx.Transaction), nil
	}()
	svc.Metrics.Processes.With(roleLabel, responderRole, commandLabel, command, outcomeLabel, outcomeOf(err)).Add(1)
	svc.Metrics.Duration.With(roleLabel, responderRole, commandLabel, command).Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Infof("[%s] responder failed: %s", svc.Me, err)
		return nil, err
	}
	return res, nil
}

// SignResult is the outcome of SignView
type SignResult struct {
	Transaction *tx.Transaction
	// Final is true when the initiator delivered the notarized transaction directly
	Final bool
}

// SignView applies the identity bindings sent by the initiator, then verifies and signs the proposal.
// A notarized transaction received in place of a proposal is stored right away.
type SignView struct {
	check ShapeChecker
}

func NewSignView(check ShapeChecker) *SignView {
	return &SignView{check: check}
}

func (s *SignView) Call(context view.Context) (interface{}, error) {
	svc, err := GetService(context)
	if err != nil {
		return nil, err
	}
	js := session.JSON(context)
	for {
		env := &Envelope{}
		if err := js.ReceiveWithTimeout(env, svc.Timeouts.Session); err != nil {
			return nil, errors.WithMessagef(err, "failed receiving from [%s]", context.Session().Info().Caller)
		}
		switch env.Kind {
		case KindBindings:
			if err := svc.Resolver.Apply(context.Context(), env.Bindings); err != nil {
				return nil, err
			}
			if err := js.Send(&Envelope{Kind: KindAck}); err != nil {
				return nil, err
			}
		case KindFinal:
			t, err := tx.FromBytes(env.Transaction)
			if err != nil {
				return nil, err
			}
			if err := svc.Finalize(context.Context(), t); err != nil {
				return nil, err
			}
			return &SignResult{Transaction: t, Final: true}, nil
		case KindProposal:
			t, err := s.sign(context, svc, env)
			if err != nil {
				return nil, err
			}
			signatures := make([]*tx.Signature, 0, len(t.Signatures))
			for _, sig := range t.Signatures {
				if svc.Keys.IsMe(context.Context(), sig.Signer) {
					signatures = append(signatures, sig)
				}
			}
			if err := js.Send(&Envelope{Kind: KindSignatures, Signatures: signatures}); err != nil {
				return nil, err
			}
			return &SignResult{Transaction: t}, nil
		default:
			return nil, errors.Errorf("unexpected message [%s]", env.Kind)
		}
	}
}

func (s *SignView) sign(context view.Context, svc *Service, env *Envelope) (*tx.Transaction, error) {
	t, err := tx.FromBytes(env.Transaction)
	if err != nil {
		return nil, errors.Wrapf(errors2.ErrValidation, "malformed proposal: %s", err)
	}
	if err := svc.Contracts.Verify(t); err != nil {
		return nil, err
	}
	if err := t.VerifySignatures(svc.Keys, false); err != nil {
		return nil, errors.Wrapf(errors2.ErrValidation, "%s", err)
	}
	if s.check != nil {
		if err := s.check(context, t); err != nil {
			return nil, errors.WithMessagef(err, "refusing to sign [%s]", t.ID)
		}
	}
	signed, err := svc.SignAsMe(context.Context(), t)
	if err != nil {
		return nil, err
	}
	assert.NotEmpty(signed, "no signature by this node required on [%s]", t.ID)
	logger.Debugf("[%s] signed [%s] with %v", svc.Me, t.ID, signed)
	return t, nil
}

// ReceiveFinalityView waits for the notarized version of the signed transaction.
// When the initiator does not deliver it in time, the notary is asked for it.
type ReceiveFinalityView struct {
	tx *tx.Transaction
}

func NewReceiveFinalityView(t *tx.Transaction) *ReceiveFinalityView {
	return &ReceiveFinalityView{tx: t}
}

func (r *ReceiveFinalityView) Call(context view.Context) (interface{}, error) {
	svc, err := GetService(context)
	if err != nil {
		return nil, err
	}
	final, err := r.receive(context, svc)
	if err != nil {
		return nil, err
	}
	if final.ID != r.tx.ID {
		return nil, errors.Errorf("expected transaction [%s], got [%s]", r.tx.ID, final.ID)
	}
	if err := svc.Finalize(context.Context(), final); err != nil {
		return nil, err
	}
	return final, nil
}

func (r *ReceiveFinalityView) receive(context view.Context, svc *Service) (*tx.Transaction, error) {
	env := &Envelope{}
	err := session.JSON(context).ReceiveWithTimeout(env, svc.Timeouts.Finality)
	switch {
	case err == nil:
		if env.Kind != KindFinal {
			return nil, errors.Errorf("expected notarized transaction, got [%s]", env.Kind)
		}
		return tx.FromBytes(env.Transaction)
	case errors.HasCause(err, session.ErrTimeout), errors.HasCause(err, session.ErrClosed):
		logger.Infof("[%s] not delivered, asking notary [%s]", r.tx.ID, r.tx.Notary)
		var final *tx.Transaction
		err := assert.Retry(context.Context(), 3, 100*time.Millisecond, func() error {
			var err error
			final, err = svc.Lookup(context.Context(), r.tx.Notary, r.tx.ID)
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(errors2.ErrTransport, "[%s] neither delivered nor notarized: %s", r.tx.ID, err)
		}
		return final, nil
	default:
		return nil, errors.WithMessagef(err, "process [%s] aborted", r.tx.ID)
	}
}
