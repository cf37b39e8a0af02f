/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cash

import (
	"context"
	"testing"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	mem "github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/driver/memory"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/kvs"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/sig"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gbp(q string) states.Amount {
	return states.MustAmount(q, "GBP")
}

func newWallet(t *testing.T) (*Wallet, *sig.Service, view.Identity) {
	sigs := sig.NewService(nil)
	me, err := sigs.NewIdentity(context.Background())
	require.NoError(t, err)
	return NewWallet(me, sigs, kvs.New(mem.New(), "")), sigs, me
}

func TestIssueAndBalance(t *testing.T) {
	ctx := context.Background()
	w, sigs, me := newWallet(t)
	notary := view.Identity("notary")

	balance, err := w.Balance(ctx, "GBP")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	issued, err := w.Issue(ctx, gbp("30"), notary)
	require.NoError(t, err)
	assert.NoError(t, issued.VerifySignatures(sigs, true))
	owner := issued.CashOutputs()[0].Owner
	assert.False(t, owner.Equal(me))
	assert.True(t, sigs.IsMe(ctx, owner))

	_, err = w.Issue(ctx, gbp("20"), notary)
	require.NoError(t, err)
	_, err = w.Issue(ctx, states.MustAmount("5", "EUR"), notary)
	require.NoError(t, err)
	_, err = w.Issue(ctx, gbp("0"), notary)
	assert.Error(t, err)

	balance, err = w.Balance(ctx, "GBP")
	require.NoError(t, err)
	assert.True(t, balance.Equal(gbp("50")))

	// finalizing twice does not duplicate coins
	require.NoError(t, w.OnFinalized(ctx, issued))
	balance, err = w.Balance(ctx, "GBP")
	require.NoError(t, err)
	assert.True(t, balance.Equal(gbp("50")))
}

func TestGenerateSpend(t *testing.T) {
	ctx := context.Background()
	w, sigs, me := newWallet(t)
	payee := view.Identity("payee")
	notary := view.Identity("notary")

	for _, q := range []string{"30", "20", "15"} {
		_, err := w.Issue(ctx, gbp(q), notary)
		require.NoError(t, err)
	}

	spend, err := w.GenerateSpend(ctx, gbp("40"), me, payee)
	require.NoError(t, err)
	assert.NotEmpty(t, spend.Inputs)
	assert.Equal(t, []view.Identity{notary}, spend.Notaries)

	var paid, change, consumed states.Amount = gbp("0"), gbp("0"), gbp("0")
	for _, out := range spend.Outputs {
		if out.Owner.Equal(payee) {
			paid, _ = paid.Add(out.Amount)
			continue
		}
		assert.True(t, sigs.IsMe(ctx, out.Owner))
		change, _ = change.Add(out.Amount)
	}
	for _, in := range spend.Inputs {
		consumed, _ = consumed.Add(in.State.Cash.Amount)
		assert.True(t, view.Identities(spend.Signers).Contain(in.State.Cash.Owner))
	}
	assert.True(t, paid.Equal(gbp("40")))
	total, _ := paid.Add(change)
	assert.True(t, total.Equal(consumed))

	// the spend is a valid cash move
	t2 := tx.New(notary)
	for _, in := range spend.Inputs {
		t2.AddCashInput(in.Ref, in.State.Cash)
	}
	for _, out := range spend.Outputs {
		t2.AddCashOutput(out)
	}
	t2.AddCommand(tx.CashContract, tx.CashMove, spend.Signers...)
	require.NoError(t, NewContract().Verify(t2))

	// once final, the wallet holds the change only
	require.NoError(t, t2.Seal())
	require.NoError(t, w.OnFinalized(ctx, t2))
	balance, err := w.Balance(ctx, "GBP")
	require.NoError(t, err)
	assert.True(t, balance.Equal(gbp("25")))

	_, err = w.GenerateSpend(ctx, gbp("26"), me, payee)
	assert.True(t, errors.HasCause(err, errors2.ErrInsufficientFunds))
	_, err = w.GenerateSpend(ctx, gbp("1"), payee, me)
	assert.True(t, errors.HasCause(err, errors2.ErrUnauthorized))
	_, err = w.GenerateSpend(ctx, gbp("0"), me, payee)
	assert.True(t, errors.HasCause(err, errors2.ErrValidation))
}

func TestLateTransactionDoesNotRestoreSpentCoins(t *testing.T) {
	ctx := context.Background()
	w, sigs, _ := newWallet(t)
	notary := view.Identity("notary")
	payee := view.Identity("payee")

	owner, err := sigs.NewAnonymousIdentity(ctx)
	require.NoError(t, err)
	received := tx.New(notary)
	received.AddCashOutput(&states.Cash{Amount: gbp("30"), Owner: owner, Issuer: view.Identity("bank")})
	received.AddCommand(tx.CashContract, tx.CashIssue, view.Identity("bank"))
	require.NoError(t, received.Seal())

	spent := tx.New(notary)
	spent.AddCashInput(received.OutputRef(0), received.CashOutputs()[0])
	spent.AddCashOutput(&states.Cash{Amount: gbp("30"), Owner: payee, Issuer: view.Identity("bank")})
	spent.AddCommand(tx.CashContract, tx.CashMove, owner)
	require.NoError(t, spent.Seal())

	// the spend is finalized before the transaction paying the coin
	require.NoError(t, w.OnFinalized(ctx, spent))
	require.NoError(t, w.OnFinalized(ctx, received))

	balance, err := w.Balance(ctx, "GBP")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}
