/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package assembler

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/driver"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/contract"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/notary"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/settlement"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	lenderA  = view.Identity("A")
	borrower = view.Identity("B")
	lenderC  = view.Identity("C")
	n1       = view.Identity("notary")

	decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })
)

type fakeVault map[string][]*driver.StateAndRef

func (f fakeVault) FindUnconsumed(_ context.Context, linearID string) ([]*driver.StateAndRef, error) {
	return f[linearID], nil
}

func (f fakeVault) Transaction(context.Context, string) (*tx.Transaction, error) {
	return nil, errors.New("not implemented")
}

type me view.Identity

func (m me) IsMe(_ context.Context, id view.Identity) bool {
	return view.Identity(m).Equal(id)
}

type fakeCash struct {
	balance states.Amount
}

func (f *fakeCash) Balance(context.Context, string) (states.Amount, error) {
	return f.balance, nil
}

func (f *fakeCash) GenerateSpend(_ context.Context, amount states.Amount, payer, payee view.Identity) (*driver.Spend, error) {
	return &driver.Spend{
		Inputs:   []*tx.Input{{Ref: tx.StateRef{TxID: "coins"}, State: &tx.State{Cash: &states.Cash{Amount: f.balance, Owner: payer, Issuer: payer}}}},
		Outputs:  []*states.Cash{{Amount: amount, Owner: payee, Issuer: payer}},
		Signers:  []view.Identity{payer},
		Notaries: []view.Identity{n1},
	}, nil
}

func gbp(q string) states.Amount {
	return states.MustAmount(q, "GBP")
}

func newAssembler(t *testing.T, vault fakeVault, who view.Identity, balance string) *Assembler {
	selector, err := notary.NewSelector(notary.InputPolicy, n1)
	require.NoError(t, err)
	return New(vault, selector, settlement.NewReconciler(&fakeCash{balance: gbp(balance)}), me(who))
}

func verifier() *contract.Registry {
	r := contract.NewRegistry()
	r.Register(tx.IOUContract, contract.NewIOU())
	r.Register(tx.CashContract, acceptAll{})
	return r
}

type acceptAll struct{}

func (acceptAll) Verify(*tx.Transaction) error { return nil }

func stored(iou *states.IOU) *driver.StateAndRef {
	return &driver.StateAndRef{Ref: tx.StateRef{TxID: "prev"}, IOU: iou, Notary: n1}
}

func TestIssue(t *testing.T) {
	a := newAssembler(t, fakeVault{}, lenderA, "0")
	res, err := a.Issue(context.Background(), gbp("100"), lenderA, borrower)
	require.NoError(t, err)
	require.NoError(t, verifier().Verify(res))

	// a fresh obligation has nothing paid
	out := res.IOUOutputs()[0]
	expected := &states.IOU{Amount: gbp("100"), Paid: gbp("0"), Lender: lenderA, Borrower: borrower, LinearID: out.LinearID}
	assert.Empty(t, cmp.Diff(expected, out, decimalComparer))
	assert.Equal(t, n1, res.Notary)
	assert.NoError(t, res.CheckID())
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	iou := states.NewIOU(gbp("100"), lenderA, view.Identity("D"))
	vault := fakeVault{iou.LinearID: {stored(iou)}}

	// only the lender changes, all three parties sign
	res, err := newAssembler(t, vault, lenderA, "0").Transfer(ctx, iou.LinearID, lenderC)
	require.NoError(t, err)
	require.NoError(t, verifier().Verify(res))
	assert.Empty(t, cmp.Diff(iou.WithLender(lenderC), res.IOUOutputs()[0], decimalComparer))
	assert.True(t, res.RequiredSigners().Match([]view.Identity{lenderA, lenderC, view.Identity("D")}))

	_, err = newAssembler(t, vault, view.Identity("D"), "0").Transfer(ctx, iou.LinearID, lenderC)
	assert.True(t, errors.HasCause(err, errors2.ErrUnauthorized))

	_, err = newAssembler(t, vault, lenderA, "0").Transfer(ctx, "missing", lenderC)
	assert.True(t, errors.HasCause(err, errors2.ErrStateNotFound))

	vault[iou.LinearID] = append(vault[iou.LinearID], stored(iou))
	_, err = newAssembler(t, vault, lenderA, "0").Transfer(ctx, iou.LinearID, lenderC)
	assert.True(t, errors.HasCause(err, errors2.ErrAmbiguousState))
}

func TestSettle(t *testing.T) {
	ctx := context.Background()
	iou := states.NewIOU(gbp("100"), lenderA, borrower)
	vault := fakeVault{iou.LinearID: {stored(iou)}}

	// partial payment
	res, s, err := newAssembler(t, vault, borrower, "100").Settle(ctx, iou.LinearID, gbp("40"))
	require.NoError(t, err)
	require.NoError(t, verifier().Verify(res))
	assert.False(t, s.Closes())
	assert.True(t, res.IOUOutputs()[0].Paid.Equal(gbp("40")))
	command, err := res.IOUCommand()
	require.NoError(t, err)
	assert.True(t, command.Signers.Match([]view.Identity{lenderA, borrower}))
	assert.Len(t, res.CommandsOf(tx.CashContract), 1)

	// the remaining 60 close the obligation
	vault[iou.LinearID] = []*driver.StateAndRef{stored(s.Successor)}
	res, s, err = newAssembler(t, vault, borrower, "100").Settle(ctx, iou.LinearID, gbp("60"))
	require.NoError(t, err)
	require.NoError(t, verifier().Verify(res))
	assert.True(t, s.Closes())
	assert.Empty(t, res.IOUOutputs())

	// only the borrower settles
	_, _, err = newAssembler(t, vault, lenderA, "100").Settle(ctx, iou.LinearID, gbp("10"))
	assert.True(t, errors.HasCause(err, errors2.ErrUnauthorized))

	// insufficient funds
	_, _, err = newAssembler(t, vault, borrower, "5").Settle(ctx, iou.LinearID, gbp("10"))
	assert.True(t, errors.HasCause(err, errors2.ErrInsufficientFunds))

	// overpayment
	_, _, err = newAssembler(t, vault, borrower, "500").Settle(ctx, iou.LinearID, gbp("61"))
	assert.True(t, errors.HasCause(err, errors2.ErrOverpayment))
}
