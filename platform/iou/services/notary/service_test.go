/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"context"
	"sync"
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

type env struct {
	sigs             *sig.Service
	notary           *Service
	alice, bob, carl view.Identity
}

func newEnv(t *testing.T) *env {
	ctx := context.Background()
	sigs := sig.NewService(nil)
	ids := make([]view.Identity, 4)
	for i := range ids {
		id, err := sigs.NewIdentity(ctx)
		require.NoError(t, err)
		ids[i] = id
	}
	signer, err := sigs.GetSigner(ctx, ids[0])
	require.NoError(t, err)
	return &env{
		sigs:   sigs,
		notary: NewService(ids[0], signer, sigs, kvs.New(mem.New(), "")),
		alice:  ids[1],
		bob:    ids[2],
		carl:   ids[3],
	}
}

func (e *env) transfer(t *testing.T, input tx.StateRef, iou *states.IOU, newLender view.Identity) *tx.Transaction {
	out := iou.WithLender(newLender)
	res := tx.New(e.notary.Identity())
	res.AddIOUInput(input, iou)
	res.AddIOUOutput(out)
	res.AddCommand(tx.IOUContract, tx.Transfer, iou.Lender, iou.Borrower, newLender)
	require.NoError(t, res.Seal())
	for _, signer := range res.RequiredSigners() {
		sigma, err := e.sigs.Sign(context.Background(), signer, res.SigningMessage())
		require.NoError(t, err)
		require.NoError(t, res.AppendSignature(&tx.Signature{Signer: signer, Value: sigma}))
	}
	return res
}

func TestNotarize(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	iou := states.NewIOU(states.MustAmount("100", "GBP"), e.alice, e.bob)
	ref := tx.StateRef{TxID: "issue", Index: 0}

	first := e.transfer(t, ref, iou, e.carl)
	proof, err := e.notary.Notarize(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), proof.Sequence)

	// idempotent
	again, err := e.notary.Notarize(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, proof, again)

	// double spend
	second := e.transfer(t, ref, iou, e.carl)
	_, err = e.notary.Notarize(ctx, second)
	assert.True(t, errors.HasCause(err, errors2.ErrNotaryConflict), "got [%v]", err)

	// re-query
	found, err := e.notary.Lookup(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
	assert.NoError(t, found.VerifyProof(e.sigs))
	_, err = e.notary.Lookup(ctx, second.ID)
	assert.Error(t, err)

	// next transaction gets the next sequence
	next := e.transfer(t, first.OutputRef(0), first.IOUOutputs()[0], e.alice)
	proof, err = e.notary.Notarize(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), proof.Sequence)
}

func TestNotarizeRejects(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	iou := states.NewIOU(states.MustAmount("100", "GBP"), e.alice, e.bob)
	ref := tx.StateRef{TxID: "issue", Index: 0}

	unsigned := e.transfer(t, ref, iou, e.carl)
	unsigned.Signatures = unsigned.Signatures[:2]
	_, err := e.notary.Notarize(ctx, unsigned)
	assert.Error(t, err)

	other := e.transfer(t, ref, iou, e.carl)
	other.Notary = e.bob
	_, err = e.notary.Notarize(ctx, other)
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.notary.Notarize(cancelled, e.transfer(t, ref, iou, e.carl))
	assert.True(t, errors.HasCause(err, errors2.ErrCancelled))

	// none of the rejected transactions consumed the input
	_, err = e.notary.Notarize(ctx, e.transfer(t, ref, iou, e.carl))
	assert.NoError(t, err)
}

func TestConcurrentSpendsOneWins(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	iou := states.NewIOU(states.MustAmount("100", "GBP"), e.alice, e.bob)
	ref := tx.StateRef{TxID: "issue", Index: 0}

	const attempts = 8
	txs := make([]*tx.Transaction, attempts)
	for i := range txs {
		txs[i] = e.transfer(t, ref, iou, e.carl)
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range txs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.notary.Notarize(ctx, txs[i])
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.HasCause(err, errors2.ErrNotaryConflict))
	}
	assert.Equal(t, 1, wins)
}

func TestDirectory(t *testing.T) {
	e := newEnv(t)
	d := NewDirectory()
	d.Register(e.notary)
	n, err := d.Notary(e.notary.Identity())
	require.NoError(t, err)
	assert.Equal(t, e.notary, n)
	_, err = d.Notary(e.alice)
	assert.Error(t, err)
}

func TestNotarizeAfterClose(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	iou := states.NewIOU(states.MustAmount("100", "GBP"), e.alice, e.bob)

	_, err := e.notary.Notarize(ctx, e.transfer(t, tx.StateRef{TxID: "issue"}, iou, e.carl))
	require.NoError(t, err)

	e.notary.Close()
	_, err = e.notary.Notarize(ctx, e.transfer(t, tx.StateRef{TxID: "other"}, iou, e.carl))
	assert.True(t, errors.HasCause(err, errors2.ErrTransport), "got [%v]", err)
}
