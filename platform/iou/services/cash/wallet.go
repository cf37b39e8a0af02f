/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cash

import (
	"context"
	"reflect"
	"sync"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/driver"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/kvs"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

var logger = logging.MustGetLogger("iou.cash")

const (
	namespace   = "cash"
	coinPrefix  = "coin"
	seenPrefix  = "seen"
	spentPrefix = "spent"
)

// KeyService manages the keys of the node
type KeyService interface {
	IsMe(ctx context.Context, id view.Identity) bool
	NewAnonymousIdentity(ctx context.Context) (view.Identity, error)
	Sign(ctx context.Context, id view.Identity, message []byte) ([]byte, error)
}

// Coin is an unspent cash state owned by this node
type Coin struct {
	Ref    tx.StateRef   `json:"ref"`
	Cash   *states.Cash  `json:"cash"`
	Notary view.Identity `json:"notary"`
}

// Wallet keeps the unspent cash of a node
type Wallet struct {
	me    view.Identity
	keys  KeyService
	store *kvs.KVS

	mutex sync.Mutex
}

func NewWallet(me view.Identity, keys KeyService, store *kvs.KVS) *Wallet {
	return &Wallet{me: me, keys: keys, store: store.Namespace(namespace)}
}

// GetWallet returns the wallet registered in the passed service provider
func GetWallet(sp view.ServiceProvider) (*Wallet, error) {
	s, err := sp.GetService(reflect.TypeOf((*Wallet)(nil)))
	if err != nil {
		return nil, err
	}
	return s.(*Wallet), nil
}

// Coins returns the unspent coins in the passed currency
func (w *Wallet) Coins(ctx context.Context, currency string) ([]*Coin, error) {
	it, err := w.store.GetByPartialCompositeID(ctx, coinPrefix, []string{currency})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed scanning coins")
	}
	defer it.Close()

	var res []*Coin
	for it.HasNext() {
		c := &Coin{}
		if _, err := it.Next(c); err != nil {
			return nil, errors.Wrap(err, "failed unmarshalling coin")
		}
		res = append(res, c)
	}
	return res, nil
}

// Balance returns the sum of the unspent coins in the passed currency
func (w *Wallet) Balance(ctx context.Context, currency string) (states.Amount, error) {
	coins, err := w.Coins(ctx, currency)
	if err != nil {
		return states.Amount{}, err
	}
	balance := states.Zero(currency)
	for _, c := range coins {
		balance, err = balance.Add(c.Cash.Amount)
		if err != nil {
			return states.Amount{}, err
		}
	}
	return balance, nil
}

// GenerateSpend selects coins worth at least amount and pays amount to payee.
// The remainder goes back to a fresh anonymous key of this node.
// Coins are not locked: two concurrent spends of the same coin are resolved by the notary.
func (w *Wallet) GenerateSpend(ctx context.Context, amount states.Amount, payer, payee view.Identity) (*driver.Spend, error) {
	if !w.keys.IsMe(ctx, payer) {
		return nil, errors.Wrapf(errors2.ErrUnauthorized, "payer [%s] is not this node", payer)
	}
	if !amount.IsPositive() {
		return nil, errors.Wrapf(errors2.ErrValidation, "payment must be positive, got [%s]", amount)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	coins, err := w.Coins(ctx, amount.Currency)
	if err != nil {
		return nil, err
	}

	// pick coins in key order until the amount is covered, tracking totals per issuer
	var (
		selected  []*Coin
		issuers   view.Identities
		perIssuer = map[string]states.Amount{}
		total     = states.Zero(amount.Currency)
	)
	for _, coin := range coins {
		if covered(total, amount) {
			break
		}
		selected = append(selected, coin)
		k := coin.Cash.Issuer.UniqueID()
		sum, ok := perIssuer[k]
		if !ok {
			sum = states.Zero(amount.Currency)
			issuers = append(issuers, coin.Cash.Issuer)
		}
		sum, err = sum.Add(coin.Cash.Amount)
		if err != nil {
			return nil, err
		}
		perIssuer[k] = sum
		if total, err = total.Add(coin.Cash.Amount); err != nil {
			return nil, err
		}
	}
	if !covered(total, amount) {
		return nil, errors.Wrapf(errors2.ErrInsufficientFunds, "balance [%s] does not cover [%s]", total, amount)
	}

	spend := &driver.Spend{}
	for _, c := range selected {
		spend.Inputs = append(spend.Inputs, &tx.Input{Ref: c.Ref, State: &tx.State{Cash: c.Cash}})
		spend.Signers = view.Identities(spend.Signers).Union(c.Cash.Owner)
		spend.Notaries = view.Identities(spend.Notaries).Union(c.Notary)
	}
	remaining := amount
	for _, issuer := range issuers {
		available := perIssuer[issuer.UniqueID()]
		pay := available
		if covered(available, remaining) {
			pay = remaining
		}
		if pay.IsPositive() {
			spend.Outputs = append(spend.Outputs, &states.Cash{Amount: pay, Owner: payee, Issuer: issuer})
		}
		change, err := available.Sub(pay)
		if err != nil {
			return nil, err
		}
		if change.IsPositive() {
			owner, err := w.keys.NewAnonymousIdentity(ctx)
			if err != nil {
				return nil, errors.WithMessagef(err, "failed creating change key")
			}
			spend.Outputs = append(spend.Outputs, &states.Cash{Amount: change, Owner: owner, Issuer: issuer})
		}
		if remaining, err = remaining.Sub(pay); err != nil {
			return nil, err
		}
	}
	logger.Debugf("spend of [%s] to [%s] uses [%d] coins", amount, payee, len(selected))
	return spend, nil
}

// Issue creates new cash issued by this node and owned by a fresh anonymous key of this node.
// Issuing consumes nothing, so the transaction needs no ordering and is final once signed.
func (w *Wallet) Issue(ctx context.Context, amount states.Amount, notary view.Identity) (*tx.Transaction, error) {
	if !amount.IsPositive() {
		return nil, errors.Wrapf(errors2.ErrValidation, "issued amount must be positive, got [%s]", amount)
	}
	owner, err := w.keys.NewAnonymousIdentity(ctx)
	if err != nil {
		return nil, err
	}
	t := tx.New(notary)
	t.AddCashOutput(&states.Cash{Amount: amount, Owner: owner, Issuer: w.me})
	t.AddCommand(tx.CashContract, tx.CashIssue, w.me)
	if err := t.Seal(); err != nil {
		return nil, err
	}
	if err := NewContract().Verify(t); err != nil {
		return nil, err
	}
	sigma, err := w.keys.Sign(ctx, w.me, t.SigningMessage())
	if err != nil {
		return nil, errors.WithMessagef(err, "failed signing issue")
	}
	if err := t.AppendSignature(&tx.Signature{Signer: w.me, Value: sigma}); err != nil {
		return nil, err
	}
	if err := w.OnFinalized(ctx, t); err != nil {
		return nil, err
	}
	logger.Infof("issued [%s] in [%s]", amount, t.ID)
	return t, nil
}

// OnFinalized removes the spent coins and records the coins the transaction pays to this node.
// Coins spent by a transaction finalized earlier are not recorded.
func (w *Wallet) OnFinalized(ctx context.Context, t *tx.Transaction) error {
	seen, err := kvs.CreateCompositeKey(seenPrefix, []string{t.ID})
	if err != nil {
		return err
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.store.Exists(ctx, seen) {
		return nil
	}

	puts := map[string]interface{}{seen: true}
	var deletes []string
	for _, in := range t.CashInputs() {
		k, err := coinKey(in.State.Cash.Amount.Currency, in.Ref)
		if err != nil {
			return err
		}
		deletes = append(deletes, k)
		spent, err := spentKey(in.Ref)
		if err != nil {
			return err
		}
		puts[spent] = t.ID
	}
	for i, out := range t.Outputs {
		if out.Cash == nil || !w.keys.IsMe(ctx, out.Cash.Owner) {
			continue
		}
		ref := t.OutputRef(i)
		spent, err := spentKey(ref)
		if err != nil {
			return err
		}
		if w.store.Exists(ctx, spent) {
			continue
		}
		k, err := coinKey(out.Cash.Amount.Currency, ref)
		if err != nil {
			return err
		}
		puts[k] = &Coin{Ref: ref, Cash: out.Cash, Notary: t.Notary}
	}
	return w.store.PutBatch(ctx, puts, deletes)
}

// covered returns true if available >= requested, both in the same currency
func covered(available, requested states.Amount) bool {
	c, err := available.Cmp(requested)
	return err == nil && c >= 0
}

func coinKey(currency string, ref tx.StateRef) (string, error) {
	return kvs.CreateCompositeKey(coinPrefix, []string{currency, ref.String()})
}

func spentKey(ref tx.StateRef) (string, error) {
	return kvs.CreateCompositeKey(spentPrefix, []string{ref.String()})
}
