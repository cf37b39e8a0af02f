/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sdk

import (
	"context"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/assembler"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/cash"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/contract"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/identity"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/notary"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/protocol"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/settlement"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/tx"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/vault"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/views"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/db"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/kvs"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/metrics"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/metrics/disabled"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/metrics/prometheus"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/sig"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/tracing"
	view2 "github.com/hyperledger-labs/iou-smart-client/platform/view/services/view"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

var logger = logging.MustGetLogger("iou.sdk")

type options struct {
	tracerProvider trace.TracerProvider
	registry       *prom.Registry
}

type Option func(*options)

// WithTracerProvider sets the provider spans are exported with, noop by default
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithRegistry sets the prometheus registry metrics are registered in when enabled.
// Each node gets its own registry by default.
func WithRegistry(r *prom.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// Node is an IOU node: it records, transfers and settles obligations with the other nodes of its network
type Node struct {
	Config *Config

	network  *Network
	me       view.Identity
	notary   view.Identity
	store    *kvs.KVS
	sigs     *sig.Service
	vault    *vault.Vault
	wallet   *cash.Wallet
	protocol *protocol.Service
	manager  *view2.Manager
	registry *prom.Registry
}

// NewNode wires the services of a node and joins the passed network
func NewNode(ctx context.Context, cfg *Config, network *Network, opts ...Option) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	notaryID, err := network.Identity(cfg.Notary.Identity)
	if err != nil {
		return nil, errors.WithMessagef(err, "notary of [%s] not available", cfg.Identity)
	}
	selector, err := notary.NewSelector(notary.Policy(cfg.Notary.Policy), notaryID)
	if err != nil {
		return nil, err
	}

	kvss, err := db.Open(cfg.Persistence)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed opening persistence of [%s]", cfg.Identity)
	}
	store := kvs.New(kvss, "iou")
	keys := store.Namespace("keys")
	sigs := sig.NewService(keys)
	me, err := network.loadIdentity(ctx, keys, sigs)
	if err != nil {
		return nil, err
	}

	var mp metrics.Provider = &disabled.Provider{}
	if cfg.Metrics.Enabled {
		if o.registry == nil {
			o.registry = prom.NewRegistry()
		}
		mp = prometheus.NewProvider(o.registry)
	}

	v := vault.New(store, sigs)
	wallet := cash.NewWallet(me, sigs, store)
	resolver := identity.NewResolver(store, sigs, sigs)
	a := assembler.New(v, selector, settlement.NewReconciler(wallet), sigs)
	contracts := contract.NewRegistry()
	contracts.Register(tx.IOUContract, contract.NewIOU())
	contracts.Register(tx.CashContract, cash.NewContract())
	svc := protocol.NewService(
		me,
		sigs,
		contracts,
		network.Notaries,
		resolver,
		protocol.NewCheckpoints(store),
		protocol.Timeouts{Session: cfg.Timeouts.Session, Finality: cfg.Timeouts.Finality},
		protocol.NewMetrics(mp),
		v,
		wallet,
	)

	sp := view2.NewServiceProvider()
	for _, s := range []interface{}{sigs, v, wallet, resolver, selector, a, contracts, svc} {
		if err := sp.RegisterService(s); err != nil {
			return nil, err
		}
	}
	manager := view2.NewManager(
		sp,
		network.Hub,
		me,
		view2.NewRegistry(),
		tracing.NewTracerProvider(o.tracerProvider, mp),
		mp,
		&localMembership{sigs: sigs},
	)
	if err := sp.RegisterService(manager); err != nil {
		return nil, err
	}
	if err := install(manager); err != nil {
		return nil, err
	}

	if err := network.Bind(cfg.Identity, me); err != nil {
		return nil, err
	}
	network.Hub.Register(me, manager)
	logger.Infof("node [%s] started as [%s], notary policy [%s]", cfg.Identity, me, selector.Policy())

	return &Node{
		Config:   cfg,
		network:  network,
		me:       me,
		notary:   notaryID,
		store:    store,
		sigs:     sigs,
		vault:    v,
		wallet:   wallet,
		protocol: svc,
		manager:  manager,
		registry: o.registry,
	}, nil
}

// install registers the view factories and the responders
func install(m *view2.Manager) error {
	factories := map[string]view2.Factory{
		"issue":    &views.IssueViewFactory{},
		"transfer": &views.TransferViewFactory{},
		"settle":   &views.SettleViewFactory{},
		"query":    &views.QueryViewFactory{},
		"resume":   &views.ResumeViewFactory{},
	}
	for id, f := range factories {
		if err := m.RegisterFactory(id, f); err != nil {
			return errors.WithMessagef(err, "failed registering factory [%s]", id)
		}
	}
	responders := []struct {
		responder   view.View
		initiatedBy interface{}
	}{
		{&views.IssueResponderView{}, &views.IssueView{}},
		{&views.TransferResponderView{}, &views.TransferView{}},
		{&views.SettleResponderView{}, &views.SettleView{}},
		{&views.ResumeResponderView{}, &protocol.ResumeView{}},
	}
	for _, r := range responders {
		if err := m.RegisterResponder(r.responder, r.initiatedBy); err != nil {
			return err
		}
	}
	return nil
}

// Identity returns the well-known identity of this node
func (n *Node) Identity() view.Identity {
	return n.me
}

// Issue records that borrower owes amount to lender
func (n *Node) Issue(ctx context.Context, amount states.Amount, lender, borrower view.Identity) (*views.Result, error) {
	return n.initiate(ctx, &views.IssueView{Issue: views.Issue{Amount: amount, Lender: lender, Borrower: borrower}})
}

// Transfer hands the obligation over to newLender. This node must be the current lender.
func (n *Node) Transfer(ctx context.Context, linearID string, newLender view.Identity) (*views.Result, error) {
	return n.initiate(ctx, &views.TransferView{Transfer: views.Transfer{LinearID: linearID, NewLender: newLender}})
}

// Settle pays amount off the obligation. This node must be the borrower.
func (n *Node) Settle(ctx context.Context, linearID string, amount states.Amount) (*views.Result, error) {
	return n.initiate(ctx, &views.SettleView{Settle: views.Settle{LinearID: linearID, Amount: amount}})
}

// Query returns the current version of the obligation
func (n *Node) Query(ctx context.Context, linearID string) (*states.IOU, error) {
	res, err := n.manager.InitiateView(ctx, &views.QueryView{Query: views.Query{LinearID: linearID}})
	if err != nil {
		return nil, err
	}
	return res.(*states.IOU), nil
}

// Initiate runs the view registered under id with the passed json input
func (n *Node) Initiate(ctx context.Context, id string, in []byte) (interface{}, error) {
	return n.manager.Initiate(ctx, id, in)
}

// IssueCash funds this node with cash it issues itself
func (n *Node) IssueCash(ctx context.Context, amount states.Amount) error {
	_, err := n.wallet.Issue(ctx, amount, n.notary)
	return err
}

// Balance returns the cash this node holds in currency
func (n *Node) Balance(ctx context.Context, currency string) (states.Amount, error) {
	return n.wallet.Balance(ctx, currency)
}

// Resume continues an interrupted process
func (n *Node) Resume(ctx context.Context, flowID string) (*protocol.Outcome, error) {
	res, err := n.manager.InitiateView(ctx, protocol.NewResumeView(flowID))
	if err != nil {
		return nil, err
	}
	return res.(*protocol.Outcome), nil
}

// ResumeAll continues every process that did not complete, it returns the first failure
func (n *Node) ResumeAll(ctx context.Context) ([]*protocol.Outcome, error) {
	pending, err := n.protocol.Checkpoints.Pending(ctx)
	if err != nil {
		return nil, err
	}
	var res []*protocol.Outcome
	var first error
	for _, cp := range pending {
		outcome, err := n.Resume(ctx, cp.FlowID)
		if err != nil {
			logger.Warnf("failed resuming [%s]: %s", cp.FlowID, err)
			if first == nil {
				first = err
			}
			continue
		}
		res = append(res, outcome)
	}
	return res, first
}

// Registry returns the prometheus registry of this node, nil when metrics are disabled
func (n *Node) Registry() *prom.Registry {
	return n.registry
}

// Wait blocks until the responders this node is running have returned,
// so that every transaction they received is persisted
func (n *Node) Wait() {
	n.manager.Wait()
}

// Stop leaves the network, waits for the running responders and closes the persistence
func (n *Node) Stop() {
	n.network.Hub.Unregister(n.me)
	n.manager.Wait()
	n.store.Stop()
	logger.Infof("node [%s] stopped", n.Config.Identity)
}

func (n *Node) initiate(ctx context.Context, v view.View) (*views.Result, error) {
	res, err := n.manager.InitiateView(ctx, v)
	if err != nil {
		return nil, err
	}
	return res.(*views.Result), nil
}

// localMembership tells the view runtime which identities belong to this node
type localMembership struct {
	sigs *sig.Service
}

func (m *localMembership) IsMe(id view.Identity) bool {
	return m.sigs.IsMe(context.Background(), id)
}
