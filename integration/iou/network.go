/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package iou

import (
	"context"
	"path/filepath"

	"github.com/hyperledger-labs/iou-smart-client/platform/iou/sdk"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/db"
	mem "github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/driver/memory"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	. "github.com/onsi/gomega"
)

// Infrastructure is an in-process network of IOU nodes sharing one notary
type Infrastructure struct {
	Network *sdk.Network
	Nodes   map[string]*sdk.Node
	dir     string
}

// Opts configures the infrastructure
type Opts struct {
	// Nodes are the aliases of the nodes to start
	Nodes []string
	// Policy is the notary selection policy of every node
	Policy string
	// Dir, when set, makes every node persist its data with badger under Dir
	Dir string
}

func NewInfrastructure(opts *Opts) *Infrastructure {
	ii := &Infrastructure{Network: sdk.NewNetwork(), Nodes: map[string]*sdk.Node{}, dir: opts.Dir}
	_, err := ii.Network.AddNotary(context.Background(), "notary", mem.New())
	Expect(err).NotTo(HaveOccurred())
	for _, alias := range opts.Nodes {
		ii.Start(alias, opts.Policy)
	}
	return ii
}

// Start starts, or restarts, the node with the passed alias
func (ii *Infrastructure) Start(alias, policy string) *sdk.Node {
	persistence := db.Config{Type: db.MemoryPersistence}
	if len(ii.dir) != 0 {
		persistence = db.Config{Type: db.BadgerPersistence, Opts: db.Opts{Path: filepath.Join(ii.dir, alias)}}
	}
	n, err := sdk.NewNode(context.Background(), &sdk.Config{
		Identity:    alias,
		Notary:      sdk.NotaryConfig{Policy: policy, Identity: "notary"},
		Persistence: persistence,
		Metrics:     sdk.MetricsConfig{Enabled: true},
	}, ii.Network)
	Expect(err).NotTo(HaveOccurred())
	ii.Nodes[alias] = n
	return n
}

func (ii *Infrastructure) Stop() {
	for _, n := range ii.Nodes {
		n.Stop()
	}
	Expect(ii.Network.Close()).To(Succeed())
}

// Wait returns once no node is running a responder anymore
func (ii *Infrastructure) Wait() {
	for _, n := range ii.Nodes {
		n.Wait()
	}
}

func (ii *Infrastructure) Node(alias string) *sdk.Node {
	n, ok := ii.Nodes[alias]
	Expect(ok).To(BeTrue(), "node [%s] not started", alias)
	return n
}

func (ii *Infrastructure) ID(alias string) view.Identity {
	return ii.Node(alias).Identity()
}

func (ii *Infrastructure) alias(id view.Identity) string {
	for alias, n := range ii.Nodes {
		if n.Identity().Equal(id) {
			return alias
		}
	}
	return id.String()
}

func Amount(quantity, currency string) states.Amount {
	a, err := states.NewAmount(quantity, currency)
	Expect(err).NotTo(HaveOccurred())
	return a
}
