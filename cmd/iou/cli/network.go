/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cli

import (
	"context"
	"path/filepath"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/sdk"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/db"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

var logger = logging.MustGetLogger("iou.cli")

const notaryAlias = "notary"

type network struct {
	*sdk.Network
	nodes map[string]*sdk.Node
}

// openNetwork starts the notary and every node, each on its own badger store under dataDir
func openNetwork(ctx context.Context, dataDir string, aliases []string, policy string) (*network, error) {
	store, err := db.Open(persistence(dataDir, notaryAlias))
	if err != nil {
		return nil, err
	}
	n := &network{Network: sdk.NewNetwork(), nodes: map[string]*sdk.Node{}}
	if _, err := n.AddNotary(ctx, notaryAlias, store); err != nil {
		if err := store.Close(); err != nil {
			logger.Warnf("failed closing notary store: %s", err)
		}
		return nil, err
	}
	for _, alias := range aliases {
		node, err := sdk.NewNode(ctx, &sdk.Config{
			Identity:    alias,
			Notary:      sdk.NotaryConfig{Policy: policy, Identity: notaryAlias},
			Persistence: persistence(dataDir, alias),
		}, n.Network)
		if err != nil {
			n.close()
			return nil, errors.WithMessagef(err, "failed starting [%s]", alias)
		}
		n.nodes[alias] = node
	}
	return n, nil
}

func persistence(dataDir, alias string) db.Config {
	return db.Config{Type: db.BadgerPersistence, Opts: db.Opts{Path: filepath.Join(dataDir, alias)}}
}

func (n *network) node(alias string) (*sdk.Node, error) {
	node, ok := n.nodes[alias]
	if !ok {
		return nil, errors.Errorf("node [%s] is not part of the network", alias)
	}
	return node, nil
}

func (n *network) identity(alias string) (view.Identity, error) {
	if _, err := n.node(alias); err != nil {
		return nil, err
	}
	return n.Identity(alias)
}

// alias returns the alias bound to id, the identity itself when unknown
func (n *network) alias(id view.Identity) string {
	for alias, node := range n.nodes {
		if node.Identity().Equal(id) {
			return alias
		}
	}
	return id.String()
}

func (n *network) close() {
	for _, node := range n.nodes {
		node.Stop()
	}
	if err := n.Close(); err != nil {
		logger.Warnf("failed closing the network: %s", err)
	}
}
