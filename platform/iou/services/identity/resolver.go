/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"context"
	"reflect"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/kvs"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

var logger = logging.MustGetLogger("iou.identity")

const (
	namespace     = "identity"
	bindingPrefix = "binding"
)

// Binding ties an anonymous key to the well-known identity of its owner.
// The well-known identity signs the anonymous key and the anonymous key signs the well-known identity.
type Binding struct {
	Anonymous view.Identity `json:"anonymous"`
	WellKnown view.Identity `json:"wellKnown"`
	Proof     []byte        `json:"proof"`
	Ownership []byte        `json:"ownership"`
}

// Signer signs with the keys of this node
type Signer interface {
	IsMe(ctx context.Context, id view.Identity) bool
	Sign(ctx context.Context, id view.Identity, message []byte) ([]byte, error)
}

// Verifier checks the signatures of any identity
type Verifier interface {
	Verify(identity view.Identity, message, sigma []byte) error
}

// Resolver maps the anonymous keys of other nodes to their well-known identities
type Resolver struct {
	store    *kvs.KVS
	signer   Signer
	verifier Verifier
}

func NewResolver(store *kvs.KVS, signer Signer, verifier Verifier) *Resolver {
	return &Resolver{store: store.Namespace(namespace), signer: signer, verifier: verifier}
}

// GetResolver returns the resolver registered in the passed service provider
func GetResolver(sp view.ServiceProvider) (*Resolver, error) {
	s, err := sp.GetService(reflect.TypeOf((*Resolver)(nil)))
	if err != nil {
		return nil, err
	}
	return s.(*Resolver), nil
}

// Bind returns the bindings of the passed identities that are anonymous keys of this node
func (r *Resolver) Bind(ctx context.Context, me view.Identity, ids ...view.Identity) ([]*Binding, error) {
	var res []*Binding
	for _, id := range view.Identities(ids).Set() {
		if id.Equal(me) || !r.signer.IsMe(ctx, id) {
			continue
		}
		proof, err := r.signer.Sign(ctx, me, id)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed binding [%s]", id)
		}
		ownership, err := r.signer.Sign(ctx, id, me)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed binding [%s]", id)
		}
		res = append(res, &Binding{Anonymous: id, WellKnown: me, Proof: proof, Ownership: ownership})
	}
	return res, nil
}

// Apply verifies and records the passed bindings
func (r *Resolver) Apply(ctx context.Context, bindings []*Binding) error {
	for _, b := range bindings {
		if err := r.verifier.Verify(b.WellKnown, b.Anonymous, b.Proof); err != nil {
			return errors.WithMessagef(err, "invalid binding proof for [%s]", b.Anonymous)
		}
		if err := r.verifier.Verify(b.Anonymous, b.WellKnown, b.Ownership); err != nil {
			return errors.WithMessagef(err, "invalid ownership proof for [%s]", b.Anonymous)
		}
		k, err := kvs.CreateCompositeKey(bindingPrefix, []string{b.Anonymous.UniqueID()})
		if err != nil {
			return err
		}
		if err := r.store.Put(ctx, k, b.WellKnown); err != nil {
			return errors.WithMessagef(err, "failed recording binding for [%s]", b.Anonymous)
		}
		logger.Debugf("[%s] bound to [%s]", b.Anonymous, b.WellKnown)
	}
	return nil
}

// WellKnown returns the well-known identity behind id, id itself if no binding is known
func (r *Resolver) WellKnown(ctx context.Context, id view.Identity) view.Identity {
	k, err := kvs.CreateCompositeKey(bindingPrefix, []string{id.UniqueID()})
	if err != nil || !r.store.Exists(ctx, k) {
		return id
	}
	var wellKnown view.Identity
	if err := r.store.Get(ctx, k, &wellKnown); err != nil {
		logger.Warnf("failed loading binding for [%s]: [%s]", id, err)
		return id
	}
	return wellKnown
}
