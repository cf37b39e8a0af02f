/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"context"
	"testing"

	mem "github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/driver/memory"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/kvs"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/sig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindAndResolve(t *testing.T) {
	ctx := context.Background()

	bobKeys := sig.NewService(nil)
	bob, err := bobKeys.NewIdentity(ctx)
	require.NoError(t, err)
	anon, err := bobKeys.NewAnonymousIdentity(ctx)
	require.NoError(t, err)
	bobResolver := NewResolver(kvs.New(mem.New(), ""), bobKeys, bobKeys)

	aliceKeys := sig.NewService(nil)
	alice, err := aliceKeys.NewIdentity(ctx)
	require.NoError(t, err)
	aliceResolver := NewResolver(kvs.New(mem.New(), ""), aliceKeys, aliceKeys)

	// only bob's anonymous keys get bound
	bindings, err := bobResolver.Bind(ctx, bob, bob, anon, alice, anon)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, anon, bindings[0].Anonymous)

	assert.Equal(t, anon, aliceResolver.WellKnown(ctx, anon))
	require.NoError(t, aliceResolver.Apply(ctx, bindings))
	assert.Equal(t, bob, aliceResolver.WellKnown(ctx, anon))
	assert.Equal(t, alice, aliceResolver.WellKnown(ctx, alice))

	// alice cannot claim bob's anonymous key
	forged := *bindings[0]
	forged.WellKnown = alice
	forged.Proof, err = aliceKeys.Sign(ctx, alice, anon)
	require.NoError(t, err)
	assert.Error(t, aliceResolver.Apply(ctx, []*Binding{&forged}))

	tampered := *bindings[0]
	tampered.Proof = []byte("garbage")
	assert.Error(t, aliceResolver.Apply(ctx, []*Binding{&tampered}))
}
