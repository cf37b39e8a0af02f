/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sig

import (
	"context"
	"testing"

	mem "github.com/hyperledger-labs/iou-smart-client/platform/view/services/db/driver/memory"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/kvs"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	signer, id, err := NewECDSASigner()
	require.NoError(t, err)

	sigma, err := signer.Sign([]byte("hello"))
	require.NoError(t, err)

	verifier, err := NewECDSAVerifier(id)
	require.NoError(t, err)
	assert.NoError(t, verifier.Verify([]byte("hello"), sigma))
	assert.Error(t, verifier.Verify([]byte("hello!"), sigma))
	assert.Error(t, verifier.Verify([]byte("hello"), []byte("garbage")))

	_, err = NewECDSAVerifier(view.Identity("not a key"))
	assert.Error(t, err)
}

func TestDERRoundTrip(t *testing.T) {
	signer, id, err := NewECDSASigner()
	require.NoError(t, err)
	der, err := signer.DER()
	require.NoError(t, err)

	loaded, id2, err := NewECDSASignerFromDER(der)
	require.NoError(t, err)
	assert.True(t, id.Equal(id2))

	sigma, err := loaded.Sign([]byte("msg"))
	require.NoError(t, err)
	assert.NoError(t, signer.Verify([]byte("msg"), sigma))
}

func TestService(t *testing.T) {
	ctx := context.Background()
	store := kvs.New(mem.New(), "sig")
	s := NewService(store)

	me, err := s.NewIdentity(ctx)
	require.NoError(t, err)
	anon, err := s.NewAnonymousIdentity(ctx)
	require.NoError(t, err)
	assert.False(t, me.Equal(anon))

	_, other, err := NewECDSASigner()
	require.NoError(t, err)

	assert.True(t, s.IsMe(ctx, me))
	assert.True(t, s.IsMe(ctx, anon))
	assert.False(t, s.IsMe(ctx, other))
	assert.Equal(t, []view.Identity{me, anon}, s.AreMe(ctx, me, other, anon))

	sigma, err := s.Sign(ctx, me, []byte("tx"))
	require.NoError(t, err)
	assert.NoError(t, s.Verify(me, []byte("tx"), sigma))
	assert.Error(t, s.Verify(anon, []byte("tx"), sigma))

	_, err = s.Sign(ctx, other, []byte("tx"))
	assert.Error(t, err)

	// a fresh service over the same store recovers the keys
	restarted := NewService(store)
	assert.True(t, restarted.IsMe(ctx, anon))
	sigma, err = restarted.Sign(ctx, anon, []byte("tx"))
	require.NoError(t, err)
	assert.NoError(t, s.Verify(anon, []byte("tx"), sigma))
}
