/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package identity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Identity is the serialized public part of a signing key.
// Nodes, notaries and the anonymous keys holding cash are all identities.
type Identity []byte

func (id Identity) Equal(other Identity) bool {
	return bytes.Equal(id, other)
}

func (id Identity) IsNone() bool {
	return len(id) == 0
}

// UniqueID is a fixed-size digest of the identity, usable in storage keys
func (id Identity) UniqueID() string {
	if id.IsNone() {
		return "<empty>"
	}
	h := sha256.Sum256(id)
	return hex.EncodeToString(h[:])
}

// String abbreviates UniqueID for log lines
func (id Identity) String() string {
	if id.IsNone() {
		return "<empty>"
	}
	return id.UniqueID()[:16]
}
