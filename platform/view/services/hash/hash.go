/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package hash

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// SHA256 returns the sha256 digest of raw
func SHA256(raw []byte) []byte {
	digest := sha256.Sum256(raw)
	return digest[:]
}

// SHA256Hex returns the hex encoding of the sha256 digest of raw
func SHA256Hex(raw []byte) string {
	return hex.EncodeToString(SHA256(raw))
}

// Hashable logs lazily the digest of a byte slice
type Hashable []byte

func (h Hashable) String() string {
	if len(h) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(SHA256(h))
}
