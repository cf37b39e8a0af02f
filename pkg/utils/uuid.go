/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package utils

import (
	"github.com/google/uuid"
)

func init() {
	// pooled random bytes live on the heap, see uuid.EnableRandPool
	uuid.EnableRandPool()
}

// GenerateBytesUUID creates a new random UUID and returns it as []byte
func GenerateBytesUUID() []byte {
	u := uuid.New()
	return u[:]
}

// GenerateUUID creates a new random UUID and returns it as a string
func GenerateUUID() string {
	return uuid.NewString()
}

// IsUUID returns true if the passed string parses as a UUID
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
