/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUUID(t *testing.T) {
	a, b := GenerateUUID(), GenerateUUID()
	assert.NotEqual(t, a, b)
	assert.True(t, IsUUID(a))
	assert.False(t, IsUUID("not-a-uuid"))
	assert.Len(t, GenerateBytesUUID(), 16)
}

func BenchmarkUUID(b *testing.B) {
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = GenerateUUID()
		}
	})
}
