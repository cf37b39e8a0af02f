/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var decimalComparer = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestAmountArithmetic(t *testing.T) {
	a := MustAmount("100", "GBP")
	b := MustAmount("40.5", "GBP")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustAmount("140.5", "GBP")))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.Equal(MustAmount("59.5", "GBP")))

	c, err := b.Cmp(a)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	_, err = a.Add(MustAmount("1", "EUR"))
	assert.Error(t, err)

	_, err = NewAmount("abc", "GBP")
	assert.Error(t, err)
	_, err = NewAmount("1", "")
	assert.Error(t, err)
}

func TestIOUValidate(t *testing.T) {
	alice, bob := view.Identity("alice"), view.Identity("bob")

	iou := NewIOU(MustAmount("100", "GBP"), alice, bob)
	require.NoError(t, iou.Validate())
	assert.True(t, iou.Paid.IsZero())
	assert.NotEmpty(t, iou.LinearID)
	assert.True(t, iou.Participants().Match([]view.Identity{bob, alice}))

	tests := []struct {
		name   string
		mutate func(i *IOU)
	}{
		{"zero amount", func(i *IOU) { i.Amount = Zero("GBP"); i.Paid = Zero("GBP") }},
		{"negative amount", func(i *IOU) { i.Amount = MustAmount("-1", "GBP") }},
		{"same parties", func(i *IOU) { i.Lender = bob }},
		{"missing lender", func(i *IOU) { i.Lender = nil }},
		{"overpaid", func(i *IOU) { i.Paid = MustAmount("101", "GBP") }},
		{"negative paid", func(i *IOU) { i.Paid = MustAmount("-1", "GBP") }},
		{"currency mismatch", func(i *IOU) { i.Paid = Zero("EUR") }},
		{"no linear id", func(i *IOU) { i.LinearID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := iou.Copy()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestCopyOnWrite(t *testing.T) {
	alice, bob, charlie := view.Identity("alice"), view.Identity("bob"), view.Identity("charlie")
	iou := NewIOU(MustAmount("100", "GBP"), alice, bob)

	transferred := iou.WithLender(charlie)
	assert.True(t, iou.Lender.Equal(alice))
	assert.Empty(t, cmp.Diff(iou.WithLender(charlie), transferred, decimalComparer))
	assert.Equal(t, iou.LinearID, transferred.LinearID)

	paid, err := iou.WithPayment(MustAmount("40", "GBP"))
	require.NoError(t, err)
	assert.True(t, iou.Paid.IsZero())
	assert.True(t, paid.Paid.Equal(MustAmount("40", "GBP")))
	outstanding, err := paid.Outstanding()
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(MustAmount("60", "GBP")))

	_, err = iou.WithPayment(MustAmount("1", "EUR"))
	assert.Error(t, err)
}

func TestIOUJSON(t *testing.T) {
	iou := NewIOU(MustAmount("12.34", "GBP"), view.Identity("alice"), view.Identity("bob"))
	raw, err := json.Marshal(iou)
	require.NoError(t, err)

	back := &IOU{}
	require.NoError(t, json.Unmarshal(raw, back))
	assert.True(t, iou.Equal(back))
	assert.Empty(t, cmp.Diff(iou, back, decimalComparer))
}
