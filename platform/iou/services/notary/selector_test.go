/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"testing"

	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector(t *testing.T) {
	n1, n2 := view.Identity("n1"), view.Identity("n2")

	_, err := NewSelector("", n1)
	assert.Error(t, err)
	_, err = NewSelector("first", n1)
	assert.Error(t, err)
	_, err = NewSelector(InputPolicy, nil)
	assert.Error(t, err)

	input, err := NewSelector(InputPolicy, n1)
	require.NoError(t, err)
	assert.Equal(t, InputPolicy, input.Policy())

	selected, err := input.Select()
	require.NoError(t, err)
	assert.Equal(t, n1, selected)
	selected, err = input.Select(n2, n2)
	require.NoError(t, err)
	assert.Equal(t, n2, selected)
	_, err = input.Select(n1, n2)
	assert.Error(t, err)

	fixed, err := NewSelector(FixedPolicy, n1)
	require.NoError(t, err)
	selected, err = fixed.Select(n2)
	require.NoError(t, err)
	assert.Equal(t, n1, selected)
}
