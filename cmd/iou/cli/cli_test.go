/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/hyperledger-labs/iou-smart-client/platform/iou/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, dir string, args ...string) ([]byte, error) {
	t.Helper()
	cmd := NewCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--data", dir, "--nodes", "alice,bob"}, args...))
	err := cmd.Execute()
	return out.Bytes(), err
}

func TestObligationOutlivesInvocations(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "issue", "--as", "alice", "--borrower", "bob", "--amount", "100", "--currency", "GBP")
	require.NoError(t, err)
	res := &views.Result{}
	require.NoError(t, json.Unmarshal(out, res))
	require.NotEmpty(t, res.LinearID)

	_, err = execute(t, dir, "fund", "--as", "bob", "--amount", "60", "--currency", "GBP")
	require.NoError(t, err)

	out, err = execute(t, dir, "settle", "--as", "bob", "--id", res.LinearID, "--amount", "40", "--currency", "GBP")
	require.NoError(t, err)
	settled := &views.Result{}
	require.NoError(t, json.Unmarshal(out, settled))
	assert.False(t, settled.Closed)

	out, err = execute(t, dir, "query", "--as", "alice", "--id", res.LinearID)
	require.NoError(t, err)
	o := &Obligation{}
	require.NoError(t, json.Unmarshal(out, o))
	assert.Equal(t, Obligation{LinearID: res.LinearID, Lender: "alice", Borrower: "bob", Amount: "100 GBP", Paid: "40 GBP"}, *o)

	out, err = execute(t, dir, "balance", "--as", "bob", "--currency", "GBP")
	require.NoError(t, err)
	assert.JSONEq(t, `{"quantity":"20","currency":"GBP"}`, string(out))

	out, err = execute(t, dir, "resume", "--as", "bob")
	require.NoError(t, err)
	assert.Equal(t, "null\n", string(out))
}

func TestNodeFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IOU_AS", "bob")

	out, err := execute(t, dir, "fund", "--amount", "5", "--currency", "EUR")
	require.NoError(t, err)
	assert.JSONEq(t, `{"quantity":"5","currency":"EUR"}`, string(out))
}

func TestRejections(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, dir, "query", "--id", "x")
	assert.ErrorContains(t, err, "--as must name")

	_, err = execute(t, dir, "issue", "--as", "alice", "--borrower", "zoe", "--amount", "1", "--currency", "GBP")
	assert.ErrorContains(t, err, "node [zoe] is not part of the network")

	_, err = execute(t, dir, "issue", "--as", "alice", "--borrower", "bob", "--amount", "ten", "--currency", "GBP")
	assert.Error(t, err)

	_, err = execute(t, dir, "--notary-policy", "none", "fund", "--as", "bob", "--amount", "1", "--currency", "GBP")
	assert.ErrorContains(t, err, "invalid iou.notary.policy")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "iou dev\n", string(out))
}
