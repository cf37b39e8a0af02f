/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package views

import (
	"encoding/json"

	"github.com/hyperledger-labs/iou-smart-client/platform/iou/services/assembler"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/assert"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

type Query struct {
	LinearID string
}

// QueryView returns the current version of an obligation
type QueryView struct {
	Query
}

func (q *QueryView) Call(context view.Context) (interface{}, error) {
	a, err := assembler.GetAssembler(context)
	assert.NoError(err)
	current, err := a.Current(context.Context(), q.LinearID)
	if err != nil {
		return nil, err
	}
	return current.IOU, nil
}

type QueryViewFactory struct{}

func (c *QueryViewFactory) NewView(in []byte) (view.View, error) {
	f := &QueryView{}
	err := json.Unmarshal(in, &f.Query)
	assert.NoError(err)
	return f, nil
}
