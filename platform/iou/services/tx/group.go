/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tx

import (
	"sort"

	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
)

// Group collects the obligation records of a transaction sharing a linear id
type Group struct {
	LinearID string
	Inputs   []*states.IOU
	Outputs  []*states.IOU
}

// GroupIOUStates groups the consumed and produced obligation records by linear id.
// Groups are sorted by linear id.
func (t *Transaction) GroupIOUStates() []*Group {
	groups := map[string]*Group{}
	get := func(linearID string) *Group {
		g, ok := groups[linearID]
		if !ok {
			g = &Group{LinearID: linearID}
			groups[linearID] = g
		}
		return g
	}
	for _, in := range t.IOUInputs() {
		g := get(in.LinearID)
		g.Inputs = append(g.Inputs, in)
	}
	for _, out := range t.IOUOutputs() {
		g := get(out.LinearID)
		g.Outputs = append(g.Outputs, out)
	}

	res := make([]*Group, 0, len(groups))
	for _, g := range groups {
		res = append(res, g)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].LinearID < res[j].LinearID })
	return res
}
