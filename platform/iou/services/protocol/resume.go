/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package protocol

import (
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// ResumeView continues a process from its last checkpoint.
// A notarized process is never submitted to the notary again.
type ResumeView struct {
	FlowID string `json:"flowId"`
}

func NewResumeView(flowID string) *ResumeView {
	return &ResumeView{FlowID: flowID}
}

func (r *ResumeView) Call(context view.Context) (interface{}, error) {
	svc, err := GetService(context)
	if err != nil {
		return nil, err
	}
	cp, err := svc.Checkpoints.Load(context.Context(), r.FlowID)
	if err != nil {
		return nil, err
	}
	if cp.State == Failed {
		return nil, errors.Errorf("process [%s] failed, nothing to resume: %s", cp.FlowID, cp.Reason)
	}
	logger.Infof("[%s] resume process [%s] from [%s]", cp.Command, cp.FlowID, cp.State)
	return context.RunView(&CommitView{checkpoint: cp})
}
