/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/hash"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

var logger = logging.MustGetLogger("view-sdk.session.json")

type jsonSession struct {
	s       Session
	context context.Context
}

// NewJSON opens, or reuses, the session to party for caller and wraps it in a json codec
func NewJSON(context view.Context, caller view.View, party view.Identity) (*jsonSession, error) {
	s, err := context.GetSession(caller, party)
	if err != nil {
		return nil, err
	}
	return &jsonSession{s: s, context: context.Context()}, nil
}

// NewFromSession wraps an existing session in a json codec
func NewFromSession(context view.Context, session Session) *jsonSession {
	return &jsonSession{s: session, context: context.Context()}
}

// JSON wraps the default session of context in a json codec
func JSON(context view.Context) *jsonSession {
	return &jsonSession{s: context.Session(), context: context.Context()}
}

func (j *jsonSession) Receive(state interface{}) error {
	return j.ReceiveWithTimeout(state, DefaultTimeout)
}

func (j *jsonSession) ReceiveWithTimeout(state interface{}, d time.Duration) error {
	raw, err := ReadMessageWithTimeout(j.context, j.s, d)
	if err != nil {
		return err
	}
	logger.Debugf("json session, received message [%s]", hash.Hashable(raw))
	if err := json.Unmarshal(raw, state); err != nil {
		return errors.Wrapf(err, "failed unmarshalling message")
	}
	return nil
}

func (j *jsonSession) Send(state interface{}) error {
	v, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(err, "failed marshalling message")
	}
	logger.Debugf("json session, send message [%s]", hash.Hashable(v))
	return j.s.Send(v)
}

func (j *jsonSession) SendError(err string) error {
	logger.Debugf("json session, send error [%s]", err)
	return j.s.SendError([]byte(err))
}

func (j *jsonSession) Session() Session {
	return j.s
}
