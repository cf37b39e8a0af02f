/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"reflect"
	"runtime/debug"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/tracing"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	"go.opentelemetry.io/otel/trace"
)

const (
	SuccessLabel       tracing.LabelName = "success"
	ViewLabel          tracing.LabelName = "view"
	InitiatorViewLabel tracing.LabelName = "initiator_view"
)

// View is an alias for view.View
type View = view.View

// RunViewNow calls v in a child of parent.
// The go context is the parent's one, unless view.WithContext passes another.
// A panic in v is turned into an error, and the error callbacks of the child run when v fails.
func RunViewNow(parent ParentContext, v View, opts ...view.RunViewOption) (res interface{}, err error) {
	if v == nil {
		return nil, errors.New("no view passed")
	}
	options, err := view.CompileRunViewOptions(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed compiling options")
	}
	goContext := parent.Context()
	if options.Ctx != nil {
		goContext = options.Ctx
	}

	logger.Debugf("start view [%s]", GetName(v))
	newCtx, span := parent.StartSpanFrom(goContext, GetName(v), tracing.WithAttributes(
		tracing.String(ViewLabel, GetIdentifier(v)),
		tracing.String(InitiatorViewLabel, GetIdentifier(parent.Initiator())),
	), trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	cc := NewChildContext(parent, newCtx)
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("caught panic while running view [%s]: [%v][%s]", GetName(v), r, debug.Stack())
			switch e := r.(type) {
			case error:
				err = errors.WithMessagef(e, "caught panic")
			default:
				err = errors.Errorf("caught panic [%v]", e)
			}
			res = nil
			span.SetAttributes(tracing.Bool(SuccessLabel, false))
			cc.Cleanup()
		}
	}()

	res, err = v.Call(cc)
	span.SetAttributes(tracing.Bool(SuccessLabel, err == nil))
	if err != nil {
		cc.Cleanup()
		return nil, err
	}
	return res, nil
}

// GetIdentifier returns the package path and the name of the view's type
func GetIdentifier(f view.View) string {
	if f == nil {
		return ""
	}
	t := reflect.TypeOf(f)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "/" + t.Name()
}

// GetName returns the name of the view's type
func GetName(f view.View) string {
	if f == nil {
		return "<nil view>"
	}
	t := reflect.TypeOf(f)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
