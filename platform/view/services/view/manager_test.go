/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils"
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/comm"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/metrics/disabled"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/session"
	view2 "github.com/hyperledger-labs/iou-smart-client/platform/view/services/view"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type InitiatorView struct{}

func (a InitiatorView) Call(context view.Context) (interface{}, error) {
	return nil, nil
}

type ResponderView struct{}

func (a ResponderView) Call(context view.Context) (interface{}, error) {
	return "pineapple", nil
}

type ContextKey string

type DummyViewContextCheck struct{}

func (a DummyViewContextCheck) Call(ctx view.Context) (interface{}, error) {
	v, ok := ctx.Context().Value(ContextKey("test")).(string)
	if !ok {
		return nil, errors.Errorf("context value %s not found", ContextKey("test"))
	}
	return v, nil
}

type PanicView struct{}

func (a PanicView) Call(view.Context) (interface{}, error) {
	panic("boom")
}

type FailingView struct {
	cleaned *bool
}

func (a FailingView) Call(ctx view.Context) (interface{}, error) {
	ctx.OnError(func() { *a.cleaned = true })
	return nil, errors.New("failed on purpose")
}

type PingView struct {
	Party view.Identity
}

func (p *PingView) Call(ctx view.Context) (interface{}, error) {
	s, err := session.NewJSON(ctx, p, p.Party)
	if err != nil {
		return nil, err
	}
	if err := s.Send("ping"); err != nil {
		return nil, err
	}
	var answer string
	if err := s.ReceiveWithTimeout(&answer, 5*time.Second); err != nil {
		return nil, err
	}
	return answer, nil
}

type PongView struct{}

func (p *PongView) Call(ctx view.Context) (interface{}, error) {
	s := session.JSON(ctx)
	var msg string
	if err := s.Receive(&msg); err != nil {
		return nil, err
	}
	if msg != "ping" {
		return nil, errors.Errorf("unexpected [%s]", msg)
	}
	return nil, s.Send(strings.ToUpper(msg) + " from " + string(ctx.Me()))
}

type RefuseView struct{}

func (p *RefuseView) Call(ctx view.Context) (interface{}, error) {
	return nil, errors.New("not today")
}

type DummyFactory struct{}

func (d *DummyFactory) NewView(in []byte) (view.View, error) {
	return &ResponderView{}, nil
}

func newManager(hub *comm.Hub, me string) *view2.Manager {
	sp := view2.NewServiceProvider()
	m := view2.NewManager(sp, hub, view.Identity(me), view2.NewRegistry(), noop.NewTracerProvider(), &disabled.Provider{}, nil)
	hub.Register(view.Identity(me), m)
	return m
}

func TestGetIdentifier(t *testing.T) {
	assert.Equal(t, "github.com/hyperledger-labs/iou-smart-client/platform/view/services/view_test/InitiatorView", view2.GetIdentifier(InitiatorView{}))
	assert.Equal(t, "github.com/hyperledger-labs/iou-smart-client/platform/view/services/view_test/InitiatorView", view2.GetIdentifier(&InitiatorView{}))
	assert.Equal(t, "InitiatorView", view2.GetName(&InitiatorView{}))
	assert.Equal(t, "", view2.GetIdentifier(nil))
}

func TestRegisterResponder(t *testing.T) {
	m := newManager(comm.NewHub(), "alice")

	require.NoError(t, m.RegisterResponder(&ResponderView{}, &InitiatorView{}))
	assert.Error(t, m.RegisterResponder(&ResponderView{}, view2.GetIdentifier(&InitiatorView{})))
	assert.Error(t, m.RegisterResponder(&ResponderView{}, 42))

	responder, err := m.GetResponder(view2.GetIdentifier(&InitiatorView{}))
	require.NoError(t, err)
	res, err := responder.Call(nil)
	require.NoError(t, err)
	assert.Equal(t, "pineapple", res)
}

func TestFactories(t *testing.T) {
	m := newManager(comm.NewHub(), "alice")
	require.NoError(t, m.RegisterFactory("dummy", &DummyFactory{}))
	assert.Error(t, m.RegisterFactory("dummy", &DummyFactory{}))

	res, err := m.Initiate(context.Background(), "dummy", nil)
	require.NoError(t, err)
	assert.Equal(t, "pineapple", res)

	_, err = m.Initiate(context.Background(), "unknown", nil)
	assert.Error(t, err)
}

func TestInitiateViewPropagatesContext(t *testing.T) {
	m := newManager(comm.NewHub(), "alice")
	ctx := context.WithValue(context.Background(), ContextKey("test"), "pineapple")
	v, err := m.InitiateView(ctx, &DummyViewContextCheck{})
	require.NoError(t, err)
	assert.Equal(t, "pineapple", v)
}

func TestPanicIsRecovered(t *testing.T) {
	m := newManager(comm.NewHub(), "alice")
	_, err := m.InitiateView(context.Background(), &PanicView{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestErrorCallbacks(t *testing.T) {
	m := newManager(comm.NewHub(), "alice")
	cleaned := false
	_, err := m.InitiateView(context.Background(), &FailingView{cleaned: &cleaned})
	require.Error(t, err)
	assert.True(t, cleaned)
}

func TestInitiatorResponder(t *testing.T) {
	hub := comm.NewHub()
	alice := newManager(hub, "alice")
	bob := newManager(hub, "bob")
	require.NoError(t, bob.RegisterResponder(&PongView{}, &PingView{}))

	res, err := alice.InitiateView(context.Background(), &PingView{Party: view.Identity("bob")})
	require.NoError(t, err)
	assert.Equal(t, "PING from bob", res)

	bob.Wait()
	_, err = alice.Context("any")
	assert.Error(t, err)
	assert.Equal(t, int64(0), hub.OpenSessions())
}

func TestResponderRefusal(t *testing.T) {
	hub := comm.NewHub()
	alice := newManager(hub, "alice")
	bob := newManager(hub, "bob")
	require.NoError(t, bob.RegisterResponder(&RefuseView{}, &PingView{}))

	_, err := alice.InitiateView(context.Background(), &PingView{Party: view.Identity("bob")})
	require.Error(t, err)
	assert.True(t, errors.HasCause(err, session.ErrRemote))
	assert.Contains(t, err.Error(), "not today")
}

func TestMissingResponder(t *testing.T) {
	hub := comm.NewHub()
	alice := newManager(hub, "alice")
	newManager(hub, "bob")

	_, err := alice.InitiateView(context.Background(), &PingView{Party: view.Identity("bob")})
	require.Error(t, err)
	assert.True(t, errors.HasCause(err, session.ErrRemote))
}

func TestManagerRace(t *testing.T) {
	hub := comm.NewHub()
	alice := newManager(hub, "alice")
	bob := newManager(hub, "bob")
	require.NoError(t, bob.RegisterResponder(&PongView{}, &PingView{}))

	wg := &sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			res, err := alice.InitiateView(context.Background(), &PingView{Party: view.Identity("bob")})
			assert.NoError(t, err)
			assert.Equal(t, "PING from bob", res)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, alice.RegisterFactory(utils.GenerateUUID(), &DummyFactory{}))
		}()
		go func() {
			defer wg.Done()
			_, err := alice.NewView(utils.GenerateUUID(), nil)
			assert.Error(t, err)
		}()
	}
	wg.Wait()
}
