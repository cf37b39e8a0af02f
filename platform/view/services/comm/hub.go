/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"sync"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils"
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
	"go.uber.org/atomic"
)

var logger = logging.MustGetLogger("view-sdk.comm")

// Responder is notified when a remote party opens a new session towards a registered endpoint.
// The session already contains the first message.
type Responder interface {
	Respond(session *LocalSession)
}

// Hub connects in-process endpoints addressed by identity.
// It plays the role of the peer-to-peer layer for nodes living in the same process.
type Hub struct {
	mutex       sync.RWMutex
	endpoints   map[string]Responder
	down        map[string]bool
	sendTimeout time.Duration

	openSessions *atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		endpoints:    map[string]Responder{},
		down:         map[string]bool{},
		sendTimeout:  10 * time.Second,
		openSessions: atomic.NewInt64(0),
	}
}

// Register binds the passed identity to the passed responder
func (h *Hub) Register(id view.Identity, responder Responder) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	logger.Debugf("register endpoint [%s]", id)
	h.endpoints[id.UniqueID()] = responder
}

// Unregister removes the endpoint bound to the passed identity
func (h *Hub) Unregister(id view.Identity) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.endpoints, id.UniqueID())
}

// SetLinkDown makes every delivery to and from the passed identity fail while down is true
func (h *Hub) SetLinkDown(id view.Identity, down bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.down[id.UniqueID()] = down
}

// OpenSessions returns the number of session sides not yet closed
func (h *Hub) OpenSessions() int64 {
	return h.openSessions.Load()
}

// NewSession opens a session from the passed identity to the passed party
func (h *Hub) NewSession(from view.Identity, callerViewID, contextID string, to view.Identity) (view.Session, error) {
	s, err := h.OpenSession(from, callerViewID, contextID, to)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSession opens a session from the passed identity to the passed party.
// The remote responder is triggered when the first message is delivered.
func (h *Hub) OpenSession(from view.Identity, callerViewID, contextID string, to view.Identity) (*LocalSession, error) {
	h.mutex.RLock()
	responder, ok := h.endpoints[to.UniqueID()]
	h.mutex.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrEndpointUnreachable, "no endpoint registered for [%s]", to)
	}
	if !h.reachable(from, to) {
		return nil, errors.Wrapf(ErrEndpointUnreachable, "link to [%s] is down", to)
	}

	id := utils.GenerateUUID()
	local := &LocalSession{
		hub:          h,
		id:           id,
		contextID:    contextID,
		callerViewID: callerViewID,
		owner:        from,
		caller:       from,
		remote:       to,
		incoming:     make(chan *view.Message, incomingBufferSize),
	}
	remote := &LocalSession{
		hub:          h,
		id:           id,
		contextID:    contextID,
		callerViewID: callerViewID,
		owner:        to,
		caller:       from,
		remote:       from,
		incoming:     make(chan *view.Message, incomingBufferSize),
		onFirstMsg:   responder.Respond,
	}
	local.peer, remote.peer = remote, local
	h.openSessions.Add(2)

	logger.Debugf("new session [%s] from [%s] to [%s] for [%s]", id, from, to, callerViewID)
	return local, nil
}

func (h *Hub) reachable(from, to view.Identity) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return !h.down[from.UniqueID()] && !h.down[to.UniqueID()]
}
