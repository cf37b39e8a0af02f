/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sig

import (
	"context"
	"reflect"
	"sync"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/services/kvs"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

var logger = logging.MustGetLogger("view-sdk.sig")

const signerKeyPrefix = "sig"

// Signer is an interface which wraps the Sign method.
type Signer interface {
	// Sign signs message bytes and returns the signature or an error on failure.
	Sign(message []byte) ([]byte, error)
}

// Verifier is an interface which wraps the Verify method.
type Verifier interface {
	// Verify verifies the signature over the passed message.
	Verify(message, sigma []byte) error
}

type entry struct {
	signer   Signer
	verifier Verifier
}

type storedKey struct {
	DER []byte `json:"der"`
}

// Service models a repository of sign and verify keys.
// Keys generated by the service are stored in the KVS, when one is provided, and reloaded on demand.
type Service struct {
	mutex   sync.RWMutex
	signers map[string]entry
	kvs     *kvs.KVS
}

func NewService(kvs *kvs.KVS) *Service {
	return &Service{signers: map[string]entry{}, kvs: kvs}
}

// GetService returns the sig service registered in the passed service provider
func GetService(sp view.ServiceProvider) (*Service, error) {
	s, err := sp.GetService(reflect.TypeOf((*Service)(nil)))
	if err != nil {
		return nil, err
	}
	return s.(*Service), nil
}

// NewIdentity generates a fresh key, registers it and returns its identity
func (s *Service) NewIdentity(ctx context.Context) (view.Identity, error) {
	signer, id, err := NewECDSASigner()
	if err != nil {
		return nil, err
	}
	if s.kvs != nil {
		der, err := signer.DER()
		if err != nil {
			return nil, errors.Wrap(err, "failed marshalling private key")
		}
		k, err := kvs.CreateCompositeKey(signerKeyPrefix, []string{id.UniqueID()})
		if err != nil {
			return nil, err
		}
		if err := s.kvs.Put(ctx, k, &storedKey{DER: der}); err != nil {
			return nil, errors.WithMessagef(err, "failed storing key for [%s]", id)
		}
	}
	if err := s.RegisterSigner(ctx, id, signer, signer); err != nil {
		return nil, err
	}
	return id, nil
}

// NewAnonymousIdentity generates a fresh, unlinkable key owned by this node
func (s *Service) NewAnonymousIdentity(ctx context.Context) (view.Identity, error) {
	return s.NewIdentity(ctx)
}

// RegisterSigner binds the passed identity to the passed signer and verifier
func (s *Service) RegisterSigner(_ context.Context, identity view.Identity, signer Signer, verifier Verifier) error {
	if signer == nil {
		return errors.New("invalid signer, expected a valid instance")
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	logger.Debugf("register signer for [%s]", identity)
	s.signers[identity.UniqueID()] = entry{signer: signer, verifier: verifier}
	return nil
}

// IsMe returns true if a signer was ever registered for the passed identity
func (s *Service) IsMe(ctx context.Context, identity view.Identity) bool {
	_, err := s.GetSigner(ctx, identity)
	return err == nil
}

// AreMe returns the identities, among the passed ones, that have a signer registered
func (s *Service) AreMe(ctx context.Context, identities ...view.Identity) []view.Identity {
	var res []view.Identity
	for _, id := range identities {
		if s.IsMe(ctx, id) {
			res = append(res, id)
		}
	}
	return res
}

// GetSigner returns the signer bound to the passed identity
func (s *Service) GetSigner(ctx context.Context, identity view.Identity) (Signer, error) {
	s.mutex.RLock()
	e, ok := s.signers[identity.UniqueID()]
	s.mutex.RUnlock()
	if ok {
		return e.signer, nil
	}
	if s.kvs == nil {
		return nil, errors.Errorf("signer for [%s] not found", identity)
	}

	k, err := kvs.CreateCompositeKey(signerKeyPrefix, []string{identity.UniqueID()})
	if err != nil {
		return nil, err
	}
	if !s.kvs.Exists(ctx, k) {
		return nil, errors.Errorf("signer for [%s] not found", identity)
	}
	stored := &storedKey{}
	if err := s.kvs.Get(ctx, k, stored); err != nil {
		return nil, errors.WithMessagef(err, "failed loading key for [%s]", identity)
	}
	signer, _, err := NewECDSASignerFromDER(stored.DER)
	if err != nil {
		return nil, err
	}
	if err := s.RegisterSigner(ctx, identity, signer, signer); err != nil {
		return nil, err
	}
	return signer, nil
}

// Sign signs message with the key bound to identity
func (s *Service) Sign(ctx context.Context, identity view.Identity, message []byte) ([]byte, error) {
	signer, err := s.GetSigner(ctx, identity)
	if err != nil {
		return nil, err
	}
	return signer.Sign(message)
}

// GetVerifier returns the verifier for the passed identity. Identities are
// self-describing, so a verifier exists for any well-formed identity.
func (s *Service) GetVerifier(identity view.Identity) (Verifier, error) {
	s.mutex.RLock()
	e, ok := s.signers[identity.UniqueID()]
	s.mutex.RUnlock()
	if ok && e.verifier != nil {
		return e.verifier, nil
	}
	return NewECDSAVerifier(identity)
}

// Verify checks that sigma is a signature of identity over message
func (s *Service) Verify(identity view.Identity, message, sigma []byte) error {
	v, err := s.GetVerifier(identity)
	if err != nil {
		return err
	}
	if err := v.Verify(message, sigma); err != nil {
		return errors.WithMessagef(err, "invalid signature by [%s]", identity)
	}
	return nil
}
