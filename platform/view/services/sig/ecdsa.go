/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sig

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"math/big"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

type ecdsaSignature struct {
	R, S *big.Int
}

// ECDSASigner signs with an ECDSA private key
type ECDSASigner struct {
	*ECDSAVerifier
	sk *ecdsa.PrivateKey
}

// NewECDSASigner generates a fresh P-256 key. The returned identity is the
// PKIX encoding of the public key.
func NewECDSASigner() (*ECDSASigner, view.Identity, error) {
	sk, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed generating ecdsa key")
	}
	return newECDSASigner(sk)
}

// NewECDSASignerFromDER loads the signer from the SEC 1 encoding of its private key
func NewECDSASignerFromDER(der []byte) (*ECDSASigner, view.Identity, error) {
	sk, err := x509.ParseECPrivateKey(der)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed parsing ecdsa private key")
	}
	return newECDSASigner(sk)
}

func newECDSASigner(sk *ecdsa.PrivateKey) (*ECDSASigner, view.Identity, error) {
	raw, err := x509.MarshalPKIXPublicKey(&sk.PublicKey)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed marshalling public key")
	}
	return &ECDSASigner{ECDSAVerifier: &ECDSAVerifier{pk: &sk.PublicKey}, sk: sk}, raw, nil
}

// Sign signs the sha256 digest of message
func (d *ECDSASigner) Sign(message []byte) ([]byte, error) {
	dgst := sha256.Sum256(message)
	r, s, err := ecdsa.Sign(rand.Reader, d.sk, dgst[:])
	if err != nil {
		return nil, errors.Wrap(err, "failed signing")
	}
	s, err = toLowS(d.sk.Params(), s)
	if err != nil {
		return nil, err
	}
	return asn1.Marshal(ecdsaSignature{R: r, S: s})
}

// DER returns the SEC 1 encoding of the private key
func (d *ECDSASigner) DER() ([]byte, error) {
	return x509.MarshalECPrivateKey(d.sk)
}

// ECDSAVerifier verifies signatures produced by ECDSASigner
type ECDSAVerifier struct {
	pk *ecdsa.PublicKey
}

// NewECDSAVerifier deserializes the PKIX public key carried by the passed identity
func NewECDSAVerifier(id view.Identity) (*ECDSAVerifier, error) {
	pk, err := x509.ParsePKIXPublicKey(id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed parsing identity [%s]", id)
	}
	ecPK, ok := pk.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.Errorf("identity [%s] is not an ecdsa public key", id)
	}
	return &ECDSAVerifier{pk: ecPK}, nil
}

func (v *ECDSAVerifier) Verify(message, sigma []byte) error {
	signature := &ecdsaSignature{}
	if _, err := asn1.Unmarshal(sigma, signature); err != nil {
		return errors.Wrap(err, "failed unmarshalling signature")
	}
	if signature.R == nil || signature.S == nil {
		return errors.New("invalid signature, R and S must be set")
	}
	lowS, err := isLowS(v.pk, signature.S)
	if err != nil {
		return err
	}
	if !lowS {
		return errors.New("invalid S, must be smaller than half the order")
	}

	dgst := sha256.Sum256(message)
	if !ecdsa.Verify(v.pk, dgst[:], signature.R, signature.S) {
		return errors.New("invalid signature")
	}
	return nil
}

func isLowS(k *ecdsa.PublicKey, s *big.Int) (bool, error) {
	if k.Curve != elliptic.P256() {
		return false, errors.Errorf("curve not supported [%s]", k.Params().Name)
	}
	return s.Cmp(halfOrder(k.Params())) != 1, nil
}

// toLowS sets s to N - s when s is in the upper half of the signature space
func toLowS(params *elliptic.CurveParams, s *big.Int) (*big.Int, error) {
	if s.Cmp(halfOrder(params)) == 1 {
		s.Sub(params.N, s)
	}
	return s, nil
}

func halfOrder(params *elliptic.CurveParams) *big.Int {
	return new(big.Int).Rsh(params.N, 1)
}
