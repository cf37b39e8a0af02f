/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package notary

import (
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// Policy decides which notary orders a transaction
type Policy string

const (
	// InputPolicy reuses the notary that ordered the consumed states,
	// the default notary is used when nothing is consumed.
	InputPolicy Policy = "input"
	// FixedPolicy always uses the default notary
	FixedPolicy Policy = "fixed"
)

// Selector implements the configured notary policy
type Selector struct {
	policy        Policy
	defaultNotary view.Identity
}

// NewSelector returns a selector for the passed policy. There is no implicit policy.
func NewSelector(policy Policy, defaultNotary view.Identity) (*Selector, error) {
	switch policy {
	case InputPolicy, FixedPolicy:
	case "":
		return nil, errors.New("notary policy not set, expected one of [input, fixed]")
	default:
		return nil, errors.Errorf("invalid notary policy [%s], expected one of [input, fixed]", policy)
	}
	if defaultNotary.IsNone() {
		return nil, errors.New("default notary not set")
	}
	return &Selector{policy: policy, defaultNotary: defaultNotary}, nil
}

func (s *Selector) Policy() Policy {
	return s.policy
}

// Select returns the notary for a transaction whose inputs were ordered by the passed notaries
func (s *Selector) Select(inputNotaries ...view.Identity) (view.Identity, error) {
	if s.policy == FixedPolicy {
		for _, n := range inputNotaries {
			if !n.Equal(s.defaultNotary) {
				logger.Warnf("input ordered by [%s], fixed policy selects [%s]", n, s.defaultNotary)
			}
		}
		return s.defaultNotary, nil
	}

	notaries := view.Identities(inputNotaries).Set()
	switch len(notaries) {
	case 0:
		return s.defaultNotary, nil
	case 1:
		return notaries[0], nil
	default:
		return nil, errors.Errorf("inputs ordered by different notaries %v", notaries)
	}
}
