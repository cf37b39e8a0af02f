/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/identity"
)

// Identity wraps the byte representation of a lower level identity.
type Identity = identity.Identity

// Identities is a list of identities with set semantics helpers.
type Identities = identity.Identities
