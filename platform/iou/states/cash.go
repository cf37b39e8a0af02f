/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package states

import (
	"github.com/hyperledger-labs/iou-smart-client/platform/view/view"
)

// Cash is an amount of money owned by Owner and backed by Issuer
type Cash struct {
	Amount Amount        `json:"amount"`
	Owner  view.Identity `json:"owner"`
	Issuer view.Identity `json:"issuer"`
}
