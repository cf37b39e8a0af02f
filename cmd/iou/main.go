/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"

	"github.com/hyperledger-labs/iou-smart-client/cmd/iou/cli"
)

func main() {
	// On failure Cobra prints the error string, so we only
	// need to exit with a non-0 status
	if cli.NewCmd().Execute() != nil {
		os.Exit(1)
	}
}
