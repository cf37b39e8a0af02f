/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package iou_test

import (
	"testing"
	"time"

	"github.com/hyperledger-labs/iou-smart-client/platform/common/services/logging"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestEndToEnd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "IOU Suite")
}

var _ = BeforeSuite(func() {
	logging.Init(logging.Config{LogSpec: "error"})
	SetDefaultEventuallyTimeout(10 * time.Second)
})
