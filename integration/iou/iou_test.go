/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package iou_test

import (
	"context"
	"os"
	"strconv"
	"sync"

	"github.com/hyperledger-labs/iou-smart-client/integration/iou"
	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	errors2 "github.com/hyperledger-labs/iou-smart-client/platform/iou/services/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/views"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func hasKind(err error, kind error) {
	ExpectWithOffset(1, err).To(HaveOccurred())
	ExpectWithOffset(1, errors.HasCause(err, kind)).To(BeTrue(), "expected [%s], got [%s]", kind, err)
}

var _ = Describe("EndToEnd", func() {
	var ii *iou.Infrastructure

	for _, policy := range []string{"input", "fixed"} {
		policy := policy

		Describe("IOU life cycle with notary policy "+policy, func() {
			BeforeEach(func() {
				ii = iou.NewInfrastructure(&iou.Opts{Nodes: []string{"alice", "bob", "charlie", "dave"}, Policy: policy})
			})
			AfterEach(func() {
				ii.Stop()
			})

			It("issues, settles partially, then closes", func() {
				linearID := iou.CreateIOU(ii, "alice", "bob", iou.Amount("100", "GBP"))
				iou.CheckState(ii, linearID, "alice", "bob", iou.Amount("100", "GBP"), iou.Amount("0", "GBP"), "alice", "bob")

				// a partial payment leaves the rest outstanding
				iou.Fund(ii, "bob", iou.Amount("150", "GBP"))
				res := iou.SettleIOU(ii, "bob", linearID, iou.Amount("40", "GBP"))
				Expect(res.Closed).To(BeFalse())
				iou.CheckState(ii, linearID, "alice", "bob", iou.Amount("100", "GBP"), iou.Amount("40", "GBP"), "alice", "bob")
				iou.CheckBalance(ii, "alice", iou.Amount("40", "GBP"))
				iou.CheckBalance(ii, "bob", iou.Amount("110", "GBP"))

				// paying the rest closes the obligation
				res = iou.SettleIOU(ii, "bob", linearID, iou.Amount("60", "GBP"))
				Expect(res.Closed).To(BeTrue())
				iou.CheckClosed(ii, linearID, "alice", "bob")
				iou.CheckBalance(ii, "alice", iou.Amount("100", "GBP"))
				iou.CheckBalance(ii, "bob", iou.Amount("50", "GBP"))
			})

			It("rejects settlements the borrower cannot afford", func() {
				linearID := iou.CreateIOU(ii, "alice", "bob", iou.Amount("100", "GBP"))

				iou.Fund(ii, "bob", iou.Amount("5", "GBP"))
				_, err := ii.Node("bob").Settle(context.Background(), linearID, iou.Amount("10", "GBP"))
				hasKind(err, errors2.ErrInsufficientFunds)

				// more than the outstanding amount
				iou.Fund(ii, "bob", iou.Amount("500", "GBP"))
				_, err = ii.Node("bob").Settle(context.Background(), linearID, iou.Amount("101", "GBP"))
				hasKind(err, errors2.ErrOverpayment)

				_, err = ii.Node("bob").Settle(context.Background(), linearID, iou.Amount("10", "EUR"))
				hasKind(err, errors2.ErrValidation)

				// nothing moved
				iou.CheckState(ii, linearID, "alice", "bob", iou.Amount("100", "GBP"), iou.Amount("0", "GBP"), "alice", "bob")
				iou.CheckBalance(ii, "bob", iou.Amount("505", "GBP"))
			})

			It("transfers to a new lender", func() {
				linearID := iou.CreateIOU(ii, "alice", "dave", iou.Amount("70", "USD"))
				iou.TransferIOU(ii, "alice", linearID, "charlie")
				iou.CheckState(ii, linearID, "charlie", "dave", iou.Amount("70", "USD"), iou.Amount("0", "USD"), "charlie", "dave")

				// the new lender is paid
				iou.Fund(ii, "dave", iou.Amount("70", "USD"))
				iou.SettleIOU(ii, "dave", linearID, iou.Amount("70", "USD"))
				iou.CheckClosed(ii, linearID, "charlie", "dave")
				iou.CheckBalance(ii, "charlie", iou.Amount("70", "USD"))
				iou.CheckBalance(ii, "alice", iou.Amount("0", "USD"))
			})

			It("lets only the lender transfer and only the borrower settle", func() {
				linearID := iou.CreateIOU(ii, "alice", "bob", iou.Amount("100", "GBP"))

				_, err := ii.Node("bob").Transfer(context.Background(), linearID, ii.ID("charlie"))
				hasKind(err, errors2.ErrUnauthorized)

				iou.Fund(ii, "alice", iou.Amount("100", "GBP"))
				_, err = ii.Node("alice").Settle(context.Background(), linearID, iou.Amount("10", "GBP"))
				hasKind(err, errors2.ErrUnauthorized)

				_, err = ii.Node("charlie").Settle(context.Background(), linearID, iou.Amount("10", "GBP"))
				hasKind(err, errors2.ErrStateNotFound)
			})

			It("closes after repeated partial settlements", func() {
				linearID := iou.CreateIOU(ii, "alice", "bob", iou.Amount("10", "GBP"))
				iou.Fund(ii, "bob", iou.Amount("10", "GBP"))
				for i, part := range []string{"2.5", "2.5", "1", "4"} {
					res := iou.SettleIOU(ii, "bob", linearID, iou.Amount(part, "GBP"))
					Expect(res.Closed).To(Equal(i == 3))
				}
				iou.CheckClosed(ii, linearID, "alice", "bob")
				iou.CheckBalance(ii, "alice", iou.Amount("10", "GBP"))
				iou.CheckBalance(ii, "bob", iou.Amount("0", "GBP"))
			})

			It("accepts one of two concurrent settlements", func() {
				linearID := iou.CreateIOU(ii, "alice", "bob", iou.Amount("100", "GBP"))
				iou.Fund(ii, "bob", iou.Amount("100", "GBP"))

				var wg sync.WaitGroup
				results := make([]*views.Result, 2)
				failures := make([]error, 2)
				for i := range results {
					wg.Add(1)
					go func(i int) {
						defer GinkgoRecover()
						defer wg.Done()
						results[i], failures[i] = ii.Node("bob").Settle(context.Background(), linearID, iou.Amount("30", "GBP"))
					}(i)
				}
				wg.Wait()
				ii.Wait()

				// either the processes serialized and both went through, or exactly one lost the race
				succeeded := 0
				for _, err := range failures {
					if err == nil {
						succeeded++
						continue
					}
					Expect(errors2.Kind(err)).To(BeElementOf(errors2.ErrNotaryConflict, errors2.ErrStateNotFound, errors2.ErrAmbiguousState, errors2.ErrSignatureRefused), err.Error())
				}
				Expect(succeeded).To(BeNumerically(">=", 1))
				paid := iou.Amount(strconv.Itoa(30*succeeded), "GBP")
				iou.CheckState(ii, linearID, "alice", "bob", iou.Amount("100", "GBP"), paid, "alice", "bob")
				iou.CheckBalance(ii, "alice", paid)
			})
		})
	}

	Describe("IOU life cycle across restarts", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "iou-e2e")
			Expect(err).NotTo(HaveOccurred())
			ii = iou.NewInfrastructure(&iou.Opts{Nodes: []string{"alice", "bob"}, Policy: "input", Dir: dir})
		})
		AfterEach(func() {
			ii.Stop()
			Expect(os.RemoveAll(dir)).To(Succeed())
		})

		It("keeps obligations and resumes interrupted processes", func() {
			linearID := iou.CreateIOU(ii, "alice", "bob", iou.Amount("100", "GBP"))

			ii.Network.Hub.SetLinkDown(ii.ID("alice"), true)
			iou.Fund(ii, "bob", iou.Amount("50", "GBP"))
			_, err := ii.Node("bob").Settle(context.Background(), linearID, iou.Amount("50", "GBP"))
			hasKind(err, errors2.ErrTransport)

			ii.Node("bob").Stop()
			ii.Node("alice").Stop()
			ii.Network.Hub.SetLinkDown(ii.ID("alice"), false)
			ii.Start("alice", "input")
			ii.Start("bob", "input")

			iou.CheckState(ii, linearID, "alice", "bob", iou.Amount("100", "GBP"), iou.Amount("0", "GBP"), "alice", "bob")
			outcomes, err := ii.Node("bob").ResumeAll(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(outcomes).To(HaveLen(1))
			ii.Wait()
			iou.CheckState(ii, linearID, "alice", "bob", iou.Amount("100", "GBP"), iou.Amount("50", "GBP"), "alice", "bob")
			iou.CheckBalance(ii, "alice", iou.Amount("50", "GBP"))
		})
	})
})
