/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package iou

import (
	"context"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/views"
	. "github.com/onsi/gomega"
)

// CreateIOU has the lender record that the borrower owes amount.
// It returns once both parties stored the obligation.
func CreateIOU(ii *Infrastructure, lender, borrower string, amount states.Amount) string {
	res, err := ii.Node(lender).Issue(context.Background(), amount, ii.ID(lender), ii.ID(borrower))
	Expect(err).NotTo(HaveOccurred())
	Expect(res.LinearID).NotTo(BeEmpty())
	Expect(res.Undelivered).To(BeEmpty())
	ii.Wait()
	return res.LinearID
}

func TransferIOU(ii *Infrastructure, lender, linearID, newLender string) *views.Result {
	res, err := ii.Node(lender).Transfer(context.Background(), linearID, ii.ID(newLender))
	Expect(err).NotTo(HaveOccurred())
	ii.Wait()
	return res
}

func SettleIOU(ii *Infrastructure, borrower, linearID string, amount states.Amount) *views.Result {
	res, err := ii.Node(borrower).Settle(context.Background(), linearID, amount)
	Expect(err).NotTo(HaveOccurred())
	ii.Wait()
	return res
}

func Fund(ii *Infrastructure, alias string, amount states.Amount) {
	Expect(ii.Node(alias).IssueCash(context.Background(), amount)).To(Succeed())
}

// CheckState asserts that every passed node eventually sees the obligation with the expected fields
func CheckState(ii *Infrastructure, linearID, lender, borrower string, amount, paid states.Amount, aliases ...string) {
	for _, alias := range aliases {
		alias := alias
		Eventually(func() error {
			iou, err := ii.Node(alias).Query(context.Background(), linearID)
			if err != nil {
				return err
			}
			switch {
			case !iou.Lender.Equal(ii.ID(lender)):
				return errors.Errorf("[%s]: expected lender [%s], got [%s]", alias, lender, ii.alias(iou.Lender))
			case !iou.Borrower.Equal(ii.ID(borrower)):
				return errors.Errorf("[%s]: expected borrower [%s], got [%s]", alias, borrower, ii.alias(iou.Borrower))
			case !iou.Amount.Equal(amount):
				return errors.Errorf("[%s]: expected amount [%s], got [%s]", alias, amount, iou.Amount)
			case !iou.Paid.Equal(paid):
				return errors.Errorf("[%s]: expected paid [%s], got [%s]", alias, paid, iou.Paid)
			}
			return nil
		}).Should(Succeed())
	}
}

// CheckClosed asserts that no node sees the obligation anymore
func CheckClosed(ii *Infrastructure, linearID string, aliases ...string) {
	for _, alias := range aliases {
		alias := alias
		Eventually(func() error {
			_, err := ii.Node(alias).Query(context.Background(), linearID)
			return err
		}).Should(HaveOccurred(), "[%s] still sees [%s]", alias, linearID)
	}
}

func CheckBalance(ii *Infrastructure, alias string, expected states.Amount) {
	Eventually(func() (string, error) {
		b, err := ii.Node(alias).Balance(context.Background(), expected.Currency)
		if err != nil {
			return "", err
		}
		return b.Quantity.String(), nil
	}).Should(Equal(expected.Quantity.String()), "unexpected balance of [%s]", alias)
}
