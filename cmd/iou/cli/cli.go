/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cli drives a local IOU network from the command line.
// Every node keeps its data under the data directory, so obligations outlive a single invocation.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperledger-labs/iou-smart-client/pkg/utils/errors"
	"github.com/hyperledger-labs/iou-smart-client/platform/iou/states"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const CmdRoot = "iou"

// Version is set at build time
var Version = "dev"

type options struct {
	v *viper.Viper

	dataDir string
	nodes   []string
	policy  string
	as      string
}

// NewCmd returns the root command. Every persistent flag can be set
// through an environment variable as well, e.g. IOU_NOTARY_POLICY.
func NewCmd() *cobra.Command {
	o := &options{v: viper.New()}
	o.v.SetEnvPrefix(CmdRoot)
	o.v.AutomaticEnv()
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	mainCmd := &cobra.Command{
		Use:          CmdRoot,
		Short:        "Record, transfer and settle IOUs between the nodes of a local network",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load()
		},
	}
	flags := mainCmd.PersistentFlags()
	flags.String("data", "./iou-data", "directory holding the data of the notary and the nodes")
	flags.StringSlice("nodes", []string{"alice", "bob"}, "aliases of the nodes of the network")
	flags.String("notary-policy", "input", "notary selection policy, input or fixed")
	flags.String("as", "", "alias of the node running the command")
	if err := o.v.BindPFlags(flags); err != nil {
		panic(err)
	}

	mainCmd.AddCommand(
		issueCmd(o),
		transferCmd(o),
		settleCmd(o),
		fundCmd(o),
		queryCmd(o),
		balanceCmd(o),
		resumeCmd(o),
		versionCmd(),
	)
	return mainCmd
}

func (o *options) load() error {
	o.dataDir = o.v.GetString("data")
	o.nodes = o.v.GetStringSlice("nodes")
	o.policy = o.v.GetString("notary-policy")
	o.as = o.v.GetString("as")
	if len(o.dataDir) == 0 {
		return errors.New("data directory not set")
	}
	if len(o.nodes) == 0 {
		return errors.New("no nodes configured")
	}
	return nil
}

// run opens the network, hands the node running the command to f and prints its result
func (o *options) run(cmd *cobra.Command, f func(ctx context.Context, n *network) (interface{}, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if len(o.as) == 0 {
		return errors.New("--as must name the node running the command")
	}
	n, err := openNetwork(ctx, o.dataDir, o.nodes, o.policy)
	if err != nil {
		return err
	}
	defer n.close()

	res, err := f(ctx, n)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func amountFlags(cmd *cobra.Command) {
	cmd.Flags().String("amount", "", "quantity, e.g. 10.50")
	cmd.Flags().String("currency", "", "currency code, e.g. GBP")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("currency")
}

func amountOf(cmd *cobra.Command) (states.Amount, error) {
	q, _ := cmd.Flags().GetString("amount")
	c, _ := cmd.Flags().GetString("currency")
	return states.NewAmount(q, c)
}

func issueCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Record that the borrower owes an amount to the node running the command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := amountOf(cmd)
			if err != nil {
				return err
			}
			borrower, _ := cmd.Flags().GetString("borrower")
			return o.run(cmd, func(ctx context.Context, n *network) (interface{}, error) {
				node, err := n.node(o.as)
				if err != nil {
					return nil, err
				}
				b, err := n.identity(borrower)
				if err != nil {
					return nil, err
				}
				return node.Issue(ctx, amount, node.Identity(), b)
			})
		},
	}
	amountFlags(cmd)
	cmd.Flags().String("borrower", "", "alias of the borrower")
	_ = cmd.MarkFlagRequired("borrower")
	return cmd
}

func transferCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Hand an obligation over to a new lender",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			linearID, _ := cmd.Flags().GetString("id")
			to, _ := cmd.Flags().GetString("to")
			return o.run(cmd, func(ctx context.Context, n *network) (interface{}, error) {
				node, err := n.node(o.as)
				if err != nil {
					return nil, err
				}
				lender, err := n.identity(to)
				if err != nil {
					return nil, err
				}
				return node.Transfer(ctx, linearID, lender)
			})
		},
	}
	cmd.Flags().String("id", "", "linear id of the obligation")
	cmd.Flags().String("to", "", "alias of the new lender")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func settleCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Pay an amount off an obligation with the cash of the node running the command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := amountOf(cmd)
			if err != nil {
				return err
			}
			linearID, _ := cmd.Flags().GetString("id")
			return o.run(cmd, func(ctx context.Context, n *network) (interface{}, error) {
				node, err := n.node(o.as)
				if err != nil {
					return nil, err
				}
				return node.Settle(ctx, linearID, amount)
			})
		},
	}
	amountFlags(cmd)
	cmd.Flags().String("id", "", "linear id of the obligation")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func fundCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Issue cash to the node running the command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := amountOf(cmd)
			if err != nil {
				return err
			}
			return o.run(cmd, func(ctx context.Context, n *network) (interface{}, error) {
				node, err := n.node(o.as)
				if err != nil {
					return nil, err
				}
				if err := node.IssueCash(ctx, amount); err != nil {
					return nil, err
				}
				return node.Balance(ctx, amount.Currency)
			})
		},
	}
	amountFlags(cmd)
	return cmd
}

// Obligation is the printable form of an IOU
type Obligation struct {
	LinearID string `json:"linearId"`
	Lender   string `json:"lender"`
	Borrower string `json:"borrower"`
	Amount   string `json:"amount"`
	Paid     string `json:"paid"`
}

func queryCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Show the current version of an obligation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			linearID, _ := cmd.Flags().GetString("id")
			return o.run(cmd, func(ctx context.Context, n *network) (interface{}, error) {
				node, err := n.node(o.as)
				if err != nil {
					return nil, err
				}
				iou, err := node.Query(ctx, linearID)
				if err != nil {
					return nil, err
				}
				return &Obligation{
					LinearID: iou.LinearID,
					Lender:   n.alias(iou.Lender),
					Borrower: n.alias(iou.Borrower),
					Amount:   iou.Amount.String(),
					Paid:     iou.Paid.String(),
				}, nil
			})
		},
	}
	cmd.Flags().String("id", "", "linear id of the obligation")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func balanceCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the cash held by the node running the command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			currency, _ := cmd.Flags().GetString("currency")
			return o.run(cmd, func(ctx context.Context, n *network) (interface{}, error) {
				node, err := n.node(o.as)
				if err != nil {
					return nil, err
				}
				return node.Balance(ctx, currency)
			})
		},
	}
	cmd.Flags().String("currency", "", "currency code, e.g. GBP")
	_ = cmd.MarkFlagRequired("currency")
	return cmd
}

func resumeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Continue the processes the node running the command did not complete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, func(ctx context.Context, n *network) (interface{}, error) {
				node, err := n.node(o.as)
				if err != nil {
					return nil, err
				}
				return node.ResumeAll(ctx)
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", CmdRoot, Version)
		},
	}
}
