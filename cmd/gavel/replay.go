// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/blinklabs-io/gavel"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/blinklabs-io/gavel/internal/node"
	"github.com/blinklabs-io/gavel/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	okStyle      = color.New(color.FgGreen)
	failStyle    = color.New(color.FgRed)
	headerStyle  = color.New(color.Bold, color.FgHiWhite)
	pendingStyle = color.New(color.FgYellow)
)

func replayCommand() *cobra.Command {
	var dbPath string
	var noColor bool
	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Apply a script of blocks and show receipts and proposal states",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			if noColor {
				color.NoColor = true
			}
			logger := commonRunWriter(os.Stderr)
			script, err := ledger.LoadScript(args[0])
			if err != nil {
				return err
			}
			n, err := gavel.New(
				node.NodeConfig(
					cfg,
					logger,
					nil,
					gavel.WithDatabasePath(dbPath),
					gavel.WithMetadataDSN(""),
					gavel.WithGenesis(script.Genesis),
					gavel.WithApiListenAddress(""),
					gavel.WithJournal(""),
					gavel.WithTracing(false),
				),
			)
			if err != nil {
				return err
			}
			defer n.Stop() //nolint:errcheck
			if err := n.Open(cmd.Context()); err != nil {
				return err
			}
			results, runErr := n.Ledger().RunScript(cmd.Context(), script)
			out := cmd.OutOrStdout()
			renderReceipts(out, results)
			proposals, err := n.Ledger().Proposals()
			if err != nil {
				return err
			}
			renderProposals(out, proposals, n.Ledger().Labels())
			return runErr
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "database directory to replay into (default in-memory)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Options.DrawBorder = false
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(header)
	return t
}

func shortHash(h *common.Hash) string {
	if h == nil {
		return ""
	}
	hex := h.Hex()
	return hex[:10] + ".." + hex[len(hex)-4:]
}

func renderReceipts(w io.Writer, results []ledger.BlockResult) {
	receipts := lo.FlatMap(results, func(r ledger.BlockResult, _ int) []ledger.Receipt {
		return r.Receipts
	})
	succeeded := lo.CountBy(receipts, func(r ledger.Receipt) bool {
		return r.Succeeded()
	})
	headerStyle.Fprintf(
		w,
		"Blocks: %d  Transactions: %d  Succeeded: %d  Failed: %d\n",
		len(results),
		len(receipts),
		succeeded,
		len(receipts)-succeeded,
	)
	t := newTable(table.Row{"Height", "Timestamp", "#", "Kind", "Reference", "Result"})
	for _, result := range results {
		for _, receipt := range result.Receipts {
			ref := shortHash(receipt.ProposalID)
			if ref == "" {
				ref = shortHash(receipt.OperationID)
			}
			if ref == "" && receipt.Weight != nil {
				ref = "weight " + strconv.FormatUint(*receipt.Weight, 10)
			}
			status := okStyle.Sprint("ok")
			if !receipt.Succeeded() {
				status = failStyle.Sprint(receipt.Error)
			}
			t.AppendRow(table.Row{
				result.Block.Height,
				result.Block.Timestamp,
				receipt.Index,
				string(receipt.Kind),
				ref,
				status,
			})
		}
	}
	fmt.Fprintln(w, t.Render())
}

func stateStyle(state governor.State) *color.Color {
	switch state {
	case governor.StateExecuted, governor.StateSucceeded:
		return okStyle
	case governor.StateDefeated, governor.StateCanceled, governor.StateExpired:
		return failStyle
	default:
		return pendingStyle
	}
}

func renderProposals(w io.Writer, proposals []governor.Proposal, labels map[string]common.Hash) {
	names := lo.Invert(labels)
	headerStyle.Fprintf(w, "Proposals: %d\n", len(proposals))
	t := newTable(table.Row{"Label", "Proposal", "State", "For", "Against", "Abstain", "Quorum"})
	for _, p := range proposals {
		id := p.ID
		t.AppendRow(table.Row{
			names[p.ID],
			shortHash(&id),
			stateStyle(p.State).Sprint(p.State.String()),
			p.Tally.For,
			p.Tally.Against,
			p.Tally.Abstain,
			p.Quorum,
		})
	}
	fmt.Fprintln(w, t.Render())
}
