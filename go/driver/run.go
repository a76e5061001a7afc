// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"

	"github.com/Fantom-foundation/Iolite/go/fixture"
	"github.com/Fantom-foundation/Iolite/go/processor/floria"
	"github.com/Fantom-foundation/Iolite/go/state"
	"github.com/Fantom-foundation/Iolite/go/types"
	"github.com/urfave/cli/v2"
)

var RunCmd = cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Execute the transaction of a state test fixture and print its receipt",
	ArgsUsage: "<fixture>",
	Flags: []cli.Flag{
		InterpreterFlag,
		OutcomeFlag,
		CacheSizeFlag,
		MetaGasFlag,
		ChargeMetaGasFlag,
	},
}

func doRun(context *cli.Context) error {
	if context.Args().Len() < 1 {
		return fmt.Errorf("missing fixture, usage: run %s", context.Command.ArgsUsage)
	}
	test, err := fixture.Load(context.Args().Get(0))
	if err != nil {
		return err
	}

	interpreter, err := InterpreterFlag.Fetch(context)
	if err != nil {
		return err
	}
	outcomeKind, err := OutcomeFlag.Fetch(context)
	if err != nil {
		return err
	}

	pre, err := test.WorldState()
	if err != nil {
		return err
	}
	blockParameters, err := test.Env.BlockParameters()
	if err != nil {
		return err
	}
	transaction, err := test.Transaction.ToTosca()
	if err != nil {
		return err
	}

	processor := floria.NewProcessor(interpreter, fetchProcessorConfig(context))
	transactionContext := state.NewContext(pre)
	result, err := processor.Run(blockParameters, transaction, transactionContext)
	if err != nil {
		return fmt.Errorf("failed to process transaction: %w", err)
	}
	post := transactionContext.State()

	var outcome types.TransactionOutcome
	switch outcomeKind {
	case types.OutcomeStatusCode:
		outcome = types.StatusOutcome(result.Success)
	case types.OutcomeStateRoot:
		outcome = types.StateRootOutcome(post.Digest())
	default:
		outcome = types.UnknownOutcome()
	}
	receipt := types.ReceiptFromResult(outcome, result)
	encoded, err := types.EncodeReceipt(receipt)
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}

	out := context.App.Writer
	fmt.Fprintf(out, "sender:   %v\n", transaction.Sender)
	fmt.Fprintf(out, "success:  %t\n", result.Success)
	fmt.Fprintf(out, "output:   0x%x\n", result.Output)
	if result.ContractAddress != nil {
		fmt.Fprintf(out, "contract: %v\n", *result.ContractAddress)
	}
	fmt.Fprintf(out, "receipt:  %v\n", receipt)
	fmt.Fprintf(out, "rlp:      0x%x\n", encoded)
	for _, diff := range pre.Diff(post) {
		fmt.Fprintf(out, "state:    %s\n", diff)
	}
	return nil
}
