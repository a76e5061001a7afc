// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package floria

import (
	"fmt"

	"github.com/Fantom-foundation/Iolite/go/meta"
	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/log"
)

const (
	TxGas                   = 21_000
	TxGasContractCreation   = 53_000
	TxDataNonZeroGasEIP2028 = 16
	TxDataZeroGasEIP2028    = 4
)

func init() {
	tosca.RegisterProcessorFactory("floria", newProcessor)
}

// Config customizes the floria processor.
type Config struct {
	// Meta configures the metadata pipeline.
	Meta meta.Config
	// ChargeMetaGas makes the sender pay for the gas consumed by the metadata
	// pipeline. Otherwise the gas is only reported in the receipt.
	ChargeMetaGas bool
}

func newProcessor(interpreter tosca.Interpreter) tosca.Processor {
	return NewProcessor(interpreter, Config{})
}

// NewProcessor creates a processor running metadata with the given config.
func NewProcessor(interpreter tosca.Interpreter, config Config) tosca.Processor {
	return &processor{
		interpreter: interpreter,
		config:      config,
		unpacker:    meta.NewUnpacker(config.Meta),
	}
}

type processor struct {
	interpreter tosca.Interpreter
	config      Config
	unpacker    *meta.Unpacker
}

func (p *processor) Run(
	blockParams tosca.BlockParameters,
	transaction tosca.Transaction,
	context tosca.TransactionContext,
) (tosca.Receipt, error) {
	errorReceipt := tosca.Receipt{
		Success: false,
		GasUsed: transaction.GasLimit,
	}
	gas := transaction.GasLimit

	if err := buyGas(transaction, context); err != nil {
		log.Debug("Transaction rejected", "sender", transaction.Sender, "err", err)
		return errorReceipt, nil
	}

	intrinsicGas := setupGasBilling(transaction)
	if gas < intrinsicGas {
		return errorReceipt, nil
	}
	gas -= intrinsicGas

	if err := checkNonce(transaction, context); err != nil {
		log.Debug("Transaction rejected", "sender", transaction.Sender, "err", err)
		return errorReceipt, nil
	}

	runContext := runContext{
		TransactionContext: context,
		interpreter:        p.interpreter,
		blockParameters:    blockParams,
		transactionParameters: tosca.TransactionParameters{
			Origin:   transaction.Sender,
			GasPrice: transaction.GasPrice,
		},
	}

	var result tosca.CallResult
	var contractAddress *tosca.Address
	var err error
	if transaction.Recipient == nil {
		result, err = runContext.Call(tosca.Create, tosca.CallParameters{
			Sender: transaction.Sender,
			Value:  transaction.Value,
			Input:  transaction.Input,
			Gas:    gas,
		})
		if result.Success {
			contractAddress = &result.CreatedAddress
		}
	} else {
		handleNonce(transaction, context)
		result, err = runContext.Call(tosca.Call, tosca.CallParameters{
			Sender:    transaction.Sender,
			Recipient: *transaction.Recipient,
			Value:     transaction.Value,
			Input:     transaction.Input,
			Gas:       gas,
		})
	}
	if err != nil {
		return errorReceipt, err
	}

	gasLeft := result.GasLeft
	metaLogs := tosca.MetaLogs{}
	metaGas := uint64(0)
	if result.Success && transaction.HasMetadata() {
		engine := newEngine(p.interpreter, blockParams, transaction, context)
		metaLogs, metaGas = p.runMetadata(transaction, context, engine, gasLeft)
		if p.config.ChargeMetaGas {
			gasLeft -= tosca.Gas(metaGas)
		}
	}

	gasUsed := gasUsed(transaction, gasLeft)
	refundGas(transaction, context, transaction.GasLimit-gasUsed)
	if p.config.ChargeMetaGas {
		gasUsed -= tosca.Gas(metaGas)
	}

	return tosca.Receipt{
		Success:         result.Success,
		GasUsed:         gasUsed,
		ContractAddress: contractAddress,
		Output:          result.Output,
		Logs:            context.GetLogs(),
		MetaLogs:        metaLogs,
		MetaGasUsed:     metaGas,
	}, nil
}

func gasUsed(transaction tosca.Transaction, gasLeft tosca.Gas) tosca.Gas {
	// 10% of remaining gas is charged for non-internal transactions
	if transaction.Sender != (tosca.Address{}) {
		gasLeft -= gasLeft / 10
	}

	return transaction.GasLimit - gasLeft
}

func setupGasBilling(transaction tosca.Transaction) tosca.Gas {
	var gas tosca.Gas
	if transaction.Recipient == nil {
		gas = TxGasContractCreation
	} else {
		gas = TxGas
	}

	if len(transaction.Input) > 0 {
		nonZeroBytes := tosca.Gas(0)
		for _, inputByte := range transaction.Input {
			if inputByte != 0 {
				nonZeroBytes++
			}
		}
		zeroBytes := tosca.Gas(len(transaction.Input)) - nonZeroBytes
		gas += zeroBytes * TxDataZeroGasEIP2028
		gas += nonZeroBytes * TxDataNonZeroGasEIP2028
	}

	return gas
}

func checkNonce(transaction tosca.Transaction, context tosca.TransactionContext) error {
	stateNonce := context.GetNonce(transaction.Sender)
	messageNonce := transaction.Nonce
	if messageNonce != stateNonce {
		return fmt.Errorf("nonce mismatch: %v != %v", messageNonce, stateNonce)
	}
	return nil
}

// handleNonce increments the nonce of the sender. Contract creations get
// their nonce incremented while deriving the new contract address.
func handleNonce(transaction tosca.Transaction, context tosca.TransactionContext) {
	context.SetNonce(transaction.Sender, context.GetNonce(transaction.Sender)+1)
}

func buyGas(transaction tosca.Transaction, context tosca.TransactionContext) error {
	gas := transaction.GasPrice.Scale(uint64(transaction.GasLimit))

	// Buy gas
	senderBalance := context.GetBalance(transaction.Sender)
	if senderBalance.Cmp(gas) < 0 {
		return fmt.Errorf("insufficient balance: %v < %v", senderBalance, gas)
	}

	senderBalance = tosca.Sub(senderBalance, gas)
	context.SetBalance(transaction.Sender, senderBalance)

	return nil
}

func refundGas(transaction tosca.Transaction, context tosca.TransactionContext, gasLeft tosca.Gas) {
	if gasLeft <= 0 {
		return
	}
	refund := transaction.GasPrice.Scale(uint64(gasLeft))
	if refund.IsZero() {
		return
	}
	senderBalance := context.GetBalance(transaction.Sender)
	context.SetBalance(transaction.Sender, tosca.Add(senderBalance, refund))
}
