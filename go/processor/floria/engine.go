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
	"slices"

	"github.com/Fantom-foundation/Iolite/go/meta"
	"github.com/Fantom-foundation/Iolite/go/tosca"
)

// engine runs transactions issued by the metadata pipeline inside the context
// of the transaction being processed. It serves as the read handle, the
// write handle and the ledger of the pipeline.
type engine struct {
	context               tosca.TransactionContext
	interpreter           tosca.Interpreter
	blockParameters       tosca.BlockParameters
	transactionParameters tosca.TransactionParameters
}

func newEngine(
	interpreter tosca.Interpreter,
	blockParameters tosca.BlockParameters,
	transaction tosca.Transaction,
	context tosca.TransactionContext,
) *engine {
	return &engine{
		context:         context,
		interpreter:     interpreter,
		blockParameters: blockParameters,
		transactionParameters: tosca.TransactionParameters{
			Origin:   transaction.Sender,
			GasPrice: transaction.GasPrice,
		},
	}
}

func (e *engine) GetBalance(address tosca.Address) tosca.Value {
	return e.context.GetBalance(address)
}

func (e *engine) SetBalance(address tosca.Address, value tosca.Value) {
	e.context.SetBalance(address, value)
}

// TransactVirtual runs the transaction and reverts all of its effects,
// including emitted logs.
func (e *engine) TransactVirtual(transaction tosca.Transaction) (meta.Execution, error) {
	snapshot := e.context.CreateSnapshot()
	defer e.context.RestoreSnapshot(snapshot)
	return e.transact(transaction)
}

// Transact runs the transaction and keeps its effects if it succeeds.
func (e *engine) Transact(transaction tosca.Transaction) (meta.Execution, error) {
	snapshot := e.context.CreateSnapshot()
	execution, err := e.transact(transaction)
	if err != nil || !execution.Success {
		e.context.RestoreSnapshot(snapshot)
	}
	return execution, err
}

func (e *engine) transact(transaction tosca.Transaction) (meta.Execution, error) {
	if transaction.Recipient == nil {
		return meta.Execution{}, fmt.Errorf("engine does not support contract creation")
	}
	logsBefore := len(e.context.GetLogs())
	runContext := runContext{
		TransactionContext:    e.context,
		interpreter:           e.interpreter,
		blockParameters:       e.blockParameters,
		transactionParameters: e.transactionParameters,
	}
	result, err := runContext.Call(tosca.Call, tosca.CallParameters{
		Sender:    transaction.Sender,
		Recipient: *transaction.Recipient,
		Value:     transaction.Value,
		Input:     transaction.Input,
		Gas:       transaction.GasLimit,
	})
	if err != nil {
		return meta.Execution{}, err
	}

	var logs []tosca.Log
	if all := e.context.GetLogs(); len(all) > logsBefore {
		logs = slices.Clone(all[logsBefore:])
	}
	return meta.Execution{
		Success: result.Success,
		Output:  result.Output,
		GasUsed: transaction.GasLimit - result.GasLeft,
		Logs:    logs,
	}, nil
}
