// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package meta

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Kind distinguishes the two families of metadata handling.
type Kind int

const (
	// Simple metadata carries the RLP encoded meta logs directly. Payments
	// are booked on a ledger.
	Simple Kind = iota
	// Business metadata carries a descriptor of a call to the recipient
	// contract deriving the payout. Payments are executed as transfers.
	Business
)

func (k Kind) String() string {
	switch k {
	case Simple:
		return "simple"
	case Business:
		return "business"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// businessOutputSize is the size of the (address, uint256) tuple returned by
// the business call, each part occupying one 32-byte word.
const businessOutputSize = 64

var businessOutputArguments = abi.Arguments{
	{Name: "recipient", Type: mustNewType("address")},
	{Name: "amount", Type: mustNewType("uint256")},
}

func mustNewType(name string) abi.Type {
	res, err := abi.NewType(name, "", nil)
	if err != nil {
		panic(fmt.Sprintf("invalid ABI type %q: %v", name, err))
	}
	return res
}

// Executor derives meta logs from a metadata payload. Executors are created
// by one of the constructors and used for a single transaction.
type Executor struct {
	kind     Kind
	metadata tosca.Data
	gas      ExecutorGasFunc
	cache    *metaLogsCache

	// only used by business executors
	transaction tosca.Transaction
	engine      VirtualEngine
}

// NewSimpleExecutor creates an executor decoding meta logs from the given
// payload.
func NewSimpleExecutor(metadata tosca.Data) *Executor {
	return &Executor{kind: Simple, metadata: metadata}
}

// NewBusinessExecutor creates an executor deriving a single meta log entry
// from the output of a read-only call to the recipient of the transaction.
func NewBusinessExecutor(metadata tosca.Data, transaction tosca.Transaction, engine VirtualEngine) *Executor {
	return &Executor{
		kind:        Business,
		metadata:    metadata,
		transaction: transaction,
		engine:      engine,
	}
}

func (e *Executor) Kind() Kind {
	return e.kind
}

// IntrinsicGas is the gas charged for carrying the metadata payload. It is a
// pure function of the payload.
func (e *Executor) IntrinsicGas() uint64 {
	if e.gas == nil {
		return 0
	}
	return e.gas(e.metadata)
}

// Execute derives the meta logs described by the payload.
func (e *Executor) Execute() (tosca.MetaLogs, error) {
	switch e.kind {
	case Simple:
		return e.executeSimple()
	case Business:
		return e.executeBusiness()
	}
	return tosca.MetaLogs{}, fmt.Errorf("unsupported executor kind %v", e.kind)
}

func (e *Executor) executeSimple() (tosca.MetaLogs, error) {
	if len(e.metadata) == 0 {
		return tosca.MetaLogs{}, nil
	}
	if logs, found := e.cache.get(e.metadata); found {
		return logs, nil
	}
	var logs tosca.MetaLogs
	if err := rlp.DecodeBytes(e.metadata, &logs); err != nil {
		return tosca.MetaLogs{}, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}
	e.cache.add(e.metadata, logs)
	return logs, nil
}

// executeBusiness calls the recipient with the metadata payload as call data.
// The gas used by the virtual call is not charged.
func (e *Executor) executeBusiness() (tosca.MetaLogs, error) {
	if len(e.metadata) == 0 {
		return tosca.MetaLogs{}, ErrEmptyMetadata
	}
	descriptor, err := DecodeBusinessMetadata(e.metadata)
	if err != nil {
		return tosca.MetaLogs{}, err
	}
	result, err := e.engine.TransactVirtual(descriptor.View(e.transaction, e.metadata))
	if err != nil {
		return tosca.MetaLogs{}, fmt.Errorf("%w: %w", ErrBusinessCallFailed, err)
	}
	if !result.Success {
		return tosca.MetaLogs{}, ErrBusinessCallFailed
	}
	recipient, amount, err := parseBusinessOutput(result.Output)
	if err != nil {
		return tosca.MetaLogs{}, err
	}
	return tosca.NewMetaLogs(tosca.MetaLogEntry{Recipient: recipient, Amount: amount}), nil
}

// parseBusinessOutput splits the output of a business call into the paid
// address, narrowed from the first word, and the amount in the second word.
func parseBusinessOutput(output tosca.Data) (tosca.Address, tosca.Value, error) {
	if len(output) != businessOutputSize {
		return tosca.Address{}, tosca.Value{}, fmt.Errorf("%w, got %d bytes", ErrInvalidBusinessOutput, len(output))
	}
	values, err := businessOutputArguments.Unpack(output)
	if err != nil {
		return tosca.Address{}, tosca.Value{}, fmt.Errorf("%w: %w", ErrInvalidBusinessOutput, err)
	}
	recipient, ok := values[0].(common.Address)
	if !ok {
		return tosca.Address{}, tosca.Value{}, fmt.Errorf("%w: unexpected recipient type %T", ErrInvalidBusinessOutput, values[0])
	}
	amount, ok := values[1].(*big.Int)
	if !ok {
		return tosca.Address{}, tosca.Value{}, fmt.Errorf("%w: unexpected amount type %T", ErrInvalidBusinessOutput, values[1])
	}
	return tosca.Address(recipient), tosca.ValueFromUint256(uint256.MustFromBig(amount)), nil
}
