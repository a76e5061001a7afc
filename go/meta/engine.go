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

import "github.com/Fantom-foundation/Iolite/go/tosca"

//go:generate mockgen -source engine.go -destination engine_mock.go -package meta

// BalanceReader provides read access to account balances.
type BalanceReader interface {
	GetBalance(tosca.Address) tosca.Value
}

// Ledger is the state provider used by simple payers to move funds directly.
type Ledger interface {
	BalanceReader
	SetBalance(tosca.Address, tosca.Value)
}

// VirtualEngine is the read handle on an execution engine. Transactions run
// through it must not leave any persistent effect on the world state, neither
// on balances, code, storage, nonces nor logs.
type VirtualEngine interface {
	TransactVirtual(tosca.Transaction) (Execution, error)
}

// Engine is the write handle on an execution engine. Transactions run through
// it modify the world state in the context of the transaction currently being
// processed. Holders of an Engine must have exclusive access to it.
type Engine interface {
	BalanceReader
	Transact(tosca.Transaction) (Execution, error)
}

// Execution summarizes the result of running a transaction on an engine.
type Execution struct {
	Success bool // false if the execution was reverted or failed
	Output  tosca.Data
	GasUsed tosca.Gas
	Logs    []tosca.Log
}
