// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package types

import (
	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/holiman/uint256"
)

// RichReceipt is a receipt enriched by the position of its transaction
// within a block that is not yet sealed.
type RichReceipt struct {
	Receipt
	TransactionHash   tosca.Hash
	TransactionIndex  int
	CumulativeGasUsed uint256.Int
	ContractAddress   *tosca.Address
}

// LocalizedLogEntry is a log entry annotated with its position in the chain.
type LocalizedLogEntry struct {
	LogEntry
	BlockHash           tosca.Hash
	BlockNumber         uint64
	TransactionHash     tosca.Hash
	TransactionIndex    int
	LogIndex            int // position among all logs of the block
	TransactionLogIndex int // position among the logs of the transaction
}

// LocalizedReceipt is a receipt of a transaction included in a sealed block.
type LocalizedReceipt struct {
	RichReceipt
	BlockHash   tosca.Hash
	BlockNumber uint64
	logs        []LocalizedLogEntry
}

// Localize places the receipt into a block. The firstLogIndex is the number
// of logs produced by the transactions preceding this one in the block.
func (r RichReceipt) Localize(blockHash tosca.Hash, blockNumber uint64, firstLogIndex int) LocalizedReceipt {
	logs := make([]LocalizedLogEntry, 0, len(r.logs))
	for i, log := range r.logs {
		logs = append(logs, LocalizedLogEntry{
			LogEntry:            log.Clone(),
			BlockHash:           blockHash,
			BlockNumber:         blockNumber,
			TransactionHash:     r.TransactionHash,
			TransactionIndex:    r.TransactionIndex,
			LogIndex:            firstLogIndex + i,
			TransactionLogIndex: i,
		})
	}
	return LocalizedReceipt{
		RichReceipt: r,
		BlockHash:   blockHash,
		BlockNumber: blockNumber,
		logs:        logs,
	}
}

func (r LocalizedReceipt) LocalizedLogs() []LocalizedLogEntry {
	res := make([]LocalizedLogEntry, len(r.logs))
	for i, log := range r.logs {
		res[i] = log
		res[i].LogEntry = log.LogEntry.Clone()
	}
	return res
}
