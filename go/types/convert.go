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

// ReceiptFromResult creates the stored receipt of a transaction processed by
// a tosca.Processor.
func ReceiptFromResult(outcome TransactionOutcome, receipt tosca.Receipt) Receipt {
	logs := make([]LogEntry, 0, len(receipt.Logs))
	for _, log := range receipt.Logs {
		logs = append(logs, LogEntryFromLog(log))
	}
	var gasUsed uint256.Int
	if receipt.GasUsed > 0 {
		gasUsed.SetUint64(uint64(receipt.GasUsed))
	}
	return NewReceipt(
		outcome,
		gasUsed,
		*uint256.NewInt(receipt.MetaGasUsed),
		logs,
		receipt.MetaLogs,
	)
}
