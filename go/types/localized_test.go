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
	"testing"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/holiman/uint256"
)

func TestRichReceipt_LocalizeNumbersLogs(t *testing.T) {
	logs := []LogEntry{
		{Address: tosca.Address{1}},
		{Address: tosca.Address{2}},
	}
	rich := RichReceipt{
		Receipt:           NewReceipt(StatusCodeOutcome(1), *uint256.NewInt(10), uint256.Int{}, logs, tosca.MetaLogs{}),
		TransactionHash:   tosca.Hash{7},
		TransactionIndex:  3,
		CumulativeGasUsed: *uint256.NewInt(100),
	}
	localized := rich.Localize(tosca.Hash{8}, 12, 5)

	if localized.BlockHash != (tosca.Hash{8}) || localized.BlockNumber != 12 {
		t.Errorf("unexpected block position %v/%d", localized.BlockHash, localized.BlockNumber)
	}
	if localized.Outcome() != StatusCodeOutcome(1) || localized.TransactionIndex != 3 {
		t.Errorf("localized receipt should project the rich receipt")
	}
	entries := localized.LocalizedLogs()
	if len(entries) != 2 {
		t.Fatalf("unexpected number of logs %d", len(entries))
	}
	for i, entry := range entries {
		if entry.LogIndex != 5+i || entry.TransactionLogIndex != i {
			t.Errorf("unexpected indexes of log %d: %d/%d", i, entry.LogIndex, entry.TransactionLogIndex)
		}
		if entry.TransactionHash != (tosca.Hash{7}) || entry.BlockNumber != 12 || entry.BlockHash != (tosca.Hash{8}) {
			t.Errorf("unexpected position of log %d", i)
		}
		if !entry.LogEntry.Equal(logs[i]) {
			t.Errorf("unexpected log entry %v", entry.LogEntry)
		}
	}

	entries[0].Address = tosca.Address{9}
	if localized.LocalizedLogs()[0].Address != (tosca.Address{1}) {
		t.Errorf("localized logs were modified")
	}
}
