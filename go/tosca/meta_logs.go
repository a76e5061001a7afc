// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tosca

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// MetaLogEntry is a single payout instruction obtained from the metadata
// payload of a transaction.
type MetaLogEntry struct {
	Recipient Address
	Amount    Value
}

// MetaLogs is the ordered list of payout instructions of a transaction. The
// order of the entries is the order in which payouts are applied.
//
// The RLP encoding is a list of [recipient, amount] pairs. The same encoding
// is used for simple metadata payloads and within receipts.
type MetaLogs struct {
	entries []MetaLogEntry
}

// NewMetaLogs creates MetaLogs holding a copy of the given entries.
func NewMetaLogs(entries ...MetaLogEntry) MetaLogs {
	return MetaLogs{entries: slices.Clone(entries)}
}

// Push appends a payout to the end of the list.
func (m *MetaLogs) Push(recipient Address, amount Value) {
	m.entries = append(m.entries, MetaLogEntry{Recipient: recipient, Amount: amount})
}

func (m MetaLogs) Len() int {
	return len(m.entries)
}

func (m MetaLogs) IsEmpty() bool {
	return len(m.entries) == 0
}

// At returns the i-th entry. It panics if i is out of range.
func (m MetaLogs) At(i int) MetaLogEntry {
	return m.entries[i]
}

// Entries returns a copy of all entries in payout order.
func (m MetaLogs) Entries() []MetaLogEntry {
	return slices.Clone(m.entries)
}

func (m MetaLogs) Clone() MetaLogs {
	return MetaLogs{entries: slices.Clone(m.entries)}
}

func (m MetaLogs) Equal(other MetaLogs) bool {
	return slices.Equal(m.entries, other.entries)
}

// Total sums up the amounts of all entries. The second result is false if
// the sum does not fit into 256 bits.
func (m MetaLogs) Total() (Value, bool) {
	total := new(uint256.Int)
	for _, entry := range m.entries {
		if _, overflow := total.AddOverflow(total, entry.Amount.ToUint256()); overflow {
			return Value{}, false
		}
	}
	return ValueFromUint256(total), true
}

func (m MetaLogs) String() string {
	parts := make([]string, 0, len(m.entries))
	for _, entry := range m.entries {
		parts = append(parts, fmt.Sprintf("%v:%v", entry.Recipient, entry.Amount))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (m MetaLogs) EncodeRLP(w io.Writer) error {
	buffer := rlp.NewEncoderBuffer(w)
	list := buffer.List()
	for _, entry := range m.entries {
		pair := buffer.List()
		buffer.WriteBytes(entry.Recipient[:])
		buffer.WriteUint256(entry.Amount.ToUint256())
		buffer.ListEnd(pair)
	}
	buffer.ListEnd(list)
	return buffer.Flush()
}

func (m *MetaLogs) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	var entries []MetaLogEntry
	for s.MoreDataInList() {
		if _, err := s.List(); err != nil {
			return err
		}
		var entry MetaLogEntry
		if err := s.ReadBytes(entry.Recipient[:]); err != nil {
			return fmt.Errorf("invalid meta log recipient: %w", err)
		}
		var amount uint256.Int
		if err := s.ReadUint256(&amount); err != nil {
			return fmt.Errorf("invalid meta log amount: %w", err)
		}
		entry.Amount = ValueFromUint256(&amount)
		if err := s.ListEnd(); err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	if err := s.ListEnd(); err != nil {
		return err
	}
	m.entries = entries
	return nil
}
