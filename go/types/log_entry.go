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
	"bytes"
	"fmt"
	"slices"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// LogEntry is a log recorded in a receipt. Its RLP encoding is the list
// [address, topics, data].
type LogEntry struct {
	Address tosca.Address
	Topics  []tosca.Hash
	Data    tosca.Data
}

// LogEntryFromLog converts a log emitted during execution.
func LogEntryFromLog(log tosca.Log) LogEntry {
	return LogEntry{
		Address: log.Address,
		Topics:  slices.Clone(log.Topics),
		Data:    bytes.Clone(log.Data),
	}
}

// Bloom computes the bloom filter covering the address and topics of the
// entry.
func (l LogEntry) Bloom() gethtypes.Bloom {
	var bloom gethtypes.Bloom
	bloom.Add(l.Address[:])
	for _, topic := range l.Topics {
		bloom.Add(topic[:])
	}
	return bloom
}

func (l LogEntry) Equal(other LogEntry) bool {
	return l.Address == other.Address &&
		slices.Equal(l.Topics, other.Topics) &&
		bytes.Equal(l.Data, other.Data)
}

func (l LogEntry) Clone() LogEntry {
	return LogEntry{
		Address: l.Address,
		Topics:  slices.Clone(l.Topics),
		Data:    bytes.Clone(l.Data),
	}
}

func (l LogEntry) String() string {
	return fmt.Sprintf("{address: %v, topics: %v, data: 0x%x}", l.Address, l.Topics, []byte(l.Data))
}

// foldBloom combines the blooms of all given entries.
func foldBloom(logs []LogEntry) gethtypes.Bloom {
	var res gethtypes.Bloom
	for _, log := range logs {
		bloom := log.Bloom()
		for i := range res {
			res[i] |= bloom[i]
		}
	}
	return res
}

func cloneLogEntries(logs []LogEntry) []LogEntry {
	if logs == nil {
		return nil
	}
	res := make([]LogEntry, len(logs))
	for i, log := range logs {
		res[i] = log.Clone()
	}
	return res
}
