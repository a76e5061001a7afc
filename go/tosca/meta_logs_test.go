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
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

func TestMetaLogs_EmptyByDefault(t *testing.T) {
	logs := MetaLogs{}
	if !logs.IsEmpty() || logs.Len() != 0 {
		t.Errorf("default meta logs should be empty")
	}
	total, ok := logs.Total()
	if !ok || total != (Value{}) {
		t.Errorf("empty meta logs should total zero, got %v, %v", total, ok)
	}
}

func TestMetaLogs_PushKeepsPayoutOrder(t *testing.T) {
	logs := MetaLogs{}
	logs.Push(Address{1}, NewValue(10))
	logs.Push(Address{2}, NewValue(20))
	logs.Push(Address{1}, NewValue(30))

	want := []MetaLogEntry{
		{Address{1}, NewValue(10)},
		{Address{2}, NewValue(20)},
		{Address{1}, NewValue(30)},
	}
	got := logs.Entries()
	if len(got) != len(want) {
		t.Fatalf("unexpected number of entries, wanted %d, got %d", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("unexpected entry %d, wanted %v, got %v", i, want[i], got[i])
		}
	}
	if total, ok := logs.Total(); !ok || total != NewValue(60) {
		t.Errorf("unexpected total %v", total)
	}
}

func TestMetaLogs_CloneIsIndependent(t *testing.T) {
	original := NewMetaLogs(MetaLogEntry{Address{1}, NewValue(1)})
	clone := original.Clone()
	clone.Push(Address{2}, NewValue(2))

	if original.Len() != 1 {
		t.Errorf("modifying the clone changed the original")
	}
	entries := original.Entries()
	entries[0].Amount = NewValue(5)
	if original.At(0).Amount != NewValue(1) {
		t.Errorf("modifying the entries copy changed the original")
	}
}

func TestMetaLogs_TotalDetectsOverflow(t *testing.T) {
	max := ValueFromUint256(new(uint256.Int).SetAllOne())
	logs := NewMetaLogs(
		MetaLogEntry{Address{1}, max},
		MetaLogEntry{Address{2}, NewValue(1)},
	)
	if _, ok := logs.Total(); ok {
		t.Errorf("overflow of total not detected")
	}
}

func TestMetaLogs_EncodingIsListOfPairs(t *testing.T) {
	logs := NewMetaLogs(MetaLogEntry{Address{0xaa}, NewValue(100)})
	encoded, err := rlp.EncodeToBytes(logs)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	// [[0xaa00..00, 100]]
	want := "d7d694aa0000000000000000000000000000000000000064"
	if got := hex.EncodeToString(encoded); want != got {
		t.Errorf("unexpected encoding, wanted %v, got %v", want, got)
	}

	empty, err := rlp.EncodeToBytes(MetaLogs{})
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if !bytes.Equal(empty, []byte{0xc0}) {
		t.Errorf("empty meta logs should encode as empty list, got %x", empty)
	}
}

func TestMetaLogs_EncodingMatchesGenericEncoder(t *testing.T) {
	logs := NewMetaLogs(
		MetaLogEntry{Address{1}, NewValue(0)},
		MetaLogEntry{Address{2}, NewValue(1, 2, 3, 4)},
	)
	want, err := rlp.EncodeToBytes([]any{
		[]any{Address{1}, uint64(0)},
		[]any{Address{2}, NewValue(1, 2, 3, 4).ToUint256()},
	})
	if err != nil {
		t.Fatalf("failed to encode reference: %v", err)
	}
	got, err := rlp.EncodeToBytes(logs)
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if !bytes.Equal(want, got) {
		t.Errorf("unexpected encoding, wanted %x, got %x", want, got)
	}
}

func TestMetaLogs_RLPRoundTrip(t *testing.T) {
	tests := map[string]MetaLogs{
		"empty":  {},
		"single": NewMetaLogs(MetaLogEntry{Address{1}, NewValue(100)}),
		"multiple": NewMetaLogs(
			MetaLogEntry{Address{1}, NewValue(100)},
			MetaLogEntry{Address{2}, NewValue()},
			MetaLogEntry{Address{3}, NewValue(1, 0, 0, 0)},
		),
	}
	for name, logs := range tests {
		t.Run(name, func(t *testing.T) {
			encoded, err := rlp.EncodeToBytes(logs)
			if err != nil {
				t.Fatalf("failed to encode: %v", err)
			}
			var restored MetaLogs
			if err := rlp.DecodeBytes(encoded, &restored); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if !logs.Equal(restored) {
				t.Errorf("unexpected restored logs, wanted %v, got %v", logs, restored)
			}
		})
	}
}

func TestMetaLogs_MalformedEncodingsAreRejected(t *testing.T) {
	tests := map[string]any{
		"not a list":       []byte{1, 2, 3},
		"entry not a list": []any{[]byte{1}},
		"short recipient":  []any{[]any{[]byte{1, 2}, uint64(1)}},
		"missing amount":   []any{[]any{Address{1}}},
		"extra field":      []any{[]any{Address{1}, uint64(1), uint64(2)}},
		"amount is a list": []any{[]any{Address{1}, []any{}}},
		"amount too large": []any{[]any{Address{1}, make([]byte, 33)}},
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			encoded, err := rlp.EncodeToBytes(input)
			if err != nil {
				t.Fatalf("failed to encode input: %v", err)
			}
			var logs MetaLogs
			if err := rlp.DecodeBytes(encoded, &logs); err == nil {
				t.Errorf("expected decoding to fail, got %v", logs)
			}
		})
	}
}
