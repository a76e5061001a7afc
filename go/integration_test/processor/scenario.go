// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package processor

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Iolite/go/state"
	"github.com/Fantom-foundation/Iolite/go/tosca"
)

// Scenario represents a test scenario for a transaction processor. A scenario
// consists of a world state before and after the operation, a transaction to
// be executed, block chain parameters, and the expected receipt.
type Scenario struct {
	Before      state.WorldState
	After       state.WorldState
	Parameters  tosca.BlockParameters
	Transaction tosca.Transaction
	Receipt     tosca.Receipt
}

func (s *Scenario) Run(t *testing.T, processor tosca.Processor) {
	t.Helper()
	context := state.NewContext(s.Before)
	receipt, err := processor.Run(s.Parameters, s.Transaction, context)
	if err != nil {
		t.Fatalf("failed to run transaction: %v", err)
	}

	if want, got := s.After, context.State(); !want.Equal(got) {
		diff := strings.Join(got.Diff(want), "\n\t")
		t.Fatalf("unexpected world state after the operation: \n\t%v", diff)
	}

	if want, got := s.Receipt.Success, receipt.Success; want != got {
		t.Errorf("unexpected success, want %v, got %v", want, got)
	}
	if want, got := s.Receipt.GasUsed, receipt.GasUsed; want != got {
		t.Errorf("unexpected gas used, want %v, got %v", want, got)
	}
	if want, got := s.Receipt.Output, receipt.Output; !bytes.Equal(want, got) {
		t.Errorf("unexpected output, want %x, got %x", want, got)
	}
	if want, got := s.Receipt.MetaLogs, receipt.MetaLogs; !want.Equal(got) {
		t.Errorf("unexpected meta logs, want %v, got %v", want, got)
	}
	if want, got := s.Receipt.MetaGasUsed, receipt.MetaGasUsed; want != got {
		t.Errorf("unexpected meta gas used, want %d, got %d", want, got)
	}

	if len(receipt.Logs) != len(s.Receipt.Logs) {
		t.Fatalf("unexpected receipt logs: %v", receipt.Logs)
	}
	for i, want := range s.Receipt.Logs {
		got := receipt.Logs[i]
		if want, got := want.Address, got.Address; want != got {
			t.Errorf("unexpected receipt log address, want %v, got %v", want, got)
		}
		if want, got := want.Topics, got.Topics; !slices.Equal(want, got) {
			t.Errorf("unexpected receipt log topics, want %v, got %v", want, got)
		}
		if want, got := want.Data, got.Data; !bytes.Equal(want, got) {
			t.Errorf("unexpected receipt data, want %x, got %x", want, got)
		}
	}
}
