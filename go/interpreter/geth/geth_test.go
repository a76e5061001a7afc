// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package geth

import (
	"testing"

	"github.com/Fantom-foundation/Iolite/go/state"
	"github.com/Fantom-foundation/Iolite/go/tosca"
)

// recordingContext is a run context forwarding nested calls to a fixed
// result while recording their parameters.
type recordingContext struct {
	*state.Context
	calls  []tosca.CallParameters
	result tosca.CallResult
}

func (c *recordingContext) Call(kind tosca.CallKind, parameters tosca.CallParameters) (tosca.CallResult, error) {
	c.calls = append(c.calls, parameters)
	return c.result, nil
}

func runCode(t *testing.T, context *recordingContext, code tosca.Code, gas tosca.Gas) tosca.Result {
	t.Helper()
	interpreter, err := tosca.NewInterpreter("geth")
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	result, err := interpreter.Run(tosca.Parameters{
		Context:   context,
		Kind:      tosca.Call,
		Gas:       gas,
		Recipient: tosca.Address{0x20},
		Sender:    tosca.Address{0x10},
		Code:      code,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func newRecordingContext() *recordingContext {
	return &recordingContext{Context: state.NewContext(state.WorldState{
		tosca.Address{0x10}: {Balance: tosca.NewValue(1000)},
	})}
}

func TestGethVm_ResultsOfExecution(t *testing.T) {
	tests := map[string]struct {
		code    tosca.Code
		gas     tosca.Gas
		success bool
		output  tosca.Data
		gasLeft bool
	}{
		"stop": {
			code:    tosca.Code{0x00},
			gas:     100,
			success: true,
			gasLeft: true,
		},
		"return": {
			// PUSH1 42 PUSH1 0 MSTORE PUSH1 32 PUSH1 0 RETURN
			code:    tosca.Code{0x60, 0x2a, 0x60, 0x00, 0x52, 0x60, 0x20, 0x60, 0x00, 0xf3},
			gas:     100,
			success: true,
			output:  append(make(tosca.Data, 31), 0x2a),
			gasLeft: true,
		},
		"revert": {
			// PUSH1 0 PUSH1 0 REVERT
			code:    tosca.Code{0x60, 0x00, 0x60, 0x00, 0xfd},
			gas:     100,
			success: false,
			gasLeft: true,
		},
		"invalid": {
			code:    tosca.Code{0xfe},
			gas:     100,
			success: false,
		},
		"out of gas": {
			// PUSH1 1 PUSH1 2 SSTORE
			code:    tosca.Code{0x60, 0x01, 0x60, 0x02, 0x55},
			gas:     10,
			success: false,
		},
		"stack underflow": {
			code:    tosca.Code{0x01},
			gas:     100,
			success: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			result := runCode(t, newRecordingContext(), test.code, test.gas)
			if result.Success != test.success {
				t.Errorf("unexpected success, got %t, want %t", result.Success, test.success)
			}
			if string(result.Output) != string(test.output) {
				t.Errorf("unexpected output %x", result.Output)
			}
			if test.gasLeft != (result.GasLeft > 0) {
				t.Errorf("unexpected gas left %d", result.GasLeft)
			}
			if result.GasLeft > test.gas {
				t.Errorf("more gas left than provided")
			}
		})
	}
}

func TestGethVm_StorageAndLogsAreWrittenToTheContext(t *testing.T) {
	context := newRecordingContext()
	// PUSH1 1 PUSH1 2 SSTORE PUSH1 0 PUSH1 0 LOG0 STOP
	code := tosca.Code{0x60, 0x01, 0x60, 0x02, 0x55, 0x60, 0x00, 0x60, 0x00, 0xa0, 0x00}
	result := runCode(t, context, code, 100_000)
	if !result.Success {
		t.Fatalf("execution failed")
	}
	if got := context.GetStorage(tosca.Address{0x20}, tosca.Key(tosca.NewValue(2))); got != tosca.Word(tosca.NewValue(1)) {
		t.Errorf("unexpected storage value %v", got)
	}
	logs := context.GetLogs()
	if len(logs) != 1 || logs[0].Address != (tosca.Address{0x20}) {
		t.Errorf("unexpected logs %v", logs)
	}
}

func TestGethVm_NestedCallsAreRoutedThroughTheContext(t *testing.T) {
	context := newRecordingContext()
	context.result = tosca.CallResult{Success: true, GasLeft: 0}

	target := tosca.Address{0x30}
	// PUSH1 0 (x5) PUSH20 target PUSH2 0xffff CALL STOP
	code := tosca.Code{0x60, 0x00, 0x60, 0x00, 0x60, 0x00, 0x60, 0x00, 0x60, 0x00, 0x73}
	code = append(code, target[:]...)
	code = append(code, 0x61, 0xff, 0xff, 0xf1, 0x00)

	result := runCode(t, context, code, 100_000)
	if !result.Success {
		t.Fatalf("execution failed")
	}
	if len(context.calls) != 1 {
		t.Fatalf("expected a single nested call, got %d", len(context.calls))
	}
	call := context.calls[0]
	if call.Recipient != target || call.Sender != (tosca.Address{0x20}) {
		t.Errorf("unexpected call parameters %v", call)
	}
}

func TestStateDbAdapter_RevertRestoresLocalState(t *testing.T) {
	adapter := newStateDbAdapter(state.NewContext(nil))
	address := [20]byte{1}

	snapshot := adapter.Snapshot()
	adapter.AddSlotToAccessList(address, [32]byte{2})
	adapter.SetTransientState(address, [32]byte{3}, [32]byte{4})
	adapter.AddRefund(5)
	adapter.Selfdestruct6780(address)

	if !adapter.AddressInAccessList(address) || !adapter.HasSelfDestructed(address) {
		t.Fatalf("local state was not recorded")
	}

	adapter.RevertToSnapshot(snapshot)
	if adapter.AddressInAccessList(address) {
		t.Errorf("access list should be reverted")
	}
	if _, slotOk := adapter.SlotInAccessList(address, [32]byte{2}); slotOk {
		t.Errorf("slot access should be reverted")
	}
	if got := adapter.GetTransientState(address, [32]byte{3}); got != ([32]byte{}) {
		t.Errorf("transient storage should be reverted")
	}
	if adapter.GetRefund() != 0 || adapter.HasSelfDestructed(address) {
		t.Errorf("refund and self destruct marks should be reverted")
	}
}
