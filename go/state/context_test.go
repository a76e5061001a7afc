// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"testing"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestContext_DoesNotModifyInitialState(t *testing.T) {
	initial := WorldState{{1}: Account{Balance: tosca.NewValue(10)}}
	context := NewContext(initial)
	context.SetBalance(tosca.Address{1}, tosca.NewValue(20))

	if want, got := tosca.NewValue(10), initial[tosca.Address{1}].Balance; want != got {
		t.Errorf("initial state was modified, wanted %v, got %v", want, got)
	}
	if want, got := tosca.NewValue(20), context.GetBalance(tosca.Address{1}); want != got {
		t.Errorf("unexpected balance, wanted %v, got %v", want, got)
	}
}

func TestContext_RestoreSnapshotRevertsAllModifications(t *testing.T) {
	initial := WorldState{
		{1}: Account{Balance: tosca.NewValue(10), Storage: Storage{{1}: {1}}},
	}
	context := NewContext(initial)
	context.SetNonce(tosca.Address{1}, 1)

	snapshot := context.CreateSnapshot()
	context.SetBalance(tosca.Address{1}, tosca.NewValue(5))
	context.SetBalance(tosca.Address{2}, tosca.NewValue(5))
	context.SetCode(tosca.Address{2}, tosca.Code{1, 2, 3})
	context.SetStorage(tosca.Address{1}, tosca.Key{1}, tosca.Word{9})
	context.SetStorage(tosca.Address{1}, tosca.Key{2}, tosca.Word{9})
	context.EmitLog(tosca.Log{Address: tosca.Address{1}})

	context.RestoreSnapshot(snapshot)

	want := WorldState{
		{1}: Account{Balance: tosca.NewValue(10), Nonce: 1, Storage: Storage{{1}: {1}}},
	}
	if got := context.State(); !want.Equal(got) {
		t.Errorf("unexpected state after restore: %v", got.Diff(want))
	}
	if _, found := context.State()[tosca.Address{2}]; found {
		t.Errorf("account created after the snapshot still present")
	}
	if logs := context.GetLogs(); len(logs) != 0 {
		t.Errorf("logs emitted after the snapshot are still present: %v", logs)
	}
}

func TestContext_NestedSnapshots(t *testing.T) {
	context := NewContext(nil)
	context.SetBalance(tosca.Address{1}, tosca.NewValue(1))
	outer := context.CreateSnapshot()
	context.SetBalance(tosca.Address{1}, tosca.NewValue(2))
	inner := context.CreateSnapshot()
	context.SetBalance(tosca.Address{1}, tosca.NewValue(3))

	context.RestoreSnapshot(inner)
	if want, got := tosca.NewValue(2), context.GetBalance(tosca.Address{1}); want != got {
		t.Errorf("unexpected balance after inner restore, wanted %v, got %v", want, got)
	}
	context.RestoreSnapshot(outer)
	if want, got := tosca.NewValue(1), context.GetBalance(tosca.Address{1}); want != got {
		t.Errorf("unexpected balance after outer restore, wanted %v, got %v", want, got)
	}
}

func TestContext_AccountExistence(t *testing.T) {
	context := NewContext(WorldState{
		{1}: Account{Balance: tosca.NewValue(1)},
		{2}: Account{Nonce: 1},
		{3}: Account{Code: tosca.Code{1}},
	})
	for _, address := range []tosca.Address{{1}, {2}, {3}} {
		if !context.AccountExists(address) {
			t.Errorf("account %v should exist", address)
		}
	}
	if context.AccountExists(tosca.Address{4}) {
		t.Errorf("account 4 should not exist")
	}
}

func TestContext_CodeAccessors(t *testing.T) {
	code := tosca.Code{0x60, 0x01}
	context := NewContext(WorldState{{1}: Account{Code: code}})

	if want, got := tosca.Hash(crypto.Keccak256Hash(code)), context.GetCodeHash(tosca.Address{1}); want != got {
		t.Errorf("unexpected code hash, wanted %v, got %v", want, got)
	}
	if want, got := 2, context.GetCodeSize(tosca.Address{1}); want != got {
		t.Errorf("unexpected code size, wanted %v, got %v", want, got)
	}
	returned := context.GetCode(tosca.Address{1})
	returned[0] = 0
	if context.GetCode(tosca.Address{1})[0] != 0x60 {
		t.Errorf("modifying returned code changed the state")
	}
}
