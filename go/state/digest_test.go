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
)

func TestWorldState_DigestIgnoresEmptyContent(t *testing.T) {
	a := WorldState{
		{1}: Account{Balance: tosca.NewValue(10), Storage: Storage{{1}: {2}}},
		{2}: Account{},
	}
	b := WorldState{
		{1}: Account{Balance: tosca.NewValue(10), Storage: Storage{{1}: {2}, {3}: {}}},
	}
	if a.Digest() != b.Digest() {
		t.Errorf("equal states should have equal digests")
	}
	if (WorldState{}).Digest() != (WorldState(nil)).Digest() {
		t.Errorf("empty states should have equal digests")
	}
}

func TestWorldState_DigestCoversAllFields(t *testing.T) {
	base := WorldState{{1}: Account{Balance: tosca.NewValue(10), Nonce: 1, Code: tosca.Code{0x00}, Storage: Storage{{1}: {2}}}}
	variants := map[string]WorldState{
		"balance": {{1}: Account{Balance: tosca.NewValue(11), Nonce: 1, Code: tosca.Code{0x00}, Storage: Storage{{1}: {2}}}},
		"nonce":   {{1}: Account{Balance: tosca.NewValue(10), Nonce: 2, Code: tosca.Code{0x00}, Storage: Storage{{1}: {2}}}},
		"code":    {{1}: Account{Balance: tosca.NewValue(10), Nonce: 1, Code: tosca.Code{0x01}, Storage: Storage{{1}: {2}}}},
		"storage": {{1}: Account{Balance: tosca.NewValue(10), Nonce: 1, Code: tosca.Code{0x00}, Storage: Storage{{1}: {3}}}},
		"address": {{2}: Account{Balance: tosca.NewValue(10), Nonce: 1, Code: tosca.Code{0x00}, Storage: Storage{{1}: {2}}}},
	}
	for name, variant := range variants {
		if variant.Digest() == base.Digest() {
			t.Errorf("digest does not cover %s", name)
		}
	}
}

func TestWorldState_DigestIsIndependentOfInsertionOrder(t *testing.T) {
	a := WorldState{}
	b := WorldState{}
	for i := byte(0); i < 20; i++ {
		a[tosca.Address{i}] = Account{Nonce: uint64(i) + 1}
		b[tosca.Address{19 - i}] = Account{Nonce: uint64(19-i) + 1}
	}
	if a.Digest() != b.Digest() {
		t.Errorf("digest depends on insertion order")
	}
}
