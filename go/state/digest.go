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
	"bytes"
	"slices"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

type digestAccount struct {
	Address  tosca.Address
	Balance  tosca.Value
	Nonce    uint64
	CodeHash tosca.Hash
	Storage  []digestSlot
}

type digestSlot struct {
	Key   tosca.Key
	Value tosca.Word
}

// Digest computes a hash committing to the content of the world state. Empty
// accounts and zero storage values do not contribute, so states that are
// Equal have the same digest. The digest is not a Merkle-Patricia trie root.
func (s WorldState) Digest() tosca.Hash {
	accounts := make([]digestAccount, 0, len(s))
	for address, account := range s {
		if account.Equal(&Account{}) {
			continue
		}
		entry := digestAccount{
			Address:  address,
			Balance:  account.Balance,
			Nonce:    account.Nonce,
			CodeHash: tosca.Hash(crypto.Keccak256(account.Code)),
		}
		for key, value := range account.Storage {
			if value != (tosca.Word{}) {
				entry.Storage = append(entry.Storage, digestSlot{key, value})
			}
		}
		slices.SortFunc(entry.Storage, func(a, b digestSlot) int {
			return bytes.Compare(a.Key[:], b.Key[:])
		})
		accounts = append(accounts, entry)
	}
	slices.SortFunc(accounts, func(a, b digestAccount) int {
		return bytes.Compare(a.Address[:], b.Address[:])
	})

	encoded, err := rlp.EncodeToBytes(accounts)
	if err != nil {
		// fixed-size fields and lists always encode
		panic(err)
	}
	return tosca.Hash(crypto.Keccak256(encoded))
}
