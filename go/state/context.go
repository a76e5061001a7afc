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
)

// Context is an in-memory tosca.TransactionContext. All modifications are
// journaled so that snapshots can be restored, including emitted logs.
// A Context is not safe for concurrent use.
type Context struct {
	current WorldState
	logs    []tosca.Log
	undo    []func()
}

// NewContext creates a context operating on a copy of the given state.
func NewContext(initial WorldState) *Context {
	if initial == nil {
		initial = WorldState{}
	}
	return &Context{current: initial.Clone()}
}

// State returns a copy of the current world state.
func (c *Context) State() WorldState {
	return c.current.Clone()
}

func (c *Context) AccountExists(addr tosca.Address) bool {
	return c.GetBalance(addr) != tosca.Value{} || c.GetNonce(addr) != 0 || c.GetCodeSize(addr) != 0
}

func (c *Context) GetBalance(addr tosca.Address) tosca.Value {
	return c.current[addr].Balance
}

func (c *Context) SetBalance(addr tosca.Address, value tosca.Value) {
	c.update(addr, func(account *Account) { account.Balance = value })
}

func (c *Context) GetNonce(addr tosca.Address) uint64 {
	return c.current[addr].Nonce
}

func (c *Context) SetNonce(addr tosca.Address, value uint64) {
	c.update(addr, func(account *Account) { account.Nonce = value })
}

func (c *Context) GetCode(addr tosca.Address) tosca.Code {
	return bytes.Clone(c.current[addr].Code)
}

func (c *Context) GetCodeHash(addr tosca.Address) tosca.Hash {
	return tosca.Hash(crypto.Keccak256Hash(c.current[addr].Code))
}

func (c *Context) GetCodeSize(addr tosca.Address) int {
	return len(c.current[addr].Code)
}

func (c *Context) SetCode(addr tosca.Address, code tosca.Code) {
	c.update(addr, func(account *Account) { account.Code = bytes.Clone(code) })
}

func (c *Context) GetStorage(addr tosca.Address, key tosca.Key) tosca.Word {
	return c.current[addr].Storage[key]
}

func (c *Context) SetStorage(addr tosca.Address, key tosca.Key, value tosca.Word) {
	c.update(addr, func(account *Account) {
		account.Storage = account.Storage.Clone()
		if account.Storage == nil {
			account.Storage = Storage{}
		}
		account.Storage[key] = value
	})
}

func (c *Context) CreateSnapshot() tosca.Snapshot {
	return tosca.Snapshot(len(c.undo))
}

func (c *Context) RestoreSnapshot(snapshot tosca.Snapshot) {
	for len(c.undo) > int(snapshot) {
		c.undo[len(c.undo)-1]()
		c.undo = c.undo[:len(c.undo)-1]
	}
}

func (c *Context) EmitLog(log tosca.Log) {
	size := len(c.logs)
	c.logs = append(c.logs, log)
	c.undo = append(c.undo, func() { c.logs = c.logs[:size] })
}

func (c *Context) GetLogs() []tosca.Log {
	return slices.Clone(c.logs)
}

// update applies the given modification to a copy of the account and records
// the previous version in the journal.
func (c *Context) update(addr tosca.Address, modify func(*Account)) {
	original, existed := c.current[addr]
	modified := original
	modify(&modified)
	c.current[addr] = modified
	c.undo = append(c.undo, func() {
		if existed {
			c.current[addr] = original
		} else {
			delete(c.current, addr)
		}
	})
}
