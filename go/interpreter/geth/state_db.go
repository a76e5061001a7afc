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
	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/stateless"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	geth "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie/utils"
	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"
)

// transferFunc subtracts amount from sender and adds amount to recipient using the given Db
func transferFunc(stateDB geth.StateDB, callerAddress common.Address, to common.Address, value *uint256.Int) {
	stateDB.SubBalance(callerAddress, value, tracing.BalanceChangeTransfer)
	stateDB.AddBalance(to, value, tracing.BalanceChangeTransfer)
}

// canTransferFunc is the signature of a transfer function
func canTransferFunc(stateDB geth.StateDB, callerAddress common.Address, value *uint256.Int) bool {
	return stateDB.GetBalance(callerAddress).Cmp(value) >= 0
}

type slot struct {
	address tosca.Address
	key     tosca.Key
}

// local is the part of the state a tosca.TransactionContext does not track.
// It lives for a single interpreter run.
type local struct {
	refund     uint64
	accounts   map[tosca.Address]struct{}
	slots      map[slot]struct{}
	transient  map[slot]tosca.Word
	destructed map[tosca.Address]struct{}
}

func (l *local) clone() local {
	return local{
		refund:     l.refund,
		accounts:   maps.Clone(l.accounts),
		slots:      maps.Clone(l.slots),
		transient:  maps.Clone(l.transient),
		destructed: maps.Clone(l.destructed),
	}
}

// stateDbAdapter adapts the tosca.TransactionContext interface for its usage
// as a geth.StateDB. Access lists, transient storage and self-destruct marks
// are kept by the adapter and reverted together with the context.
type stateDbAdapter struct {
	context tosca.TransactionContext
	local
	lastBeneficiary tosca.Address
	backups         map[tosca.Snapshot]local
}

func newStateDbAdapter(context tosca.TransactionContext) *stateDbAdapter {
	return &stateDbAdapter{
		context: context,
		local: local{
			accounts:   map[tosca.Address]struct{}{},
			slots:      map[slot]struct{}{},
			transient:  map[slot]tosca.Word{},
			destructed: map[tosca.Address]struct{}{},
		},
		backups: map[tosca.Snapshot]local{},
	}
}

func (s *stateDbAdapter) warmAccount(address tosca.Address) {
	s.accounts[address] = struct{}{}
}

func (s *stateDbAdapter) CreateAccount(common.Address) {
	// ignored: accounts are created implicitly by the context
}

func (s *stateDbAdapter) CreateContract(common.Address) {
	// ignored: accounts are created implicitly by the context
}

func (s *stateDbAdapter) SubBalance(addr common.Address, diff *uint256.Int, _ tracing.BalanceChangeReason) {
	account := tosca.Address(addr)
	cur := s.context.GetBalance(account)
	s.context.SetBalance(account, tosca.Sub(cur, tosca.ValueFromUint256(diff)))
}

func (s *stateDbAdapter) AddBalance(addr common.Address, diff *uint256.Int, _ tracing.BalanceChangeReason) {
	account := tosca.Address(addr)
	cur := s.context.GetBalance(account)
	s.context.SetBalance(account, tosca.Add(cur, tosca.ValueFromUint256(diff)))

	// we save this address to be used as the beneficiary in a selfdestruct case.
	s.lastBeneficiary = account
}

func (s *stateDbAdapter) GetBalance(addr common.Address) *uint256.Int {
	value := s.context.GetBalance(tosca.Address(addr))
	return value.ToUint256()
}

func (s *stateDbAdapter) GetNonce(addr common.Address) uint64 {
	return s.context.GetNonce(tosca.Address(addr))
}

func (s *stateDbAdapter) SetNonce(addr common.Address, nonce uint64) {
	s.context.SetNonce(tosca.Address(addr), nonce)
}

func (s *stateDbAdapter) GetCodeHash(addr common.Address) common.Hash {
	return common.Hash(s.context.GetCodeHash(tosca.Address(addr)))
}

func (s *stateDbAdapter) GetCode(addr common.Address) []byte {
	return s.context.GetCode(tosca.Address(addr))
}

func (s *stateDbAdapter) SetCode(addr common.Address, code []byte) {
	s.context.SetCode(tosca.Address(addr), code)
}

func (s *stateDbAdapter) GetCodeSize(addr common.Address) int {
	return s.context.GetCodeSize(tosca.Address(addr))
}

func (s *stateDbAdapter) AddRefund(value uint64) {
	s.refund += value
}

func (s *stateDbAdapter) SubRefund(value uint64) {
	s.refund -= value
}

func (s *stateDbAdapter) GetRefund() uint64 {
	return s.refund
}

// GetCommittedState reports the current value since the context keeps no
// record of the values at the start of the transaction.
func (s *stateDbAdapter) GetCommittedState(addr common.Address, key common.Hash) common.Hash {
	return s.GetState(addr, key)
}

func (s *stateDbAdapter) GetState(addr common.Address, key common.Hash) common.Hash {
	return common.Hash(s.context.GetStorage(tosca.Address(addr), tosca.Key(key)))
}

func (s *stateDbAdapter) SetState(addr common.Address, key common.Hash, value common.Hash) {
	s.context.SetStorage(tosca.Address(addr), tosca.Key(key), tosca.Word(value))
}

func (s *stateDbAdapter) GetStorageRoot(addr common.Address) common.Hash {
	// ignored: storage roots are not tracked
	return common.Hash{}
}

func (s *stateDbAdapter) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	return common.Hash(s.transient[slot{tosca.Address(addr), tosca.Key(key)}])
}

func (s *stateDbAdapter) SetTransientState(addr common.Address, key, value common.Hash) {
	s.transient[slot{tosca.Address(addr), tosca.Key(key)}] = tosca.Word(value)
}

func (s *stateDbAdapter) SelfDestruct(addr common.Address) {
	s.context.SetBalance(tosca.Address(addr), tosca.Value{})
	s.destructed[tosca.Address(addr)] = struct{}{}
}

func (s *stateDbAdapter) HasSelfDestructed(addr common.Address) bool {
	_, found := s.destructed[tosca.Address(addr)]
	return found
}

func (s *stateDbAdapter) Selfdestruct6780(addr common.Address) {
	s.destructed[tosca.Address(addr)] = struct{}{}
}

func (s *stateDbAdapter) Exist(addr common.Address) bool {
	return s.context.AccountExists(tosca.Address(addr))
}

func (s *stateDbAdapter) Empty(addr common.Address) bool {
	return s.GetBalance(addr).IsZero() && s.GetNonce(addr) == 0 && s.GetCodeSize(addr) == 0
}

func (s *stateDbAdapter) AddressInAccessList(addr common.Address) bool {
	_, found := s.accounts[tosca.Address(addr)]
	return found
}

func (s *stateDbAdapter) SlotInAccessList(addr common.Address, key common.Hash) (addressOk bool, slotOk bool) {
	_, slotOk = s.slots[slot{tosca.Address(addr), tosca.Key(key)}]
	return s.AddressInAccessList(addr), slotOk
}

func (s *stateDbAdapter) AddAddressToAccessList(addr common.Address) {
	s.warmAccount(tosca.Address(addr))
}

func (s *stateDbAdapter) AddSlotToAccessList(addr common.Address, key common.Hash) {
	s.warmAccount(tosca.Address(addr))
	s.slots[slot{tosca.Address(addr), tosca.Key(key)}] = struct{}{}
}

func (s *stateDbAdapter) Prepare(rules params.Rules, sender, coinbase common.Address, dest *common.Address, precompiles []common.Address, txAccesses types.AccessList) {
	s.AddAddressToAccessList(sender)
	if dest != nil {
		s.AddAddressToAccessList(*dest)
	}
	for _, addr := range precompiles {
		s.AddAddressToAccessList(addr)
	}
	for _, el := range txAccesses {
		s.AddAddressToAccessList(el.Address)
		for _, key := range el.StorageKeys {
			s.AddSlotToAccessList(el.Address, key)
		}
	}
	if rules.IsShanghai {
		s.AddAddressToAccessList(coinbase)
	}
}

func (s *stateDbAdapter) PrepareAccessList(sender common.Address, dest *common.Address, precompiles []common.Address, txAccesses types.AccessList) {
	s.Prepare(params.Rules{}, sender, common.Address{}, dest, precompiles, txAccesses)
}

func (s *stateDbAdapter) RevertToSnapshot(snapshot int) {
	id := tosca.Snapshot(snapshot)
	s.context.RestoreSnapshot(id)
	if backup, found := s.backups[id]; found {
		s.local = backup.clone()
	}
}

func (s *stateDbAdapter) Snapshot() int {
	id := s.context.CreateSnapshot()
	s.backups[id] = s.local.clone()
	return int(id)
}

func (s *stateDbAdapter) AddLog(log *types.Log) {
	topics := make([]tosca.Hash, 0, len(log.Topics))
	for _, cur := range log.Topics {
		topics = append(topics, tosca.Hash(cur))
	}
	s.context.EmitLog(tosca.Log{
		Address: tosca.Address(log.Address),
		Topics:  topics,
		Data:    log.Data,
	})
}

func (s *stateDbAdapter) GetLogs() []tosca.Log {
	return s.context.GetLogs()
}

func (s *stateDbAdapter) AddPreimage(common.Hash, []byte) {
	// ignored: preimages are not recorded
}

func (s *stateDbAdapter) ForEachStorage(common.Address, func(common.Hash, common.Hash) bool) error {
	panic("storage iteration is not supported by the context")
}

func (s *stateDbAdapter) PointCache() *utils.PointCache {
	// see https://eips.ethereum.org/EIPS/eip-4762
	panic("should not be needed by revisions up to Cancun")
}

func (s *stateDbAdapter) Witness() *stateless.Witness {
	// this should not be relevant for revisions up to Cancun
	return nil
}
