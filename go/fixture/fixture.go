// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package fixture reads JSON state test fixtures. A fixture describes the
// environment of a block, the accounts existing before a transaction, and
// the transaction itself, including its metadata.
package fixture

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/Fantom-foundation/Iolite/go/state"
	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/crypto"
)

type Fixture struct {
	Env         Env                `json:"env"`
	Pre         map[string]Account `json:"pre"`
	Transaction Transaction        `json:"transaction"`
}

// Env is the block environment of a fixture.
type Env struct {
	Coinbase  MaybeAddress `json:"currentCoinbase"`
	GasLimit  Uint         `json:"currentGasLimit"`
	Number    Uint         `json:"currentNumber"`
	Timestamp Uint         `json:"currentTimestamp"`
	BaseFee   Uint         `json:"currentBaseFee"`
	ChainID   Uint         `json:"chainId"`
}

type Account struct {
	Balance Uint            `json:"balance"`
	Nonce   Uint            `json:"nonce"`
	Code    Bytes           `json:"code"`
	Storage map[string]Uint `json:"storage"`
}

// Transaction is a transaction of a state test. The sender is derived from
// the secret key. An empty recipient denotes a contract creation.
type Transaction struct {
	Data          Bytes        `json:"data"`
	GasLimit      Uint         `json:"gasLimit"`
	GasPrice      Uint         `json:"gasPrice"`
	Nonce         Uint         `json:"nonce"`
	SecretKey     Bytes        `json:"secretKey"`
	To            MaybeAddress `json:"to"`
	Value         Uint         `json:"value"`
	Metadata      Bytes        `json:"metadata"`
	MetadataLimit Uint         `json:"metadataLimit"`
	IsOld         Bool         `json:"isOld"`
}

// Load reads a fixture from the given file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fixture, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return fixture, nil
}

func Parse(data []byte) (*Fixture, error) {
	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, err
	}
	return &fixture, nil
}

// Sender derives the address of the sender from the secret key.
func (t *Transaction) Sender() (tosca.Address, error) {
	if len(t.SecretKey) == 0 {
		return tosca.Address{}, fmt.Errorf("transaction has no secret key")
	}
	key, err := crypto.ToECDSA(t.SecretKey)
	if err != nil {
		return tosca.Address{}, fmt.Errorf("invalid secret key: %w", err)
	}
	return tosca.Address(crypto.PubkeyToAddress(key.PublicKey)), nil
}

// ToTosca converts the fixture transaction into a transaction executable by
// a tosca.Processor.
func (t *Transaction) ToTosca() (tosca.Transaction, error) {
	sender, err := t.Sender()
	if err != nil {
		return tosca.Transaction{}, err
	}
	if !t.GasLimit.IsUint64() || t.GasLimit.Uint64() > math.MaxInt64 {
		return tosca.Transaction{}, fmt.Errorf("gas limit %v out of range", &t.GasLimit.Int)
	}
	if !t.Nonce.IsUint64() {
		return tosca.Transaction{}, fmt.Errorf("nonce %v out of range", &t.Nonce.Int)
	}
	return tosca.Transaction{
		Sender:        sender,
		Recipient:     t.To.Get(),
		Nonce:         t.Nonce.Uint64(),
		Input:         tosca.Data(t.Data),
		Value:         t.Value.Value(),
		GasLimit:      tosca.Gas(t.GasLimit.Uint64()),
		GasPrice:      t.GasPrice.Value(),
		Metadata:      tosca.Data(t.Metadata),
		MetadataLimit: t.MetadataLimit.Value(),
		Legacy:        bool(t.IsOld),
	}, nil
}

// BlockParameters converts the environment into the parameters of the block
// the transaction is executed in.
func (e *Env) BlockParameters() (tosca.BlockParameters, error) {
	res := tosca.BlockParameters{
		ChainID: tosca.Word(e.ChainID.Value()),
		BaseFee: e.BaseFee.Value(),
	}
	if coinbase := e.Coinbase.Get(); coinbase != nil {
		res.Coinbase = *coinbase
	}
	for _, field := range []struct {
		name  string
		value *Uint
		limit uint64
	}{
		{"block number", &e.Number, math.MaxInt64},
		{"timestamp", &e.Timestamp, math.MaxInt64},
		{"gas limit", &e.GasLimit, math.MaxInt64},
	} {
		if !field.value.IsUint64() || field.value.Uint64() > field.limit {
			return tosca.BlockParameters{}, fmt.Errorf("%s %v out of range", field.name, &field.value.Int)
		}
	}
	res.BlockNumber = int64(e.Number.Uint64())
	res.Timestamp = int64(e.Timestamp.Uint64())
	res.GasLimit = tosca.Gas(e.GasLimit.Uint64())
	return res, nil
}

// WorldState converts the pre-state of the fixture into a world state.
func (f *Fixture) WorldState() (state.WorldState, error) {
	res := state.WorldState{}
	for key, account := range f.Pre {
		address, err := parseAddress(key)
		if err != nil {
			return nil, err
		}
		if !account.Nonce.IsUint64() {
			return nil, fmt.Errorf("nonce of %v out of range", address)
		}
		converted := state.Account{
			Balance: account.Balance.Value(),
			Nonce:   account.Nonce.Uint64(),
			Code:    tosca.Code(account.Code),
		}
		if len(account.Storage) > 0 {
			converted.Storage = state.Storage{}
			for slot, value := range account.Storage {
				key, err := parseUint(slot)
				if err != nil {
					return nil, fmt.Errorf("invalid storage key of %v: %w", address, err)
				}
				converted.Storage[tosca.Key(key.Bytes32())] = tosca.Word(value.Value())
			}
		}
		res[address] = converted
	}
	return res, nil
}
