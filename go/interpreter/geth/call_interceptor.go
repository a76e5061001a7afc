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
	geth "github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
)

// callInterceptor forwards the calls and creations issued by geth's
// interpreter to the run context of the contract being executed.
type callInterceptor struct {
	parameters tosca.Parameters
	stateDb    *stateDbAdapter
	static     bool
}

func (i *callInterceptor) makeCall(kind tosca.CallKind, callParam tosca.CallParameters) (tosca.CallResult, error) {
	res, err := i.parameters.Context.Call(kind, callParam)
	if err != nil {
		return tosca.CallResult{}, err
	}

	i.handleGasRefund(res.GasRefund)
	if !res.Success {
		return res, geth.ErrExecutionReverted
	}
	return res, nil
}

func (i *callInterceptor) Call(env *geth.EVM, me geth.ContractRef, addr common.Address, data []byte, gas uint64, value *uint256.Int) ([]byte, uint64, error) {
	have := i.stateDb.GetBalance(me.Address())
	if value.Cmp(have) > 0 {
		return nil, gas, geth.ErrInsufficientBalance
	}

	kind := tosca.Call
	if i.static {
		kind = tosca.StaticCall
	}

	res, err := i.makeCall(kind, tosca.CallParameters{
		Sender:      tosca.Address(me.Address()),
		Recipient:   tosca.Address(addr),
		Value:       tosca.ValueFromUint256(value),
		Input:       data,
		Gas:         tosca.Gas(gas),
		CodeAddress: tosca.Address(addr),
	})
	return res.Output, uint64(res.GasLeft), err
}

func (i *callInterceptor) CallCode(env *geth.EVM, me geth.ContractRef, addr common.Address, data []byte, gas uint64, value *uint256.Int) ([]byte, uint64, error) {
	have := i.stateDb.GetBalance(me.Address())
	if value.Cmp(have) > 0 {
		return nil, gas, geth.ErrInsufficientBalance
	}

	res, err := i.makeCall(tosca.CallCode, tosca.CallParameters{
		Sender:      tosca.Address(me.Address()),
		Recipient:   tosca.Address(me.Address()),
		Value:       tosca.ValueFromUint256(value),
		Input:       data,
		CodeAddress: tosca.Address(addr),
		Gas:         tosca.Gas(gas),
	})
	return res.Output, uint64(res.GasLeft), err
}

func (i *callInterceptor) DelegateCall(env *geth.EVM, me geth.ContractRef, addr common.Address, data []byte, gas uint64) ([]byte, uint64, error) {
	res, err := i.makeCall(tosca.DelegateCall, tosca.CallParameters{
		Sender:      i.parameters.Sender,
		Recipient:   i.parameters.Recipient,
		Value:       i.parameters.Value,
		Input:       data,
		Gas:         tosca.Gas(gas),
		CodeAddress: tosca.Address(addr),
	})
	return res.Output, uint64(res.GasLeft), err
}

func (i *callInterceptor) StaticCall(env *geth.EVM, me geth.ContractRef, addr common.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	res, err := i.makeCall(tosca.StaticCall, tosca.CallParameters{
		Sender:      tosca.Address(me.Address()),
		Recipient:   tosca.Address(addr),
		Input:       input,
		Gas:         tosca.Gas(gas),
		CodeAddress: tosca.Address(addr),
	})
	return res.Output, uint64(res.GasLeft), err
}

func (i *callInterceptor) Create(env *geth.EVM, me geth.ContractRef, code []byte, gas uint64, value *uint256.Int) ([]byte, common.Address, uint64, error) {
	have := i.stateDb.GetBalance(me.Address())
	if value.Cmp(have) > 0 {
		return nil, common.Address{}, gas, geth.ErrInsufficientBalance
	}

	res, err := i.makeCall(tosca.Create, tosca.CallParameters{
		Sender: tosca.Address(me.Address()),
		Value:  tosca.ValueFromUint256(value),
		Gas:    tosca.Gas(gas),
		Input:  code,
	})
	return res.Output, common.Address(res.CreatedAddress), uint64(res.GasLeft), err
}

func (i *callInterceptor) Create2(env *geth.EVM, me geth.ContractRef, code []byte, gas uint64, value *uint256.Int, salt *uint256.Int) ([]byte, common.Address, uint64, error) {
	have := i.stateDb.GetBalance(me.Address())
	if value.Cmp(have) > 0 {
		return nil, common.Address{}, gas, geth.ErrInsufficientBalance
	}

	res, err := i.makeCall(tosca.Create2, tosca.CallParameters{
		Sender: tosca.Address(me.Address()),
		Value:  tosca.ValueFromUint256(value),
		Gas:    tosca.Gas(gas),
		Input:  code,
		Salt:   salt.Bytes32(),
	})
	return res.Output, common.Address(res.CreatedAddress), uint64(res.GasLeft), err
}

func (i *callInterceptor) handleGasRefund(refund tosca.Gas) {
	if refund < 0 {
		i.stateDb.SubRefund(uint64(-refund))
	} else {
		i.stateDb.AddRefund(uint64(refund))
	}
}
