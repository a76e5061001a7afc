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
	"errors"
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

func init() {
	tosca.MustRegisterInterpreterFactory("geth", func(any) (tosca.Interpreter, error) {
		return &gethVm{}, nil
	})
}

// gethVm runs contract code on the go-ethereum interpreter using the Cancun
// instruction set. Nested calls and creations are routed back through the
// run context so that they are handled by the processor.
type gethVm struct{}

func (m *gethVm) Run(parameters tosca.Parameters) (tosca.Result, error) {
	evm, contract, stateDb := createGethInterpreterContext(parameters)

	output, err := evm.Interpreter().Run(contract, parameters.Input, parameters.Static)

	result := tosca.Result{
		Output:    output,
		GasLeft:   tosca.Gas(contract.Gas),
		GasRefund: tosca.Gas(stateDb.refund),
		Success:   true,
	}

	// If no error is reported, the execution ended with a STOP, RETURN, or SELFDESTRUCT.
	if err == nil {
		return result, nil
	}

	// In case of a revert the result should indicate an unsuccessful execution.
	if err == geth.ErrExecutionReverted {
		result.Success = false
		result.GasRefund = 0
		return result, nil
	}

	// In case of an issue caused by the code execution, the result should indicate
	// a failed execution but no error should be reported.
	switch {
	case errors.Is(err, geth.ErrOutOfGas),
		errors.Is(err, geth.ErrCodeStoreOutOfGas),
		errors.Is(err, geth.ErrDepth),
		errors.Is(err, geth.ErrInsufficientBalance),
		errors.Is(err, geth.ErrContractAddressCollision),
		errors.Is(err, geth.ErrMaxCodeSizeExceeded),
		errors.Is(err, geth.ErrInvalidJump),
		errors.Is(err, geth.ErrWriteProtection),
		errors.Is(err, geth.ErrReturnDataOutOfBounds),
		errors.Is(err, geth.ErrGasUintOverflow),
		errors.Is(err, geth.ErrInvalidCode):
		return tosca.Result{Success: false}, nil
	}

	if _, ok := err.(*geth.ErrStackOverflow); ok {
		return tosca.Result{Success: false}, nil
	}
	if _, ok := err.(*geth.ErrStackUnderflow); ok {
		return tosca.Result{Success: false}, nil
	}
	if _, ok := err.(*geth.ErrInvalidOpCode); ok {
		return tosca.Result{Success: false}, nil
	}

	// In all other cases an EVM error should be reported.
	return tosca.Result{}, fmt.Errorf("internal EVM error in geth: %v", err)
}

// cancunChainConfig returns a chain config with every fork up to Cancun
// active from genesis. The chain ID is accessible through the CHAINID
// instruction.
func cancunChainConfig(chainId *big.Int) *params.ChainConfig {
	zero := uint64(0)
	chainConfig := *params.AllEthashProtocolChanges
	chainConfig.ChainID = chainId
	chainConfig.MergeNetsplitBlock = big.NewInt(0)
	chainConfig.ShanghaiTime = &zero
	chainConfig.CancunTime = &zero
	return &chainConfig
}

func createGethInterpreterContext(parameters tosca.Parameters) (*geth.EVM, *geth.Contract, *stateDbAdapter) {
	chainConfig := cancunChainConfig(new(big.Int).SetBytes(parameters.ChainID[:]))

	// the history of the chain is not available, so BLOCKHASH yields zero
	getHash := func(uint64) common.Hash {
		return common.Hash{}
	}

	// a random value signals a post-merge revision to geth
	random := common.Hash{}
	blockCtx := geth.BlockContext{
		BlockNumber: big.NewInt(parameters.BlockNumber),
		Time:        uint64(parameters.Timestamp),
		Difficulty:  big.NewInt(0),
		GasLimit:    uint64(parameters.GasLimit),
		Coinbase:    common.Address(parameters.Coinbase),
		GetHash:     getHash,
		BaseFee:     new(big.Int).SetBytes(parameters.BaseFee[:]),
		BlobBaseFee: big.NewInt(1),
		Random:      &random,
		Transfer:    transferFunc,
		CanTransfer: canTransferFunc,
	}

	txCtx := geth.TxContext{
		Origin:     common.Address(parameters.Origin),
		GasPrice:   new(big.Int).SetBytes(parameters.GasPrice[:]),
		BlobFeeCap: big.NewInt(1),
	}

	stateDb := newStateDbAdapter(parameters.Context)
	evm := geth.NewEVM(blockCtx, txCtx, stateDb, chainConfig, geth.Config{})
	evm.CallInterceptor = &callInterceptor{
		parameters: parameters,
		stateDb:    stateDb,
		static:     parameters.Static,
	}

	value := parameters.Value.ToUint256()
	addr := geth.AccountRef(parameters.Recipient)
	contract := geth.NewContract(addr, addr, value, uint64(parameters.Gas))
	contract.CallerAddress = common.Address(parameters.Sender)
	contract.Code = parameters.Code
	if parameters.CodeHash != nil {
		contract.CodeHash = common.Hash(*parameters.CodeHash)
	} else {
		contract.CodeHash = crypto.Keccak256Hash(parameters.Code)
	}
	contract.Input = parameters.Input

	// the sender, the recipient and the precompiled contracts are warm
	stateDb.warmAccount(parameters.Origin)
	stateDb.warmAccount(parameters.Sender)
	stateDb.warmAccount(parameters.Recipient)
	for _, precompiled := range geth.PrecompiledAddressesCancun {
		stateDb.warmAccount(tosca.Address(precompiled))
	}

	return evm, contract, stateDb
}
