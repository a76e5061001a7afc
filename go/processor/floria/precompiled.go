// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package floria

import (
	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/vm"
)

func handlePrecompiled(input tosca.Data, address tosca.Address, gas tosca.Gas) (tosca.CallResult, bool) {
	contract, ok := precompiledContract(address)
	if !ok {
		return tosca.CallResult{}, false
	}
	gasCost := contract.RequiredGas(input)
	if gas < tosca.Gas(gasCost) {
		return tosca.CallResult{}, true
	}
	gas -= tosca.Gas(gasCost)
	output, err := contract.Run(input)

	return tosca.CallResult{
		Success: err == nil, // precompiled contracts only return errors on invalid input
		Output:  output,
		GasLeft: gas,
	}, true
}

// The engine runs all calls with the precompiled contracts of Cancun.
func precompiledContract(address tosca.Address) (geth.PrecompiledContract, bool) {
	contract, ok := geth.PrecompiledContractsCancun[common.Address(address)]
	return contract, ok
}
