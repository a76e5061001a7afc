// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package meta

import (
	"math"
	"math/bits"

	"github.com/Fantom-foundation/Iolite/go/tosca"
)

// ExecutorGasFunc computes the intrinsic gas charged for carrying a metadata
// payload. It must only depend on the payload itself.
type ExecutorGasFunc func(metadata tosca.Data) uint64

// PayerGasFunc computes the intrinsic gas charged for paying out meta logs.
type PayerGasFunc func(logs tosca.MetaLogs) uint64

// DataGas charges per byte of the payload, distinguishing zero and non-zero
// bytes like the transaction input billing does. Results saturate at
// math.MaxUint64.
func DataGas(zeroByteGas, nonZeroByteGas uint64) ExecutorGasFunc {
	return func(metadata tosca.Data) uint64 {
		nonZero := uint64(0)
		for _, b := range metadata {
			if b != 0 {
				nonZero++
			}
		}
		zero := uint64(len(metadata)) - nonZero
		return saturatingAdd(saturatingMul(zero, zeroByteGas), saturatingMul(nonZero, nonZeroByteGas))
	}
}

// EntryGas charges a fixed amount per meta log entry.
func EntryGas(perEntry uint64) PayerGasFunc {
	return func(logs tosca.MetaLogs) uint64 {
		return saturatingMul(uint64(logs.Len()), perEntry)
	}
}

func saturatingMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

func saturatingAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}
