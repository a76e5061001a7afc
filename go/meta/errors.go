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

import "github.com/Fantom-foundation/Iolite/go/tosca"

const (
	// ErrInsufficientFunds is reported if the payout of a transaction's
	// metadata is not affordable or not permitted. Every failing payment
	// reports it, possibly next to a more specific cause.
	ErrInsufficientFunds = tosca.ConstError("insufficient funds for metadata payment or payment are not allowed")

	// ErrIntrinsicGasFailed is reported if the intrinsic gas of the pipeline
	// overflows. It indicates a bug or a crafted input.
	ErrIntrinsicGasFailed = tosca.ConstError("metadata intrinsic gas error")

	ErrEmptyMetadata         = tosca.ConstError("metadata is empty")
	ErrInvalidMetadata       = tosca.ConstError("invalid metadata")
	ErrBusinessCallFailed    = tosca.ConstError("business call failed")
	ErrInvalidBusinessOutput = tosca.ConstError("the business call result does not match the format (address, uint256)")
	ErrPaymentFailed         = tosca.ConstError("metadata payment failed")
	ErrPayerSpent            = tosca.ConstError("payer has already been used")
)
