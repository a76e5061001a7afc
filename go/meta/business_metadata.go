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
	"bytes"
	"fmt"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/rlp"
)

// BusinessMetadata is the descriptor carried by the metadata of a business
// transaction. The payout of the transaction is the output of a call to the
// transaction's recipient. The RLP encoding is the list [input] or
// [input, gasLimit].
type BusinessMetadata struct {
	Input    tosca.Data
	GasLimit uint64 `rlp:"optional"` // 0 means the gas limit of the transaction
}

// DecodeBusinessMetadata decodes a business metadata payload.
func DecodeBusinessMetadata(metadata tosca.Data) (BusinessMetadata, error) {
	var res BusinessMetadata
	if err := rlp.DecodeBytes(metadata, &res); err != nil {
		return BusinessMetadata{}, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}
	return res, nil
}

// Encode produces the RLP encoding of the descriptor.
func (b BusinessMetadata) Encode() (tosca.Data, error) {
	return rlp.EncodeToBytes(b)
}

// View derives the transaction run against the read handle of an engine to
// compute the payout. The call data of the view is the complete metadata
// payload, not the decoded input. The view keeps the sender, recipient, nonce
// and gas price of the transaction, transfers no value, and carries no
// metadata.
func (b BusinessMetadata) View(transaction tosca.Transaction, payload tosca.Data) tosca.Transaction {
	view := transaction
	view.Input = bytes.Clone(payload)
	view.Value = tosca.Value{}
	view.Metadata = nil
	view.MetadataLimit = tosca.Value{}
	if b.GasLimit != 0 && tosca.Gas(b.GasLimit) > 0 && tosca.Gas(b.GasLimit) < transaction.GasLimit {
		view.GasLimit = tosca.Gas(b.GasLimit)
	}
	return view
}
