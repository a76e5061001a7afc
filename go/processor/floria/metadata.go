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
	"math"

	"github.com/Fantom-foundation/Iolite/go/meta"
	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/log"
)

// runMetadata executes and pays the metadata of a transaction whose primary
// call succeeded. Transactions sent to contracts carry business metadata,
// all others simple metadata. If the metadata fails or can not be paid, its
// effects are dropped and no meta logs are recorded; the effects of the
// primary call are kept. The returned gas is not larger than gasLeft if the
// processor charges meta gas.
func (p *processor) runMetadata(
	transaction tosca.Transaction,
	context tosca.TransactionContext,
	engine *engine,
	gasLeft tosca.Gas,
) (tosca.MetaLogs, uint64) {
	var unpacked meta.Unpacked
	var err error
	if transaction.Recipient != nil && context.GetCodeSize(*transaction.Recipient) > 0 {
		unpacked, err = p.unpacker.UnpackBusinessMetadata(
			transaction.Sender, transaction.Metadata, transaction.MetadataLimit,
			transaction, engine, engine,
		)
	} else {
		unpacked, err = p.unpacker.UnpackSimpleMetadata(
			transaction.Sender, transaction.Metadata, transaction.MetadataLimit,
			engine,
		)
	}
	if err != nil {
		log.Debug("Metadata rejected", "sender", transaction.Sender, "err", err)
		return tosca.MetaLogs{}, 0
	}

	available := uint64(0)
	if gasLeft > 0 {
		available = uint64(gasLeft)
	}
	paymentGas := available
	if p.config.ChargeMetaGas {
		if unpacked.IntrinsicGas > available {
			log.Debug("Metadata rejected", "sender", transaction.Sender, "err", "out of gas", "gas", unpacked.IntrinsicGas, "available", available)
			return tosca.MetaLogs{}, 0
		}
		paymentGas -= unpacked.IntrinsicGas
	}

	snapshot := context.CreateSnapshot()
	amount, payment, err := unpacked.Payer.Pay(paymentGas)
	if err != nil {
		context.RestoreSnapshot(snapshot)
		log.Debug("Metadata payment failed", "sender", transaction.Sender, "err", err)
		return tosca.MetaLogs{}, 0
	}
	if amount != unpacked.Payment {
		context.RestoreSnapshot(snapshot)
		log.Warn("Metadata payment differs from checked amount", "sender", transaction.Sender, "paid", amount, "checked", unpacked.Payment)
		return tosca.MetaLogs{}, 0
	}

	metaGas := unpacked.IntrinsicGas + uint64(payment.GasUsed)
	if metaGas < unpacked.IntrinsicGas {
		metaGas = math.MaxUint64
	}
	log.Debug("Metadata paid", "sender", transaction.Sender, "kind", unpacked.Payer.Kind(), "entries", unpacked.MetaLogs.Len(), "amount", amount, "gas", metaGas)
	return unpacked.MetaLogs, metaGas
}
