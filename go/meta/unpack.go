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
	"fmt"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/log"
)

// Config customizes the metadata pipeline.
type Config struct {
	// ExecutorGas is the intrinsic gas of carrying a metadata payload. If nil,
	// no gas is charged.
	ExecutorGas ExecutorGasFunc
	// PayerGas is the intrinsic gas of paying out meta logs. If nil, no gas
	// is charged.
	PayerGas PayerGasFunc
	// CacheSize is the number of decoded simple payloads kept for reuse. A
	// non-positive size disables the cache.
	CacheSize int
}

// Unpacked is the result of unpacking the metadata of a transaction. The
// payment is not performed yet: callers decide when to invoke Pay on the
// payer, typically inside a snapshot of the world state.
type Unpacked struct {
	Payer        *Payer
	MetaLogs     tosca.MetaLogs
	Payment      tosca.Value
	IntrinsicGas uint64
}

// Unpacker runs the metadata pipeline of a transaction: it derives the meta
// logs, checks their affordability, and hands out a payer. An Unpacker may be
// shared among goroutines.
type Unpacker struct {
	config Config
	cache  *metaLogsCache
}

func NewUnpacker(config Config) *Unpacker {
	return &Unpacker{
		config: config,
		cache:  newMetaLogsCache(config.CacheSize),
	}
}

var defaultUnpacker = NewUnpacker(Config{})

// UnpackSimpleMetadata runs the simple pipeline with the default
// configuration charging no intrinsic gas.
func UnpackSimpleMetadata(from tosca.Address, metadata tosca.Data, limit tosca.Value, ledger Ledger) (Unpacked, error) {
	return defaultUnpacker.UnpackSimpleMetadata(from, metadata, limit, ledger)
}

// UnpackBusinessMetadata runs the business pipeline with the default
// configuration charging no intrinsic gas.
func UnpackBusinessMetadata(from tosca.Address, metadata tosca.Data, limit tosca.Value, transaction tosca.Transaction, read VirtualEngine, write Engine) (Unpacked, error) {
	return defaultUnpacker.UnpackBusinessMetadata(from, metadata, limit, transaction, read, write)
}

// UnpackSimpleMetadata decodes the meta logs carried by the metadata and
// returns a payer booking them on the ledger.
func (u *Unpacker) UnpackSimpleMetadata(from tosca.Address, metadata tosca.Data, limit tosca.Value, ledger Ledger) (Unpacked, error) {
	executor := NewSimpleExecutor(metadata)
	return u.unpack(executor, from, limit, func(logs tosca.MetaLogs) *Payer {
		return NewSimplePayer(from, logs, limit, ledger)
	})
}

// UnpackBusinessMetadata derives the meta logs from a read-only call to the
// recipient of the transaction and returns a payer transferring the value
// through the write handle of the engine.
func (u *Unpacker) UnpackBusinessMetadata(from tosca.Address, metadata tosca.Data, limit tosca.Value, transaction tosca.Transaction, read VirtualEngine, write Engine) (Unpacked, error) {
	executor := NewBusinessExecutor(metadata, transaction, read)
	return u.unpack(executor, from, limit, func(logs tosca.MetaLogs) *Payer {
		return NewBusinessPayer(from, logs, limit, transaction, write)
	})
}

func (u *Unpacker) unpack(
	executor *Executor,
	from tosca.Address,
	limit tosca.Value,
	newPayer func(tosca.MetaLogs) *Payer,
) (Unpacked, error) {
	executor.gas = u.config.ExecutorGas
	executor.cache = u.cache
	executorGas := executor.IntrinsicGas()

	logs, err := executor.Execute()
	if err != nil {
		log.Debug("Metadata execution failed", "kind", executor.Kind(), "sender", from, "err", err)
		return Unpacked{}, err
	}

	payer := newPayer(logs)
	payer.gas = u.config.PayerGas
	payerGas := payer.IntrinsicGas()

	amount, affordable := payer.CanPay().Affordable()
	if !affordable {
		log.Debug("Metadata payment not affordable", "kind", executor.Kind(), "sender", from, "limit", limit, "logs", logs)
		return Unpacked{}, ErrInsufficientFunds
	}

	intrinsicGas := executorGas + payerGas
	if intrinsicGas < executorGas {
		return Unpacked{}, fmt.Errorf("%w: %d + %d overflows", ErrIntrinsicGasFailed, executorGas, payerGas)
	}

	log.Trace("Metadata unpacked", "kind", executor.Kind(), "sender", from, "entries", logs.Len(), "payment", amount, "gas", intrinsicGas)
	return Unpacked{
		Payer:        payer,
		MetaLogs:     logs,
		Payment:      amount,
		IntrinsicGas: intrinsicGas,
	}, nil
}
