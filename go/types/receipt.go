// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package types

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

const (
	ErrMissingField     = tosca.ConstError("receipt is missing fields")
	ErrInvalidField     = tosca.ConstError("invalid receipt field")
	ErrInvalidStateRoot = tosca.ConstError("invalid receipt state root")
	ErrBloomMismatch    = tosca.ConstError("receipt bloom does not match its logs")
)

// Receipt summarizes the execution of a transaction. Receipts are immutable;
// the log bloom is derived from the logs when the receipt is created.
//
// The RLP encoding carries no version tag. Receipts with an unknown outcome
// are encoded as
//
//	[gasUsed, logBloom, logs, metaLogs, metaGasUsed]
//
// and all others as
//
//	[outcome, gasUsed, logBloom, logs, metaLogs, metaGasUsed]
//
// Decoding additionally accepts the legacy form [gasUsed, logBloom, logs].
type Receipt struct {
	outcome     TransactionOutcome
	gasUsed     uint256.Int
	logBloom    gethtypes.Bloom
	logs        []LogEntry
	metaLogs    tosca.MetaLogs
	metaGasUsed uint256.Int
}

// NewReceipt creates a receipt, deriving its bloom from the given logs.
func NewReceipt(
	outcome TransactionOutcome,
	gasUsed uint256.Int,
	metaGasUsed uint256.Int,
	logs []LogEntry,
	metaLogs tosca.MetaLogs,
) Receipt {
	logs = cloneLogEntries(logs)
	return Receipt{
		outcome:     outcome,
		gasUsed:     gasUsed,
		logBloom:    foldBloom(logs),
		logs:        logs,
		metaLogs:    metaLogs.Clone(),
		metaGasUsed: metaGasUsed,
	}
}

func (r Receipt) Outcome() TransactionOutcome {
	return r.outcome
}

func (r Receipt) GasUsed() uint256.Int {
	return r.gasUsed
}

func (r Receipt) LogBloom() gethtypes.Bloom {
	return r.logBloom
}

func (r Receipt) Logs() []LogEntry {
	return cloneLogEntries(r.logs)
}

func (r Receipt) MetaLogs() tosca.MetaLogs {
	return r.metaLogs.Clone()
}

// MetaGasUsed is the gas consumed by the metadata pipeline, in addition to
// GasUsed.
func (r Receipt) MetaGasUsed() uint256.Int {
	return r.metaGasUsed
}

func (r Receipt) Equal(other Receipt) bool {
	return r.outcome == other.outcome &&
		r.gasUsed.Eq(&other.gasUsed) &&
		r.logBloom == other.logBloom &&
		slices.EqualFunc(r.logs, other.logs, LogEntry.Equal) &&
		r.metaLogs.Equal(other.metaLogs) &&
		r.metaGasUsed.Eq(&other.metaGasUsed)
}

func (r Receipt) String() string {
	return fmt.Sprintf(
		"{outcome: %v, gasUsed: %v, logs: %v, metaLogs: %v, metaGasUsed: %v}",
		r.outcome, r.gasUsed.Dec(), r.logs, r.metaLogs, r.metaGasUsed.Dec(),
	)
}

func (r Receipt) EncodeRLP(w io.Writer) error {
	buffer := rlp.NewEncoderBuffer(w)
	list := buffer.List()
	switch r.outcome.kind {
	case OutcomeStateRoot:
		buffer.WriteBytes(r.outcome.root[:])
	case OutcomeStatusCode:
		buffer.WriteUint64(uint64(r.outcome.status))
	}
	buffer.WriteUint256(&r.gasUsed)
	buffer.WriteBytes(r.logBloom[:])
	logs := buffer.List()
	for _, log := range r.logs {
		if err := rlp.Encode(buffer, log); err != nil {
			return err
		}
	}
	buffer.ListEnd(logs)
	if err := rlp.Encode(buffer, r.metaLogs); err != nil {
		return err
	}
	buffer.WriteUint256(&r.metaGasUsed)
	buffer.ListEnd(list)
	return buffer.Flush()
}

// DecodeRLP selects the schema of the receipt by the number of its fields.
// Two fields are added by the metadata extension, so 3 fields mark a legacy
// receipt and 5 fields a receipt with an unknown outcome. Any larger count
// starts with the outcome; fields beyond the sixth are ignored.
func (r *Receipt) DecodeRLP(s *rlp.Stream) error {
	var fields []rlp.RawValue
	if err := s.Decode(&fields); err != nil {
		return err
	}

	var res Receipt
	var err error
	switch count := len(fields); {
	case count == 3:
		err = res.decodeBody(fields[0], fields[1], fields[2])
	case count == 5:
		err = res.decodeBody(fields[0], fields[1], fields[2])
		if err == nil {
			err = res.decodeMeta(fields[3], fields[4])
		}
	case count >= 6:
		res.outcome, err = decodeOutcome(fields[0])
		if err == nil {
			err = res.decodeBody(fields[1], fields[2], fields[3])
		}
		if err == nil {
			err = res.decodeMeta(fields[4], fields[5])
		}
	default:
		return fmt.Errorf("%w: got %d fields", ErrMissingField, count)
	}
	if err != nil {
		return err
	}
	if res.logBloom != foldBloom(res.logs) {
		return ErrBloomMismatch
	}
	*r = res
	return nil
}

func (r *Receipt) decodeBody(gasUsed, logBloom, logs rlp.RawValue) error {
	var err error
	if r.gasUsed, err = decodeUint256(gasUsed); err != nil {
		return fmt.Errorf("%w: gas used: %w", ErrInvalidField, err)
	}
	if err := rlp.DecodeBytes(logBloom, &r.logBloom); err != nil {
		return fmt.Errorf("%w: log bloom: %w", ErrInvalidField, err)
	}
	if err := rlp.DecodeBytes(logs, &r.logs); err != nil {
		return fmt.Errorf("%w: logs: %w", ErrInvalidField, err)
	}
	return nil
}

func (r *Receipt) decodeMeta(metaLogs, metaGasUsed rlp.RawValue) error {
	if err := rlp.DecodeBytes(metaLogs, &r.metaLogs); err != nil {
		return fmt.Errorf("%w: meta logs: %w", ErrInvalidField, err)
	}
	var err error
	if r.metaGasUsed, err = decodeUint256(metaGasUsed); err != nil {
		return fmt.Errorf("%w: meta gas used: %w", ErrInvalidField, err)
	}
	return nil
}

// decodeOutcome interprets scalars of at most one byte as status codes and
// everything else as a state root.
func decodeOutcome(field rlp.RawValue) (TransactionOutcome, error) {
	kind, content, _, err := rlp.Split(field)
	if err != nil {
		return TransactionOutcome{}, fmt.Errorf("%w: outcome: %w", ErrInvalidField, err)
	}
	if kind != rlp.List && len(content) <= 1 {
		var status uint8
		if err := rlp.DecodeBytes(field, &status); err != nil {
			return TransactionOutcome{}, fmt.Errorf("%w: status code: %w", ErrInvalidField, err)
		}
		return StatusCodeOutcome(status), nil
	}
	var root tosca.Hash
	if err := rlp.DecodeBytes(field, &root); err != nil {
		return TransactionOutcome{}, fmt.Errorf("%w: %w", ErrInvalidStateRoot, err)
	}
	return StateRootOutcome(root), nil
}

func decodeUint256(field rlp.RawValue) (uint256.Int, error) {
	var res uint256.Int
	stream := rlp.NewStream(bytes.NewReader(field), uint64(len(field)))
	if err := stream.ReadUint256(&res); err != nil {
		return uint256.Int{}, err
	}
	return res, nil
}

// EncodeReceipt returns the RLP encoding of the receipt.
func EncodeReceipt(receipt Receipt) ([]byte, error) {
	return rlp.EncodeToBytes(receipt)
}

// DecodeReceipt decodes a receipt, rejecting trailing data.
func DecodeReceipt(data []byte) (Receipt, error) {
	var res Receipt
	if err := rlp.DecodeBytes(data, &res); err != nil {
		return Receipt{}, err
	}
	return res, nil
}
