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
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	"go.uber.org/mock/gomock"
)

func TestUnpackSimpleMetadata_AffordablePayment(t *testing.T) {
	sender := tosca.Address{1}
	recipient := tosca.Address{2}
	logs := tosca.NewMetaLogs(tosca.MetaLogEntry{Recipient: recipient, Amount: tosca.NewValue(100)})
	ledger := newTestLedger(map[tosca.Address]uint64{sender: 1000})

	unpacked, err := UnpackSimpleMetadata(sender, encodeMetaLogs(t, logs), tosca.NewValue(1000), ledger)
	if err != nil {
		t.Fatalf("failed to unpack metadata: %v", err)
	}
	if !logs.Equal(unpacked.MetaLogs) {
		t.Errorf("unexpected meta logs, wanted %v, got %v", logs, unpacked.MetaLogs)
	}
	if unpacked.Payment != tosca.NewValue(100) {
		t.Errorf("unexpected payment, got %v", unpacked.Payment)
	}
	if unpacked.IntrinsicGas != 0 {
		t.Errorf("unexpected intrinsic gas, got %d", unpacked.IntrinsicGas)
	}
	if unpacked.Payer == nil || unpacked.Payer.Kind() != Simple {
		t.Fatalf("expected simple payer, got %v", unpacked.Payer)
	}
	if got := ledger.GetBalance(sender); got != tosca.NewValue(1000) {
		t.Errorf("unpacking should not modify balances, got %v", got)
	}

	if _, _, err := unpacked.Payer.Pay(0); err != nil {
		t.Fatalf("failed to pay: %v", err)
	}
	if got := ledger.GetBalance(recipient); got != tosca.NewValue(100) {
		t.Errorf("unexpected recipient balance, got %v", got)
	}
}

func TestUnpackSimpleMetadata_LimitTooLow(t *testing.T) {
	sender := tosca.Address{1}
	logs := tosca.NewMetaLogs(tosca.MetaLogEntry{Recipient: tosca.Address{2}, Amount: tosca.NewValue(100)})
	ledger := newTestLedger(map[tosca.Address]uint64{sender: 1000})

	_, err := UnpackSimpleMetadata(sender, encodeMetaLogs(t, logs), tosca.NewValue(50), ledger)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected insufficient funds, got %v", err)
	}
}

func TestUnpackSimpleMetadata_MalformedMetadata(t *testing.T) {
	_, err := UnpackSimpleMetadata(tosca.Address{1}, tosca.Data{0xc1}, tosca.NewValue(50), newTestLedger(nil))
	if !errors.Is(err, ErrInvalidMetadata) {
		t.Errorf("expected invalid metadata, got %v", err)
	}
}

func TestUnpacker_ChargesConfiguredIntrinsicGas(t *testing.T) {
	sender := tosca.Address{1}
	logs := tosca.NewMetaLogs(
		tosca.MetaLogEntry{Recipient: tosca.Address{2}, Amount: tosca.NewValue(1)},
		tosca.MetaLogEntry{Recipient: tosca.Address{3}, Amount: tosca.NewValue(1)},
	)
	metadata := encodeMetaLogs(t, logs)
	unpacker := NewUnpacker(Config{
		ExecutorGas: func(data tosca.Data) uint64 { return uint64(len(data)) },
		PayerGas:    EntryGas(1000),
	})

	unpacked, err := unpacker.UnpackSimpleMetadata(sender, metadata, tosca.NewValue(2), newTestLedger(map[tosca.Address]uint64{sender: 2}))
	if err != nil {
		t.Fatalf("failed to unpack: %v", err)
	}
	if want, got := uint64(len(metadata))+2000, unpacked.IntrinsicGas; want != got {
		t.Errorf("unexpected intrinsic gas, wanted %d, got %d", want, got)
	}
}

func TestUnpacker_IntrinsicGasOverflowIsDetected(t *testing.T) {
	sender := tosca.Address{1}
	logs := tosca.NewMetaLogs(tosca.MetaLogEntry{Recipient: tosca.Address{2}, Amount: tosca.NewValue(1)})
	unpacker := NewUnpacker(Config{
		ExecutorGas: func(tosca.Data) uint64 { return math.MaxUint64 - 10 },
		PayerGas:    func(tosca.MetaLogs) uint64 { return 11 },
	})

	_, err := unpacker.UnpackSimpleMetadata(sender, encodeMetaLogs(t, logs), tosca.NewValue(1), newTestLedger(map[tosca.Address]uint64{sender: 1}))
	if !errors.Is(err, ErrIntrinsicGasFailed) {
		t.Errorf("expected intrinsic gas error, got %v", err)
	}
}

func TestUnpacker_IntrinsicGasAtLimitIsAccepted(t *testing.T) {
	sender := tosca.Address{1}
	logs := tosca.NewMetaLogs(tosca.MetaLogEntry{Recipient: tosca.Address{2}, Amount: tosca.NewValue(1)})
	unpacker := NewUnpacker(Config{
		ExecutorGas: func(tosca.Data) uint64 { return math.MaxUint64 - 10 },
		PayerGas:    func(tosca.MetaLogs) uint64 { return 10 },
	})

	unpacked, err := unpacker.UnpackSimpleMetadata(sender, encodeMetaLogs(t, logs), tosca.NewValue(1), newTestLedger(map[tosca.Address]uint64{sender: 1}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unpacked.IntrinsicGas != math.MaxUint64 {
		t.Errorf("unexpected intrinsic gas %d", unpacked.IntrinsicGas)
	}
}

func TestUnpacker_CachesSimplePayloads(t *testing.T) {
	sender := tosca.Address{1}
	logs := tosca.NewMetaLogs(tosca.MetaLogEntry{Recipient: tosca.Address{2}, Amount: tosca.NewValue(1)})
	unpacker := NewUnpacker(Config{CacheSize: 8})
	for i := 0; i < 2; i++ {
		ledger := newTestLedger(map[tosca.Address]uint64{sender: 1})
		if _, err := unpacker.UnpackSimpleMetadata(sender, encodeMetaLogs(t, logs), tosca.NewValue(1), ledger); err != nil {
			t.Fatalf("failed to unpack: %v", err)
		}
	}
	if want, got := 1, unpacker.cache.len(); want != got {
		t.Errorf("unexpected cache size, wanted %d, got %d", want, got)
	}
}

func TestUnpackBusinessMetadata_EndToEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	read := NewMockVirtualEngine(ctrl)
	write := NewMockEngine(ctrl)

	sender := tosca.Address{1}
	contract := tosca.Address{2}
	beneficiary := tosca.Address{3}
	transaction := tosca.Transaction{
		Sender:        sender,
		Recipient:     &contract,
		GasLimit:      100000,
		Metadata:      encodeBusinessMetadata(t, BusinessMetadata{Input: tosca.Data{0x12, 0x34}}),
		MetadataLimit: tosca.NewValue(1000),
	}

	read.EXPECT().TransactVirtual(gomock.Any()).Return(Execution{Success: true, Output: businessOutput(beneficiary, tosca.NewValue(100))}, nil)
	write.EXPECT().GetBalance(sender).Return(tosca.NewValue(500)).AnyTimes()
	write.EXPECT().GetBalance(beneficiary).Return(tosca.Value{}).AnyTimes()

	unpacked, err := UnpackBusinessMetadata(sender, transaction.Metadata, transaction.MetadataLimit, transaction, read, write)
	if err != nil {
		t.Fatalf("failed to unpack: %v", err)
	}
	want := tosca.NewMetaLogs(tosca.MetaLogEntry{Recipient: beneficiary, Amount: tosca.NewValue(100)})
	if !want.Equal(unpacked.MetaLogs) {
		t.Errorf("unexpected meta logs, wanted %v, got %v", want, unpacked.MetaLogs)
	}
	if unpacked.Payment != tosca.NewValue(100) {
		t.Errorf("unexpected payment %v", unpacked.Payment)
	}
	if unpacked.Payer.Kind() != Business {
		t.Errorf("expected business payer, got %v", unpacked.Payer.Kind())
	}

	write.EXPECT().Transact(gomock.Any()).Return(Execution{Success: true, GasUsed: 21}, nil)
	amount, payment, err := unpacked.Payer.Pay(1000)
	if err != nil {
		t.Fatalf("failed to pay: %v", err)
	}
	if amount != tosca.NewValue(100) || payment.GasUsed != 21 {
		t.Errorf("unexpected payment result %v, %v", amount, payment)
	}
}

func TestUnpackBusinessMetadata_LimitTooLow(t *testing.T) {
	ctrl := gomock.NewController(t)
	read := NewMockVirtualEngine(ctrl)
	write := NewMockEngine(ctrl)

	sender := tosca.Address{1}
	read.EXPECT().TransactVirtual(gomock.Any()).Return(Execution{Success: true, Output: businessOutput(tosca.Address{3}, tosca.NewValue(100))}, nil)
	write.EXPECT().GetBalance(gomock.Any()).Return(tosca.NewValue(500)).AnyTimes()

	metadata := encodeBusinessMetadata(t, BusinessMetadata{Input: tosca.Data{1}})
	_, err := UnpackBusinessMetadata(sender, metadata, tosca.NewValue(50), tosca.Transaction{Sender: sender}, read, write)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("expected insufficient funds, got %v", err)
	}
}

func TestUnpackBusinessMetadata_ExecutorErrorsArePropagated(t *testing.T) {
	ctrl := gomock.NewController(t)
	read := NewMockVirtualEngine(ctrl)
	write := NewMockEngine(ctrl)

	_, err := UnpackBusinessMetadata(tosca.Address{1}, nil, tosca.NewValue(50), tosca.Transaction{}, read, write)
	if !errors.Is(err, ErrEmptyMetadata) {
		t.Errorf("expected empty metadata error, got %v", err)
	}
}

func TestUnpacker_ChargesIntrinsicGasBeforeEachStage(t *testing.T) {
	ctrl := gomock.NewController(t)
	read := NewMockVirtualEngine(ctrl)
	write := NewMockEngine(ctrl)

	sender := tosca.Address{1}
	steps := []string{}
	unpacker := NewUnpacker(Config{
		ExecutorGas: func(tosca.Data) uint64 {
			steps = append(steps, "executor gas")
			return 1
		},
		PayerGas: func(tosca.MetaLogs) uint64 {
			steps = append(steps, "payer gas")
			return 2
		},
	})
	read.EXPECT().TransactVirtual(gomock.Any()).DoAndReturn(func(tosca.Transaction) (Execution, error) {
		steps = append(steps, "execute")
		return Execution{Success: true, Output: businessOutput(tosca.Address{3}, tosca.NewValue(100))}, nil
	})
	write.EXPECT().GetBalance(gomock.Any()).DoAndReturn(func(tosca.Address) tosca.Value {
		steps = append(steps, "can pay")
		return tosca.NewValue(500)
	}).AnyTimes()

	metadata := encodeBusinessMetadata(t, BusinessMetadata{Input: tosca.Data{1}})
	unpacked, err := unpacker.UnpackBusinessMetadata(sender, metadata, tosca.NewValue(1000), tosca.Transaction{Sender: sender}, read, write)
	if err != nil {
		t.Fatalf("failed to unpack: %v", err)
	}
	if unpacked.IntrinsicGas != 3 {
		t.Errorf("unexpected intrinsic gas, wanted 3, got %d", unpacked.IntrinsicGas)
	}
	want := []string{"executor gas", "execute", "payer gas", "can pay"}
	if got := slices.Compact(steps); !slices.Equal(want, got) {
		t.Errorf("unexpected order of pipeline stages, wanted %v, got %v", want, got)
	}
}
