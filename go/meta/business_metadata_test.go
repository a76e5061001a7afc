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
	"errors"
	"testing"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/rlp"
)

func TestBusinessMetadata_EncodingIsList(t *testing.T) {
	encoded, err := BusinessMetadata{Input: tosca.Data{1, 2}}.Encode()
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if want := []byte{0xc3, 0x82, 1, 2}; !bytes.Equal(want, encoded) {
		t.Errorf("unexpected encoding, wanted %x, got %x", want, encoded)
	}
}

func TestBusinessMetadata_GasLimitIsOptional(t *testing.T) {
	withGas, err := rlp.EncodeToBytes([]any{[]byte{1}, uint64(500)})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeBusinessMetadata(withGas)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded.GasLimit != 500 || !bytes.Equal(decoded.Input, []byte{1}) {
		t.Errorf("unexpected descriptor %v", decoded)
	}

	decoded, err = DecodeBusinessMetadata(tosca.Data{0xc2, 0x81, 0xff})
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded.GasLimit != 0 || !bytes.Equal(decoded.Input, []byte{0xff}) {
		t.Errorf("unexpected descriptor %v", decoded)
	}
}

func TestDecodeBusinessMetadata_RejectsMalformedInput(t *testing.T) {
	for _, data := range []tosca.Data{{0x80}, {0xc1}, {0xc3, 0x82, 1, 2, 3}} {
		if _, err := DecodeBusinessMetadata(data); !errors.Is(err, ErrInvalidMetadata) {
			t.Errorf("expected invalid metadata for %x, got %v", data, err)
		}
	}
}

func TestBusinessMetadata_ViewLimitsGas(t *testing.T) {
	transaction := tosca.Transaction{GasLimit: 1000, Value: tosca.NewValue(5), Metadata: tosca.Data{1}}
	tests := map[string]struct {
		gas  uint64
		want tosca.Gas
	}{
		"unset":        {gas: 0, want: 1000},
		"lower":        {gas: 400, want: 400},
		"higher":       {gas: 4000, want: 1000},
		"out of range": {gas: 1 << 63, want: 1000},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			view := BusinessMetadata{GasLimit: test.gas}.View(transaction, transaction.Metadata)
			if view.GasLimit != test.want {
				t.Errorf("unexpected gas limit, wanted %d, got %d", test.want, view.GasLimit)
			}
			if !view.Value.IsZero() || view.Metadata != nil {
				t.Errorf("view should neither transfer value nor carry metadata")
			}
		})
	}
}

func TestBusinessMetadata_ViewCallsWithMetadataPayload(t *testing.T) {
	descriptor := BusinessMetadata{Input: tosca.Data{0x12, 0x34}}
	payload, err := descriptor.Encode()
	if err != nil {
		t.Fatalf("failed to encode descriptor: %v", err)
	}
	transaction := tosca.Transaction{Input: tosca.Data{0xff}, GasLimit: 1000, Metadata: payload}

	view := descriptor.View(transaction, payload)
	if !bytes.Equal(view.Input, payload) {
		t.Errorf("unexpected call data, wanted %x, got %x", payload, view.Input)
	}
	payload[0] = 0
	if view.Input[0] == 0 {
		t.Errorf("call data of the view should not alias the payload")
	}
}
