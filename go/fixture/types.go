// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package fixture

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/holiman/uint256"
)

// Uint is an unsigned 256-bit quantity. In JSON it is given as a string in
// hexadecimal notation with a 0x prefix, or in decimal notation. Leading
// zeros are accepted. A plain JSON number is accepted as well.
type Uint struct {
	uint256.Int
}

func NewUint(value uint64) Uint {
	var res Uint
	res.SetUint64(value)
	return res
}

func (u Uint) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.Hex())
}

func (u *Uint) UnmarshalJSON(data []byte) error {
	text := string(data)
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	value, err := parseUint(text)
	if err != nil {
		return err
	}
	u.Int = *value
	return nil
}

func parseUint(text string) (*uint256.Int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return new(uint256.Int), nil
	}
	var (
		value *big.Int
		ok    bool
	)
	if digits, found := cutHexPrefix(text); found {
		if digits == "" {
			return new(uint256.Int), nil
		}
		value, ok = new(big.Int).SetString(digits, 16)
	} else {
		value, ok = new(big.Int).SetString(text, 10)
	}
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid quantity %q", text)
	}
	res, overflow := uint256.FromBig(value)
	if overflow {
		return nil, fmt.Errorf("quantity %q exceeds 256 bits", text)
	}
	return res, nil
}

// Value converts the quantity into a tosca.Value.
func (u Uint) Value() tosca.Value {
	return tosca.ValueFromUint256(&u.Int)
}

// Bytes is a byte string given in hexadecimal notation with an optional 0x
// prefix. The empty string is the empty byte string.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(b))
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	res, err := parseBytes(text)
	if err != nil {
		return err
	}
	*b = res
	return nil
}

func parseBytes(text string) ([]byte, error) {
	digits, _ := cutHexPrefix(strings.TrimSpace(text))
	if digits == "" {
		return nil, nil
	}
	res, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid byte string %q: %w", text, err)
	}
	return res, nil
}

// MaybeAddress is an address that may be absent. The empty string and null
// denote the absence of an address.
type MaybeAddress struct {
	address *tosca.Address
}

func SomeAddress(address tosca.Address) MaybeAddress {
	return MaybeAddress{address: &address}
}

// Get returns the address or nil if it is absent.
func (m MaybeAddress) Get() *tosca.Address {
	if m.address == nil {
		return nil
	}
	res := *m.address
	return &res
}

func (m MaybeAddress) MarshalJSON() ([]byte, error) {
	if m.address == nil {
		return json.Marshal("")
	}
	return json.Marshal(hex.EncodeToString(m.address[:]))
}

func (m *MaybeAddress) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		m.address = nil
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		m.address = nil
		return nil
	}
	address, err := parseAddress(text)
	if err != nil {
		return err
	}
	m.address = &address
	return nil
}

func parseAddress(text string) (tosca.Address, error) {
	var res tosca.Address
	raw, err := parseBytes(text)
	if err != nil {
		return res, err
	}
	if len(raw) != len(res) {
		return res, fmt.Errorf("invalid address %q, wanted %d bytes, got %d", text, len(res), len(raw))
	}
	copy(res[:], raw)
	return res, nil
}

// Bool is a boolean given either as JSON boolean or as a quoted string.
type Bool bool

func (b *Bool) UnmarshalJSON(data []byte) error {
	text := string(data)
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}
	if text == "" {
		*b = false
		return nil
	}
	value, err := strconv.ParseBool(text)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", string(data))
	}
	*b = Bool(value)
	return nil
}

func cutHexPrefix(text string) (string, bool) {
	if rest, found := strings.CutPrefix(text, "0x"); found {
		return rest, true
	}
	return strings.CutPrefix(text, "0X")
}
