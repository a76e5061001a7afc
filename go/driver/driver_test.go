// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/Fantom-foundation/Iolite/go/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader("")
	err := app.Run(append([]string{"iolite", "--verbosity", "1"}, args...))
	return out.String(), err
}

var payee = tosca.Address{0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11, 0x11}

func encodedPayout(t *testing.T) []byte {
	t.Helper()
	encoded, err := rlp.EncodeToBytes(tosca.NewMetaLogs(tosca.MetaLogEntry{Recipient: payee, Amount: tosca.NewValue(100)}))
	if err != nil {
		t.Fatalf("failed to encode meta logs: %v", err)
	}
	return encoded
}

func encodedReceipt(t *testing.T, outcome types.TransactionOutcome) []byte {
	t.Helper()
	receipt := types.NewReceipt(
		outcome,
		*uint256.NewInt(21_000),
		*uint256.NewInt(0),
		nil,
		tosca.NewMetaLogs(tosca.MetaLogEntry{Recipient: payee, Amount: tosca.NewValue(100)}),
	)
	encoded, err := types.EncodeReceipt(receipt)
	if err != nil {
		t.Fatalf("failed to encode receipt: %v", err)
	}
	return encoded
}

func TestMetadataEncode_PrintsSimpleMetadata(t *testing.T) {
	out, err := runApp(t, "metadata", "encode", fmt.Sprintf("%v=100", payee))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("0x%x\n", encodedPayout(t)); out != want {
		t.Errorf("unexpected output %q, want %q", out, want)
	}

	out, err = runApp(t, "metadata", "encode", fmt.Sprintf("%v=0x64", payee))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fmt.Sprintf("0x%x\n", encodedPayout(t)); out != want {
		t.Errorf("hex amount: unexpected output %q, want %q", out, want)
	}
}

func TestMetadataEncode_RejectsInvalidPayouts(t *testing.T) {
	for _, arg := range []string{"0x11", "0x12=1", fmt.Sprintf("%v=abc", payee)} {
		if _, err := runApp(t, "metadata", "encode", arg); err == nil {
			t.Errorf("payout %q should be rejected", arg)
		}
	}
}

func TestMetadataBusiness_PrintsDescriptor(t *testing.T) {
	out, err := runApp(t, "metadata", "business", "--input", "0xabcd", "--gas", "5000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// [0xabcd, 5000]
	if want := "0xc682abcd821388\n"; out != want {
		t.Errorf("unexpected output %q, want %q", out, want)
	}
}

func TestReceiptDecode_PrintsReceipt(t *testing.T) {
	encoded := encodedReceipt(t, types.StatusCodeOutcome(1))
	out, err := runApp(t, "receipt", "decode", fmt.Sprintf("0x%x", encoded))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"status(1)", "21000", payee.String()} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestReceiptDecode_RejectsMalformedInput(t *testing.T) {
	for _, arg := range []string{"zz", "0xc0", "0x01"} {
		if _, err := runApp(t, "receipt", "decode", arg); err == nil {
			t.Errorf("input %q should be rejected", arg)
		}
	}
	if _, err := runApp(t, "receipt", "decode"); err == nil {
		t.Errorf("missing argument should be rejected")
	}
}

func TestReceiptVerify_AcceptsCurrentAndLegacyEncodings(t *testing.T) {
	legacy, err := rlp.EncodeToBytes([]any{uint64(21_000), make([]byte, 256), []any{}})
	if err != nil {
		t.Fatalf("failed to encode legacy receipt: %v", err)
	}
	content := fmt.Sprintf("# receipts\n0x%x\n\n%x\n0x%x\n",
		encodedReceipt(t, types.StatusCodeOutcome(1)),
		encodedReceipt(t, types.UnknownOutcome()),
		legacy,
	)
	path := filepath.Join(t.TempDir(), "receipts.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write receipts: %v", err)
	}

	out, err := runApp(t, "receipt", "verify", path)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 exact, 1 upgraded, 0 failed") {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestReceiptVerify_ReportsFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipts.txt")
	content := fmt.Sprintf("0x%x\n0xc3010203\n", encodedReceipt(t, types.StatusCodeOutcome(0)))
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write receipts: %v", err)
	}

	out, err := runApp(t, "receipt", "verify", path)
	if err == nil {
		t.Fatalf("verification should fail")
	}
	if !strings.Contains(out, "line 2:") {
		t.Errorf("failure should name the line:\n%s", out)
	}
}

const senderKey = "45a915e4d060149eb4365960e6a7a45f334393093061116b197e3240065ff2d8"

func writeFixture(t *testing.T, metadata []byte) string {
	t.Helper()
	content := fmt.Sprintf(`{
		"env": {"currentNumber": "0x01"},
		"pre": {
			"a94f5374fce5edbc8e2a8697c15331677e6ebf0b": {"balance": "1000000", "nonce": "0"}
		},
		"transaction": {
			"data":          "",
			"gasLimit":      "0x0186a0",
			"gasPrice":      "0x00",
			"nonce":         "0x00",
			"secretKey":     "%s",
			"to":            "1000000000000000000000000000000000000000",
			"value":         "0x00",
			"metadata":      "0x%x",
			"metadataLimit": "1000",
			"isOld":         "false"
		}
	}`, senderKey, metadata)
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestRun_PaysSimpleMetadata(t *testing.T) {
	path := writeFixture(t, encodedPayout(t))

	out, err := runApp(t, "run", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"success:  true",
		"status(1)",
		fmt.Sprintf("%v:100", payee),
		fmt.Sprintf("%v/different balance", payee),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestRun_RecordsRequestedOutcome(t *testing.T) {
	path := writeFixture(t, encodedPayout(t))

	out, err := runApp(t, "run", "--outcome", "root", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "root(0x") {
		t.Errorf("receipt should carry a state root:\n%s", out)
	}

	out, err = runApp(t, "run", "--outcome", "unknown", "--meta-gas", "--charge-meta-gas", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "outcome: unknown") {
		t.Errorf("receipt should carry an unknown outcome:\n%s", out)
	}

	if _, err := runApp(t, "run", "--outcome", "other", path); err == nil {
		t.Errorf("invalid outcome should be rejected")
	}
}

func TestRun_RejectsInvalidArguments(t *testing.T) {
	if _, err := runApp(t, "run"); err == nil {
		t.Errorf("missing fixture should be rejected")
	}
	if _, err := runApp(t, "run", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("missing file should be rejected")
	}
	path := writeFixture(t, nil)
	if _, err := runApp(t, "run", "--interpreter", "unknown", path); err == nil {
		t.Errorf("unknown interpreter should be rejected")
	}
}

func TestApp_RejectsInvalidVerbosity(t *testing.T) {
	app := newApp()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	if err := app.Run([]string{"iolite", "--verbosity", "9", "metadata", "encode"}); err == nil {
		t.Errorf("invalid verbosity should be rejected")
	}
}
