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
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Fantom-foundation/Iolite/go/types"
	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"
)

var ReceiptCmd = cli.Command{
	Name:  "receipt",
	Usage: "Inspect RLP encoded receipts",
	Subcommands: []*cli.Command{
		&receiptDecodeCmd,
		&receiptVerifyCmd,
	},
}

var receiptDecodeCmd = cli.Command{
	Action:    doReceiptDecode,
	Name:      "decode",
	Usage:     "Decode a hex encoded receipt, - reads it from stdin",
	ArgsUsage: "<hex>",
}

var receiptVerifyCmd = cli.Command{
	Action:    doReceiptVerify,
	Name:      "verify",
	Usage:     "Check that the receipts listed in a file, one hex encoding per line, survive re-encoding",
	ArgsUsage: "<file>",
}

func doReceiptDecode(context *cli.Context) error {
	arg, err := readArgument(context, 0)
	if err != nil {
		return err
	}
	data, err := parseHex(arg)
	if err != nil {
		return err
	}
	receipt, err := types.DecodeReceipt(data)
	if err != nil {
		return fmt.Errorf("failed to decode receipt: %w", err)
	}

	out := context.App.Writer
	outcome := receipt.Outcome()
	gasUsed := receipt.GasUsed()
	metaGasUsed := receipt.MetaGasUsed()
	fmt.Fprintf(out, "outcome:     %v\n", outcome)
	fmt.Fprintf(out, "gasUsed:     %s\n", gasUsed.Dec())
	fmt.Fprintf(out, "logs:        %d\n", len(receipt.Logs()))
	for i, entry := range receipt.Logs() {
		fmt.Fprintf(out, "  %d: %v\n", i, entry)
	}
	fmt.Fprintf(out, "metaLogs:    %v\n", receipt.MetaLogs())
	fmt.Fprintf(out, "metaGasUsed: %s\n", metaGasUsed.Dec())
	return nil
}

type verification int

const (
	verifiedExact verification = iota
	verifiedUpgraded
)

// verifyReceipt decodes the receipt and checks that re-encoding reproduces
// it. Encodings predating the current format are accepted if the re-encoded
// receipt decodes to the same content.
func verifyReceipt(data []byte) (verification, error) {
	receipt, err := types.DecodeReceipt(data)
	if err != nil {
		return 0, err
	}
	encoded, err := types.EncodeReceipt(receipt)
	if err != nil {
		return 0, err
	}
	if bytes.Equal(encoded, data) {
		return verifiedExact, nil
	}
	restored, err := types.DecodeReceipt(encoded)
	if err != nil {
		return 0, fmt.Errorf("re-encoded receipt can not be decoded: %w", err)
	}
	if !restored.Equal(receipt) {
		return 0, fmt.Errorf("re-encoded receipt differs: %v != %v", restored, receipt)
	}
	return verifiedUpgraded, nil
}

func doReceiptVerify(context *cli.Context) error {
	if context.Args().Len() < 1 {
		return fmt.Errorf("missing file, usage: receipt verify %s", context.Command.ArgsUsage)
	}
	file, err := os.Open(context.Args().Get(0))
	if err != nil {
		return err
	}
	defer file.Close()

	out := context.App.Writer
	start := time.Now()
	var total, exact, upgraded, failed int
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		total++
		data, err := parseHex(text)
		if err == nil {
			var kind verification
			kind, err = verifyReceipt(data)
			switch {
			case err != nil:
			case kind == verifiedExact:
				exact++
			default:
				upgraded++
			}
		}
		if err != nil {
			failed++
			fmt.Fprintf(out, "line %d: %v\n", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	duration := time.Since(start)
	rate := 0.0
	if duration > 0 {
		rate = float64(total) / duration.Seconds()
	}
	fmt.Fprintf(out,
		"Verified %d receipts in %v (~%s receipts per second): %d exact, %d upgraded, %d failed\n",
		total, duration.Round(time.Millisecond), unitconv.FormatPrefix(rate, unitconv.SI, 0), exact, upgraded, failed,
	)
	if failed > 0 {
		return fmt.Errorf("%d of %d receipts failed verification", failed, total)
	}
	return nil
}
