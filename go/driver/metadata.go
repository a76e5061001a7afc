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
	"fmt"
	"strings"

	"github.com/Fantom-foundation/Iolite/go/meta"
	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
)

var MetadataCmd = cli.Command{
	Name:  "metadata",
	Usage: "Build metadata payloads for transactions",
	Subcommands: []*cli.Command{
		&metadataEncodeCmd,
		&metadataBusinessCmd,
	},
}

var metadataEncodeCmd = cli.Command{
	Action:    doMetadataEncode,
	Name:      "encode",
	Usage:     "Encode payouts as simple metadata",
	ArgsUsage: "<recipient>=<amount>...",
}

var metadataBusinessCmd = cli.Command{
	Action: doMetadataBusiness,
	Name:   "business",
	Usage:  "Encode the call descriptor of business metadata",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Usage:    "hex encoded input field of the descriptor",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:  "gas",
			Usage: "gas limit of the call, 0 uses the gas limit of the transaction",
		},
	},
}

func doMetadataEncode(context *cli.Context) error {
	var logs tosca.MetaLogs
	for _, arg := range context.Args().Slice() {
		recipient, amount, err := parsePayout(arg)
		if err != nil {
			return err
		}
		logs.Push(recipient, amount)
	}
	encoded, err := rlp.EncodeToBytes(logs)
	if err != nil {
		return err
	}
	fmt.Fprintf(context.App.Writer, "0x%x\n", encoded)
	return nil
}

func doMetadataBusiness(context *cli.Context) error {
	input, err := parseHex(context.String("input"))
	if err != nil {
		return err
	}
	encoded, err := meta.BusinessMetadata{
		Input:    input,
		GasLimit: context.Uint64("gas"),
	}.Encode()
	if err != nil {
		return err
	}
	fmt.Fprintf(context.App.Writer, "0x%x\n", encoded)
	return nil
}

func parsePayout(arg string) (tosca.Address, tosca.Value, error) {
	address, amount, found := strings.Cut(arg, "=")
	if !found {
		return tosca.Address{}, tosca.Value{}, fmt.Errorf("invalid payout %q, expected <recipient>=<amount>", arg)
	}
	if !common.IsHexAddress(address) {
		return tosca.Address{}, tosca.Value{}, fmt.Errorf("invalid recipient %q", address)
	}
	var value *uint256.Int
	var err error
	if strings.HasPrefix(amount, "0x") {
		value, err = uint256.FromHex(amount)
	} else {
		value, err = uint256.FromDecimal(amount)
	}
	if err != nil {
		return tosca.Address{}, tosca.Value{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return tosca.Address(common.HexToAddress(address)), tosca.ValueFromUint256(value), nil
}
