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
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/Fantom-foundation/Iolite/go/meta"
	"github.com/Fantom-foundation/Iolite/go/processor/floria"
	"github.com/Fantom-foundation/Iolite/go/tosca"
	"github.com/Fantom-foundation/Iolite/go/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"

	// registers the interpreters selectable by the interpreter flag
	_ "github.com/Fantom-foundation/Iolite/go/interpreter/geth"
)

type verbosityFlagType struct {
	cli.IntFlag
}

var VerbosityFlag = &verbosityFlagType{
	cli.IntFlag{
		Name:    "verbosity",
		Aliases: []string{"v"},
		Usage:   "logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value:   3,
	},
}

func (f *verbosityFlagType) Fetch(context *cli.Context) int {
	return context.Int(f.Name)
}

func setupLogging(context *cli.Context) error {
	verbosity := VerbosityFlag.Fetch(context)
	if verbosity < 0 || verbosity > 5 {
		return fmt.Errorf("invalid verbosity %d", verbosity)
	}
	handler := log.NewTerminalHandlerWithLevel(context.App.ErrWriter, log.FromLegacyLevel(verbosity), false)
	log.SetDefault(log.NewLogger(handler))
	return nil
}

type interpreterFlagType struct {
	cli.StringFlag
}

var InterpreterFlag = &interpreterFlagType{
	cli.StringFlag{
		Name:    "interpreter",
		Aliases: []string{"i"},
		Usage:   "interpreter executing contract code",
		Value:   "geth",
	},
}

func (f *interpreterFlagType) Fetch(context *cli.Context) (tosca.Interpreter, error) {
	name := context.String(f.Name)
	if tosca.GetInterpreterFactory(name) == nil {
		return nil, fmt.Errorf("unknown interpreter %q, use one of: %v", name, maps.Keys(tosca.GetAllRegisteredInterpreters()))
	}
	return tosca.NewInterpreter(name)
}

type outcomeFlagType struct {
	cli.StringFlag
}

var OutcomeFlag = &outcomeFlagType{
	cli.StringFlag{
		Name:  "outcome",
		Usage: "outcome recorded in the receipt: status, root, or unknown",
		Value: types.OutcomeStatusCode.String(),
	},
}

func (f *outcomeFlagType) Fetch(context *cli.Context) (types.OutcomeKind, error) {
	return types.ParseOutcomeKind(context.String(f.Name))
}

type cacheSizeFlagType struct {
	cli.IntFlag
}

var CacheSizeFlag = &cacheSizeFlagType{
	cli.IntFlag{
		Name:  "cache-size",
		Usage: "number of decoded metadata payloads kept for reuse, 0 disables the cache",
		Value: 1024,
	},
}

func (f *cacheSizeFlagType) Fetch(context *cli.Context) int {
	return context.Int(f.Name)
}

type metaGasFlagType struct {
	cli.BoolFlag
}

var MetaGasFlag = &metaGasFlagType{
	cli.BoolFlag{
		Name:  "meta-gas",
		Usage: "account intrinsic gas for metadata payloads and their entries",
	},
}

func (f *metaGasFlagType) Fetch(context *cli.Context) bool {
	return context.Bool(f.Name)
}

type chargeMetaGasFlagType struct {
	cli.BoolFlag
}

var ChargeMetaGasFlag = &chargeMetaGasFlagType{
	cli.BoolFlag{
		Name:  "charge-meta-gas",
		Usage: "bill the gas consumed by the metadata pipeline to the sender",
	},
}

func (f *chargeMetaGasFlagType) Fetch(context *cli.Context) bool {
	return context.Bool(f.Name)
}

// metaEntryGas is the intrinsic gas of a single payout.
const metaEntryGas = 2_300

func fetchProcessorConfig(context *cli.Context) floria.Config {
	config := floria.Config{
		Meta: meta.Config{
			CacheSize: CacheSizeFlag.Fetch(context),
		},
		ChargeMetaGas: ChargeMetaGasFlag.Fetch(context),
	}
	if MetaGasFlag.Fetch(context) {
		config.Meta.ExecutorGas = meta.DataGas(floria.TxDataZeroGasEIP2028, floria.TxDataNonZeroGasEIP2028)
		config.Meta.PayerGas = meta.EntryGas(metaEntryGas)
	}
	return config
}

// parseHex decodes a hex string with an optional 0x prefix.
func parseHex(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
	res, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return res, nil
}

// readArgument returns the argument or, if it is "-", the content of stdin.
func readArgument(context *cli.Context, index int) (string, error) {
	if context.Args().Len() <= index {
		return "", fmt.Errorf("missing argument, usage: %s %s", context.Command.Name, context.Command.ArgsUsage)
	}
	arg := context.Args().Get(index)
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(context.App.Reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
