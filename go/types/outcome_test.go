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
	"testing"

	"github.com/Fantom-foundation/Iolite/go/tosca"
)

func TestTransactionOutcome_ZeroValueIsUnknown(t *testing.T) {
	var outcome TransactionOutcome
	if outcome != UnknownOutcome() || outcome.Kind() != OutcomeUnknown {
		t.Errorf("zero outcome should be unknown, got %v", outcome)
	}
}

func TestTransactionOutcome_Accessors(t *testing.T) {
	root := tosca.Hash{1, 2, 3}
	if got, ok := StateRootOutcome(root).StateRoot(); !ok || got != root {
		t.Errorf("unexpected state root %v/%t", got, ok)
	}
	if _, ok := StateRootOutcome(root).StatusCode(); ok {
		t.Errorf("state root outcome should not have a status code")
	}
	if got, ok := StatusCodeOutcome(1).StatusCode(); !ok || got != 1 {
		t.Errorf("unexpected status code %v/%t", got, ok)
	}
	if _, ok := UnknownOutcome().StateRoot(); ok {
		t.Errorf("unknown outcome should not have a state root")
	}
	if StatusOutcome(true) != StatusCodeOutcome(1) || StatusOutcome(false) != StatusCodeOutcome(0) {
		t.Errorf("unexpected status outcomes")
	}
}

func TestOutcomeKind_ParseInvertsString(t *testing.T) {
	for _, kind := range []OutcomeKind{OutcomeUnknown, OutcomeStateRoot, OutcomeStatusCode} {
		got, err := ParseOutcomeKind(kind.String())
		if err != nil {
			t.Fatalf("failed to parse %v: %v", kind, err)
		}
		if got != kind {
			t.Errorf("unexpected kind, wanted %v, got %v", kind, got)
		}
	}
	if _, err := ParseOutcomeKind("something"); err == nil {
		t.Errorf("expected parsing of unknown name to fail")
	}
}
