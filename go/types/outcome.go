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
	"fmt"

	"github.com/Fantom-foundation/Iolite/go/tosca"
)

// OutcomeKind enumerates the ways a receipt may report the outcome of its
// transaction. The kind determines the wire shape of the receipt.
type OutcomeKind byte

const (
	OutcomeUnknown OutcomeKind = iota
	OutcomeStateRoot
	OutcomeStatusCode
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeUnknown:
		return "unknown"
	case OutcomeStateRoot:
		return "root"
	case OutcomeStatusCode:
		return "status"
	}
	return fmt.Sprintf("OutcomeKind(%d)", byte(k))
}

// ParseOutcomeKind is the inverse of OutcomeKind.String.
func ParseOutcomeKind(name string) (OutcomeKind, error) {
	for _, kind := range []OutcomeKind{OutcomeUnknown, OutcomeStateRoot, OutcomeStatusCode} {
		if kind.String() == name {
			return kind, nil
		}
	}
	return OutcomeUnknown, fmt.Errorf("unknown outcome kind %q", name)
}

// TransactionOutcome is either unknown, a post-transaction state root, or a
// status code. The zero value is the unknown outcome.
type TransactionOutcome struct {
	kind   OutcomeKind
	root   tosca.Hash
	status uint8
}

func UnknownOutcome() TransactionOutcome {
	return TransactionOutcome{}
}

func StateRootOutcome(root tosca.Hash) TransactionOutcome {
	return TransactionOutcome{kind: OutcomeStateRoot, root: root}
}

func StatusCodeOutcome(status uint8) TransactionOutcome {
	return TransactionOutcome{kind: OutcomeStatusCode, status: status}
}

// StatusOutcome reports 1 for successful and 0 for failed transactions.
func StatusOutcome(success bool) TransactionOutcome {
	if success {
		return StatusCodeOutcome(1)
	}
	return StatusCodeOutcome(0)
}

func (o TransactionOutcome) Kind() OutcomeKind {
	return o.kind
}

// StateRoot returns the state root if the outcome carries one.
func (o TransactionOutcome) StateRoot() (tosca.Hash, bool) {
	return o.root, o.kind == OutcomeStateRoot
}

// StatusCode returns the status code if the outcome carries one.
func (o TransactionOutcome) StatusCode() (uint8, bool) {
	return o.status, o.kind == OutcomeStatusCode
}

func (o TransactionOutcome) String() string {
	switch o.kind {
	case OutcomeStateRoot:
		return fmt.Sprintf("root(%v)", o.root)
	case OutcomeStatusCode:
		return fmt.Sprintf("status(%d)", o.status)
	}
	return o.kind.String()
}
