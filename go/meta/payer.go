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
	"fmt"
	"math"

	"github.com/Fantom-foundation/Iolite/go/tosca"
)

// PaymentDecision is the outcome of an affordability check. An affordable
// decision carries the total amount to be paid.
type PaymentDecision struct {
	amount     tosca.Value
	affordable bool
}

func CanPay(amount tosca.Value) PaymentDecision {
	return PaymentDecision{amount: amount, affordable: true}
}

func CantPay() PaymentDecision {
	return PaymentDecision{}
}

// Affordable returns the amount to be paid and whether the payment may be
// performed at all.
func (d PaymentDecision) Affordable() (tosca.Value, bool) {
	return d.amount, d.affordable
}

func (d PaymentDecision) String() string {
	if !d.affordable {
		return "can't pay"
	}
	return fmt.Sprintf("can pay %v", d.amount)
}

// Payment is the receipt fragment produced by paying out meta logs.
type Payment struct {
	Logs    []tosca.Log
	GasUsed tosca.Gas
}

// Payer pays out the meta logs of a transaction on behalf of the sender. A
// payer is a single-use capability: its state handle is released by the
// first call to Pay and every later call fails with ErrPayerSpent.
type Payer struct {
	kind  Kind
	from  tosca.Address
	logs  tosca.MetaLogs
	limit tosca.Value
	gas   PayerGasFunc
	spent bool

	// only used by simple payers
	ledger Ledger

	// only used by business payers
	transaction tosca.Transaction
	engine      Engine
}

// NewSimplePayer creates a payer booking the payments directly on the given
// ledger.
func NewSimplePayer(from tosca.Address, logs tosca.MetaLogs, limit tosca.Value, ledger Ledger) *Payer {
	return &Payer{
		kind:   Simple,
		from:   from,
		logs:   logs,
		limit:  limit,
		ledger: ledger,
	}
}

// NewBusinessPayer creates a payer running one value transfer per meta log
// entry on the write handle of the engine. The transfers are sent with the
// nonce and gas price of the given transaction.
func NewBusinessPayer(from tosca.Address, logs tosca.MetaLogs, limit tosca.Value, transaction tosca.Transaction, engine Engine) *Payer {
	return &Payer{
		kind:        Business,
		from:        from,
		logs:        logs,
		limit:       limit,
		transaction: transaction,
		engine:      engine,
	}
}

func (p *Payer) Kind() Kind {
	return p.kind
}

// MetaLogs returns the entries paid out by this payer.
func (p *Payer) MetaLogs() tosca.MetaLogs {
	return p.logs.Clone()
}

// IntrinsicGas is the gas charged for paying out the meta logs. It is a pure
// function of the logs.
func (p *Payer) IntrinsicGas() uint64 {
	if p.gas == nil {
		return 0
	}
	return p.gas(p.logs)
}

// CanPay checks whether the meta logs are affordable. The total must not
// exceed the limit of the transaction, the sender must cover it, and no
// recipient balance may overflow. The check does not modify any state.
func (p *Payer) CanPay() PaymentDecision {
	balances := p.balances()
	if p.spent || balances == nil {
		return CantPay()
	}
	total, ok := p.logs.Total()
	if !ok || total.Cmp(p.limit) > 0 {
		return CantPay()
	}
	if balances.GetBalance(p.from).Cmp(total) < 0 {
		return CantPay()
	}

	credits := map[tosca.Address]tosca.Value{}
	for _, entry := range p.logs.Entries() {
		if entry.Recipient == p.from {
			continue
		}
		credit, overflow := tosca.AddOverflow(credits[entry.Recipient], entry.Amount)
		if overflow {
			return CantPay()
		}
		credits[entry.Recipient] = credit
	}
	for recipient, credit := range credits {
		if _, overflow := tosca.AddOverflow(balances.GetBalance(recipient), credit); overflow {
			return CantPay()
		}
	}
	return CanPay(total)
}

// Pay performs the payment using at most the given amount of gas. It returns
// the paid amount and the receipt fragment of the payment. Every failure
// satisfies errors.Is(err, ErrInsufficientFunds).
func (p *Payer) Pay(gas uint64) (tosca.Value, Payment, error) {
	if p.spent {
		return tosca.Value{}, Payment{}, fmt.Errorf("%w: %w", ErrInsufficientFunds, ErrPayerSpent)
	}
	defer p.release()

	amount, affordable := p.CanPay().Affordable()
	if !affordable {
		return tosca.Value{}, Payment{}, ErrInsufficientFunds
	}
	switch p.kind {
	case Simple:
		p.paySimple(amount)
		return amount, Payment{}, nil
	case Business:
		payment, err := p.payBusiness(gas)
		if err != nil {
			return tosca.Value{}, payment, fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
		}
		return amount, payment, nil
	}
	return tosca.Value{}, Payment{}, fmt.Errorf("%w: unsupported payer kind %v", ErrInsufficientFunds, p.kind)
}

func (p *Payer) paySimple(total tosca.Value) {
	p.ledger.SetBalance(p.from, tosca.Sub(p.ledger.GetBalance(p.from), total))
	for _, entry := range p.logs.Entries() {
		p.ledger.SetBalance(entry.Recipient, tosca.Add(p.ledger.GetBalance(entry.Recipient), entry.Amount))
	}
}

func (p *Payer) payBusiness(gas uint64) (Payment, error) {
	payment := Payment{}
	remaining := tosca.Gas(math.MaxInt64)
	if gas < math.MaxInt64 {
		remaining = tosca.Gas(gas)
	}
	for _, entry := range p.logs.Entries() {
		recipient := entry.Recipient
		result, err := p.engine.Transact(tosca.Transaction{
			Sender:    p.from,
			Recipient: &recipient,
			Nonce:     p.transaction.Nonce,
			Value:     entry.Amount,
			GasLimit:  remaining,
			GasPrice:  p.transaction.GasPrice,
		})
		if err != nil {
			return payment, fmt.Errorf("%w to %v: %w", ErrPaymentFailed, recipient, err)
		}
		if !result.Success {
			return payment, fmt.Errorf("%w to %v: transfer reverted", ErrPaymentFailed, recipient)
		}
		payment.GasUsed += result.GasUsed
		payment.Logs = append(payment.Logs, result.Logs...)
		remaining -= result.GasUsed
		if remaining < 0 {
			remaining = 0
		}
	}
	return payment, nil
}

func (p *Payer) balances() BalanceReader {
	switch p.kind {
	case Simple:
		if p.ledger != nil {
			return p.ledger
		}
	case Business:
		if p.engine != nil {
			return p.engine
		}
	}
	return nil
}

func (p *Payer) release() {
	p.spent = true
	p.ledger = nil
	p.engine = nil
}
