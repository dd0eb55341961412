// Package payload builds entry-function transaction requests for the lending
// contract. Builders do shape work only: arguments arrive already validated
// and already converted to atomic units, and land in the exact positional
// order the contract expects. Domain rules (sufficient funds, authorization)
// are the contract's to enforce and surface only as submission failures.
package payload

import (
	"peerlend/internal/chain"
	"peerlend/internal/units"
)

// EntryFunction is the opaque request descriptor handed to the wallet for
// signing and submission.
type EntryFunction struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// Builder binds payload construction to one deployed contract.
type Builder struct {
	ContractAddress string
	ContractModule  string
	CoinType        string
}

func (b Builder) fn(name string) string {
	return chain.Qualified(b.ContractAddress, b.ContractModule, name)
}

func (b Builder) entry(name string, args ...any) EntryFunction {
	typeArgs := []string{}
	if b.CoinType != "" {
		typeArgs = []string{b.CoinType}
	}
	return EntryFunction{
		Function:      b.fn(name),
		TypeArguments: typeArgs,
		Arguments:     args,
	}
}

// u64 arguments travel as decimal strings per the ledger JSON convention.
func u64(v uint64) string { return units.FormatAtomic(v) }

func (b Builder) CreateOffer(amountAtomic, rateBps, durationDays uint64) EntryFunction {
	return b.entry("create_offer", u64(amountAtomic), u64(rateBps), u64(durationDays))
}

func (b Builder) CancelOffer(offerID uint64) EntryFunction {
	return b.entry("cancel_offer", u64(offerID))
}

func (b Builder) RequestLoan(offerID, amountAtomic, collateralAtomic uint64, incomeProofHash, idProofHash string) EntryFunction {
	return b.entry("request_loan",
		u64(offerID), u64(amountAtomic), u64(collateralAtomic), incomeProofHash, idProofHash)
}

func (b Builder) ApproveRequest(requestID uint64) EntryFunction {
	return b.entry("approve_request", u64(requestID))
}

func (b Builder) RejectRequest(requestID uint64) EntryFunction {
	return b.entry("reject_request", u64(requestID))
}

func (b Builder) RepayLoan(requestID, amountAtomic uint64) EntryFunction {
	return b.entry("repay_loan", u64(requestID), u64(amountAtomic))
}
