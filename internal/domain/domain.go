package domain

import "fmt"

type OfferState string

const (
	OfferActive    OfferState = "active"
	OfferFulfilled OfferState = "fulfilled"
	OfferCancelled OfferState = "cancelled"
)

type RequestState string

const (
	RequestPending   RequestState = "pending"
	RequestApproved  RequestState = "approved"
	RequestRejected  RequestState = "rejected"
	RequestRepaid    RequestState = "repaid"
	RequestDefaulted RequestState = "defaulted"
)

// Terminal reports whether the request can no longer change on the ledger.
func (s RequestState) Terminal() bool {
	switch s {
	case RequestRejected, RequestRepaid, RequestDefaulted:
		return true
	}
	return false
}

// Contract-side numeric status codes. The contract stores lifecycle state as
// a u8; projections normalize it into the named states above and reject codes
// they do not recognize instead of coercing them.
func OfferStateFromCode(code uint64) (OfferState, error) {
	switch code {
	case 0:
		return OfferActive, nil
	case 1:
		return OfferFulfilled, nil
	case 2:
		return OfferCancelled, nil
	}
	return "", fmt.Errorf("unknown offer status code %d", code)
}

func RequestStateFromCode(code uint64) (RequestState, error) {
	switch code {
	case 0:
		return RequestPending, nil
	case 1:
		return RequestApproved, nil
	case 2:
		return RequestRejected, nil
	case 3:
		return RequestRepaid, nil
	case 4:
		return RequestDefaulted, nil
	}
	return "", fmt.Errorf("unknown request status code %d", code)
}

// Offer is a funding offer posted by a lender. Amounts carry both the atomic
// integer the ledger stores and the decimal rendering the UI shows; callers
// must never print the atomic form.
type Offer struct {
	ID           uint64     `json:"id"`
	Lender       string     `json:"lender"`
	AmountAtomic uint64     `json:"amountAtomic"`
	Amount       string     `json:"amount"`
	RateBps      uint64     `json:"rateBps"`
	DurationDays uint64     `json:"durationDays"`
	State        OfferState `json:"state"`
}

// Request is a borrower's loan request against exactly one offer. Lender is a
// back-reference to the offer's owner, not ownership of the offer.
type Request struct {
	ID               uint64       `json:"id"`
	OfferID          uint64       `json:"offerId"`
	Borrower         string       `json:"borrower"`
	Lender           string       `json:"lender"`
	AmountAtomic     uint64       `json:"amountAtomic"`
	Amount           string       `json:"amount"`
	CollateralAtomic uint64       `json:"collateralAtomic"`
	Collateral       string       `json:"collateral"`
	IncomeProofHash  string       `json:"incomeProofHash"`
	IDProofHash      string       `json:"idProofHash"`
	State            RequestState `json:"state"`
}
