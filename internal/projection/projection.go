// Package projection shapes raw ledger records into typed domain entities.
// It is a strict deserialization boundary: records that fail shape or status
// validation are rejected, never silently coerced. All filtering happens
// client-side after a full fetch because the ledger read API exposes no
// server-side predicate, and list order follows insertion order (ascending
// numeric id) with no re-sorting.
package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"peerlend/internal/chain"
	"peerlend/internal/domain"
	"peerlend/internal/units"
)

// Ledger is the read slice of the chain client.
type Ledger interface {
	Resource(ctx context.Context, address, resourceType string) (json.RawMessage, error)
	TableItem(ctx context.Context, handle, keyType, valueType string, key any) (json.RawMessage, error)
}

type Projector struct {
	Chain           Ledger
	ContractAddress string
	ContractModule  string

	// FetchLimit bounds concurrent table-item reads per listing.
	FetchLimit int
}

func (p *Projector) typeName(name string) string {
	return chain.Qualified(p.ContractAddress, p.ContractModule, name)
}

type tableHandle struct {
	Handle string `json:"handle"`
}

type offerRegistry struct {
	Offers      tableHandle `json:"offers"`
	NextOfferID string      `json:"next_offer_id"`
}

type requestRegistry struct {
	Requests      tableHandle `json:"requests"`
	NextRequestID string      `json:"next_request_id"`
}

// Raw table records. The contract stores u64 values as decimal strings and
// the u8 status code as a JSON number.
type rawOffer struct {
	Lender       string `json:"lender"`
	Amount       string `json:"amount"`
	InterestRate string `json:"interest_rate"`
	DurationDays string `json:"duration_days"`
	Status       uint64 `json:"status"`
}

type rawRequest struct {
	Borrower        string `json:"borrower"`
	Lender          string `json:"lender"`
	OfferID         string `json:"offer_id"`
	Amount          string `json:"amount"`
	Collateral      string `json:"collateral"`
	IncomeProofHash string `json:"income_proof_hash"`
	IDProofHash     string `json:"id_proof_hash"`
	Status          uint64 `json:"status"`
}

// Offers returns every offer in the registry in ascending id order.
func (p *Projector) Offers(ctx context.Context) ([]domain.Offer, error) {
	handle, count, err := p.registry(ctx, "OfferRegistry", func(raw json.RawMessage) (string, string, error) {
		var reg offerRegistry
		if err := json.Unmarshal(raw, &reg); err != nil {
			return "", "", err
		}
		return reg.Offers.Handle, reg.NextOfferID, nil
	})
	if err != nil {
		return nil, err
	}

	offers := make([]*domain.Offer, count)
	if err := p.fetchEach(ctx, count, func(ctx context.Context, id uint64) error {
		raw, err := p.Chain.TableItem(ctx, handle, "u64", p.typeName("Offer"), units.FormatAtomic(id))
		if errors.Is(err, chain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		offer, err := decodeOffer(id, raw)
		if err != nil {
			return err
		}
		offers[id] = offer
		return nil
	}); err != nil {
		return nil, err
	}

	out := make([]domain.Offer, 0, count)
	for _, o := range offers {
		if o != nil {
			out = append(out, *o)
		}
	}
	return out, nil
}

// Requests returns every loan request in the registry in ascending id order.
func (p *Projector) Requests(ctx context.Context) ([]domain.Request, error) {
	handle, count, err := p.registry(ctx, "RequestRegistry", func(raw json.RawMessage) (string, string, error) {
		var reg requestRegistry
		if err := json.Unmarshal(raw, &reg); err != nil {
			return "", "", err
		}
		return reg.Requests.Handle, reg.NextRequestID, nil
	})
	if err != nil {
		return nil, err
	}

	requests := make([]*domain.Request, count)
	if err := p.fetchEach(ctx, count, func(ctx context.Context, id uint64) error {
		raw, err := p.Chain.TableItem(ctx, handle, "u64", p.typeName("LoanRequest"), units.FormatAtomic(id))
		if errors.Is(err, chain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		req, err := decodeRequest(id, raw)
		if err != nil {
			return err
		}
		requests[id] = req
		return nil
	}); err != nil {
		return nil, err
	}

	out := make([]domain.Request, 0, count)
	for _, r := range requests {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// OffersByLender filters the full offer list to one lender's offers.
func (p *Projector) OffersByLender(ctx context.Context, lender string) ([]domain.Offer, error) {
	all, err := p.Offers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Offer, 0, len(all))
	for _, o := range all {
		if o.Lender == lender {
			out = append(out, o)
		}
	}
	return out, nil
}

// PendingRequestsForLender returns requests addressed to offers the lender
// owns that still await a decision.
func (p *Projector) PendingRequestsForLender(ctx context.Context, lender string) ([]domain.Request, error) {
	all, err := p.Requests(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Request, 0, len(all))
	for _, r := range all {
		if r.Lender == lender && r.State == domain.RequestPending {
			out = append(out, r)
		}
	}
	return out, nil
}

// LoansForBorrower returns the borrower's requests that the lender approved
// and that are not yet settled or written off.
func (p *Projector) LoansForBorrower(ctx context.Context, borrower string) ([]domain.Request, error) {
	all, err := p.Requests(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Request, 0, len(all))
	for _, r := range all {
		if r.Borrower == borrower && r.State == domain.RequestApproved {
			out = append(out, r)
		}
	}
	return out, nil
}

// RequestsForBorrower returns all of the borrower's requests regardless of
// lifecycle state.
func (p *Projector) RequestsForBorrower(ctx context.Context, borrower string) ([]domain.Request, error) {
	all, err := p.Requests(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Request, 0, len(all))
	for _, r := range all {
		if r.Borrower == borrower {
			out = append(out, r)
		}
	}
	return out, nil
}

func (p *Projector) registry(ctx context.Context, resourceName string, decode func(json.RawMessage) (string, string, error)) (string, uint64, error) {
	raw, err := p.Chain.Resource(ctx, p.ContractAddress, p.typeName(resourceName))
	if err != nil {
		return "", 0, err
	}
	handle, nextID, err := decode(raw)
	if err != nil {
		return "", 0, fmt.Errorf("%s: malformed registry record: %w", resourceName, err)
	}
	if handle == "" {
		return "", 0, fmt.Errorf("%s: registry record missing table handle", resourceName)
	}
	count, err := units.ParseAtomic(nextID)
	if err != nil {
		return "", 0, fmt.Errorf("%s: malformed next id %q", resourceName, nextID)
	}
	return handle, count, nil
}

func (p *Projector) fetchEach(ctx context.Context, count uint64, fetch func(ctx context.Context, id uint64) error) error {
	g, ctx := errgroup.WithContext(ctx)
	limit := p.FetchLimit
	if limit <= 0 {
		limit = 8
	}
	g.SetLimit(limit)
	for id := uint64(0); id < count; id++ {
		id := id
		g.Go(func() error { return fetch(ctx, id) })
	}
	return g.Wait()
}

func decodeOffer(id uint64, raw json.RawMessage) (*domain.Offer, error) {
	var rec rawOffer
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("offer %d: malformed record: %w", id, err)
	}
	if rec.Lender == "" {
		return nil, fmt.Errorf("offer %d: missing lender", id)
	}
	amount, err := units.ParseAtomic(rec.Amount)
	if err != nil {
		return nil, fmt.Errorf("offer %d: malformed amount %q", id, rec.Amount)
	}
	rate, err := units.ParseAtomic(rec.InterestRate)
	if err != nil {
		return nil, fmt.Errorf("offer %d: malformed interest rate %q", id, rec.InterestRate)
	}
	days, err := units.ParseAtomic(rec.DurationDays)
	if err != nil {
		return nil, fmt.Errorf("offer %d: malformed duration %q", id, rec.DurationDays)
	}
	state, err := domain.OfferStateFromCode(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("offer %d: %w", id, err)
	}
	return &domain.Offer{
		ID:           id,
		Lender:       rec.Lender,
		AmountAtomic: amount,
		Amount:       units.FromAtomic(amount),
		RateBps:      rate,
		DurationDays: days,
		State:        state,
	}, nil
}

func decodeRequest(id uint64, raw json.RawMessage) (*domain.Request, error) {
	var rec rawRequest
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("request %d: malformed record: %w", id, err)
	}
	if rec.Borrower == "" || rec.Lender == "" {
		return nil, fmt.Errorf("request %d: missing party address", id)
	}
	offerID, err := units.ParseAtomic(rec.OfferID)
	if err != nil {
		return nil, fmt.Errorf("request %d: malformed offer id %q", id, rec.OfferID)
	}
	amount, err := units.ParseAtomic(rec.Amount)
	if err != nil {
		return nil, fmt.Errorf("request %d: malformed amount %q", id, rec.Amount)
	}
	collateral, err := units.ParseAtomic(rec.Collateral)
	if err != nil {
		return nil, fmt.Errorf("request %d: malformed collateral %q", id, rec.Collateral)
	}
	state, err := domain.RequestStateFromCode(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("request %d: %w", id, err)
	}
	return &domain.Request{
		ID:               id,
		OfferID:          offerID,
		Borrower:         rec.Borrower,
		Lender:           rec.Lender,
		AmountAtomic:     amount,
		Amount:           units.FromAtomic(amount),
		CollateralAtomic: collateral,
		Collateral:       units.FromAtomic(collateral),
		IncomeProofHash:  rec.IncomeProofHash,
		IDProofHash:      rec.IDProofHash,
		State:            state,
	}, nil
}
