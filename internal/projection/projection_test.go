package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"peerlend/internal/domain"
)

type fakeLedger struct {
	resources map[string]string            // resource type -> data
	items     map[string]map[string]string // handle -> key -> value
}

func (f *fakeLedger) Resource(ctx context.Context, address, resourceType string) (json.RawMessage, error) {
	data, ok := f.resources[resourceType]
	if !ok {
		return nil, fmt.Errorf("no resource %s", resourceType)
	}
	return json.RawMessage(data), nil
}

func (f *fakeLedger) TableItem(ctx context.Context, handle, keyType, valueType string, key any) (json.RawMessage, error) {
	items, ok := f.items[handle]
	if !ok {
		return nil, fmt.Errorf("no table %s", handle)
	}
	v, ok := items[key.(string)]
	if !ok {
		return nil, fmt.Errorf("no item %v", key)
	}
	return json.RawMessage(v), nil
}

func newProjector(f *fakeLedger) *Projector {
	return &Projector{Chain: f, ContractAddress: "0xc", ContractModule: "peer_lending", FetchLimit: 4}
}

func offerJSON(lender string, amount string, status int) string {
	return fmt.Sprintf(`{"lender":%q,"amount":%q,"interest_rate":"850","duration_days":"30","status":%d}`, lender, amount, status)
}

func requestJSON(borrower, lender string, status int) string {
	return fmt.Sprintf(`{"borrower":%q,"lender":%q,"offer_id":"2","amount":"1000000","collateral":"2000000","income_proof_hash":"doc:aa","id_proof_hash":"doc:bb","status":%d}`, borrower, lender, status)
}

func TestOffersAscendingOrderAndConversion(t *testing.T) {
	f := &fakeLedger{
		resources: map[string]string{
			"0xc::peer_lending::OfferRegistry": `{"offers":{"handle":"0xofh"},"next_offer_id":"3"}`,
		},
		items: map[string]map[string]string{
			"0xofh": {
				"0": offerJSON("0xl0", "123456789", 0),
				"1": offerJSON("0xl1", "5000000", 1),
				"2": offerJSON("0xl2", "42000000", 2),
			},
		},
	}
	offers, err := newProjector(f).Offers(context.Background())
	if err != nil {
		t.Fatalf("Offers: %v", err)
	}
	if len(offers) != 3 {
		t.Fatalf("len = %d", len(offers))
	}
	for i, o := range offers {
		if o.ID != uint64(i) {
			t.Errorf("offers out of insertion order: position %d has id %d", i, o.ID)
		}
	}
	if offers[0].Amount != "123.456789" {
		t.Errorf("amount = %q, want decimal conversion applied", offers[0].Amount)
	}
	if offers[1].State != domain.OfferFulfilled || offers[2].State != domain.OfferCancelled {
		t.Errorf("states = %v %v", offers[1].State, offers[2].State)
	}
}

func TestPendingRequestsForLender(t *testing.T) {
	f := &fakeLedger{
		resources: map[string]string{
			"0xc::peer_lending::OfferRegistry":   `{"offers":{"handle":"0xofh"},"next_offer_id":"5"}`,
			"0xc::peer_lending::RequestRegistry": `{"requests":{"handle":"0xrqh"},"next_request_id":"6"}`,
		},
		items: map[string]map[string]string{
			"0xofh": {
				"0": offerJSON("0xl0", "1000000", 0),
				"1": offerJSON("0xl1", "1000000", 0),
				"2": offerJSON("0xlender2", "1000000", 0),
				"3": offerJSON("0xl3", "1000000", 0),
				"4": offerJSON("0xl4", "1000000", 0),
			},
			"0xrqh": {
				"0": requestJSON("0xb0", "0xlender2", 0), // pending, ours
				"1": requestJSON("0xb1", "0xl1", 0),      // pending, someone else's
				"2": requestJSON("0xb2", "0xlender2", 1), // ours but approved
				"3": requestJSON("0xb3", "0xlender2", 0), // pending, ours
				"4": requestJSON("0xb4", "0xlender2", 2), // ours but rejected
				"5": requestJSON("0xb5", "0xl4", 0),
			},
		},
	}
	got, err := newProjector(f).PendingRequestsForLender(context.Background(), "0xlender2")
	if err != nil {
		t.Fatalf("PendingRequestsForLender: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (%+v)", len(got), got)
	}
	if got[0].ID != 0 || got[1].ID != 3 {
		t.Fatalf("ids = %d,%d, want 0,3 in ascending order", got[0].ID, got[1].ID)
	}
	for _, r := range got {
		if r.Lender != "0xlender2" || r.State != domain.RequestPending {
			t.Errorf("filter leaked %+v", r)
		}
	}
}

func TestLoansForBorrower(t *testing.T) {
	f := &fakeLedger{
		resources: map[string]string{
			"0xc::peer_lending::RequestRegistry": `{"requests":{"handle":"0xrqh"},"next_request_id":"3"}`,
		},
		items: map[string]map[string]string{
			"0xrqh": {
				"0": requestJSON("0xme", "0xl", 1),    // approved, mine
				"1": requestJSON("0xme", "0xl", 3),    // repaid, settled
				"2": requestJSON("0xother", "0xl", 1), // approved, not mine
			},
		},
	}
	got, err := newProjector(f).LoansForBorrower(context.Background(), "0xme")
	if err != nil {
		t.Fatalf("LoansForBorrower: %v", err)
	}
	if len(got) != 1 || got[0].ID != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestMalformedRecordIsRejectedNotCoerced(t *testing.T) {
	cases := []struct {
		name  string
		value string
		frag  string
	}{
		{"bad amount", offerJSON("0xl", "12.5", 0), "malformed amount"},
		{"unknown status", offerJSON("0xl", "1000000", 9), "unknown offer status"},
		{"missing lender", offerJSON("", "1000000", 0), "missing lender"},
		{"not json", `"scalar"`, "malformed record"},
	}
	for _, tc := range cases {
		f := &fakeLedger{
			resources: map[string]string{
				"0xc::peer_lending::OfferRegistry": `{"offers":{"handle":"0xofh"},"next_offer_id":"1"}`,
			},
			items: map[string]map[string]string{"0xofh": {"0": tc.value}},
		}
		_, err := newProjector(f).Offers(context.Background())
		if err == nil {
			t.Errorf("%s: expected rejection", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.frag) {
			t.Errorf("%s: err = %v, want mention of %q", tc.name, err, tc.frag)
		}
	}
}

func TestMalformedRegistryIsRejected(t *testing.T) {
	f := &fakeLedger{
		resources: map[string]string{
			"0xc::peer_lending::OfferRegistry": `{"offers":{},"next_offer_id":"1"}`,
		},
	}
	_, err := newProjector(f).Offers(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing table handle") {
		t.Fatalf("err = %v", err)
	}
}

func TestEmptyRegistry(t *testing.T) {
	f := &fakeLedger{
		resources: map[string]string{
			"0xc::peer_lending::OfferRegistry": `{"offers":{"handle":"0xofh"},"next_offer_id":"0"}`,
		},
		items: map[string]map[string]string{"0xofh": {}},
	}
	offers, err := newProjector(f).Offers(context.Background())
	if err != nil {
		t.Fatalf("Offers: %v", err)
	}
	if len(offers) != 0 {
		t.Fatalf("len = %d", len(offers))
	}
}
