package payload

import (
	"reflect"
	"testing"
)

var builder = Builder{
	ContractAddress: "0xbeef",
	ContractModule:  "peer_lending",
	CoinType:        "0x1::aptos_coin::AptosCoin",
}

func TestCreateOffer(t *testing.T) {
	p := builder.CreateOffer(123_456_789, 850, 30)
	if p.Function != "0xbeef::peer_lending::create_offer" {
		t.Fatalf("function = %q", p.Function)
	}
	if !reflect.DeepEqual(p.TypeArguments, []string{"0x1::aptos_coin::AptosCoin"}) {
		t.Fatalf("type arguments = %v", p.TypeArguments)
	}
	want := []any{"123456789", "850", "30"}
	if !reflect.DeepEqual(p.Arguments, want) {
		t.Fatalf("arguments = %v, want %v", p.Arguments, want)
	}
}

func TestRequestLoanArgumentOrder(t *testing.T) {
	p := builder.RequestLoan(7, 1_000_000, 2_000_000, "doc:abc", "doc:def")
	want := []any{"7", "1000000", "2000000", "doc:abc", "doc:def"}
	if !reflect.DeepEqual(p.Arguments, want) {
		t.Fatalf("arguments = %v, want %v", p.Arguments, want)
	}
}

func TestSingleArgumentActions(t *testing.T) {
	cases := []struct {
		name string
		p    EntryFunction
		fn   string
	}{
		{"cancel", builder.CancelOffer(3), "0xbeef::peer_lending::cancel_offer"},
		{"approve", builder.ApproveRequest(4), "0xbeef::peer_lending::approve_request"},
		{"reject", builder.RejectRequest(5), "0xbeef::peer_lending::reject_request"},
	}
	for _, tc := range cases {
		if tc.p.Function != tc.fn {
			t.Errorf("%s: function = %q, want %q", tc.name, tc.p.Function, tc.fn)
		}
		if len(tc.p.Arguments) != 1 {
			t.Errorf("%s: expected one argument, got %v", tc.name, tc.p.Arguments)
		}
	}
}

func TestNoCoinTypeMeansNoTypeArguments(t *testing.T) {
	b := Builder{ContractAddress: "0x1", ContractModule: "m"}
	p := b.RepayLoan(1, 2)
	if len(p.TypeArguments) != 0 {
		t.Fatalf("type arguments = %v, want empty", p.TypeArguments)
	}
	if p.TypeArguments == nil {
		t.Fatal("type arguments must marshal as [], not null")
	}
}
