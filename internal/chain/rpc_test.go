package chain

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestQualified(t *testing.T) {
	got := Qualified("0xbeef", "peer_lending", "OfferRegistry")
	if got != "0xbeef::peer_lending::OfferRegistry" {
		t.Fatalf("Qualified = %q", got)
	}
}

func TestResource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/accounts/0xbeef/resource/0xbeef::peer_lending::OfferRegistry" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"0xbeef::peer_lending::OfferRegistry","data":{"next_offer_id":"3"}}`))
	}))
	defer srv.Close()

	c := NewRPCClient(srv.URL)
	data, err := c.Resource(context.Background(), "0xbeef", "0xbeef::peer_lending::OfferRegistry")
	if err != nil {
		t.Fatalf("Resource: %v", err)
	}
	if string(data) != `{"next_offer_id":"3"}` {
		t.Fatalf("data = %s", data)
	}
}

func TestResourceNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"resource not found","error_code":"resource_not_found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewRPCClient(srv.URL)
	if _, err := c.Resource(context.Background(), "0x1", "0x1::m::T"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAPIErrorCarriesNodeMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Move abort: EINSUFFICIENT_FUNDS","error_code":"vm_error"}`))
	}))
	defer srv.Close()

	c := NewRPCClient(srv.URL)
	_, err := c.View(context.Background(), "0x1::m::f", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Message != "Move abort: EINSUFFICIENT_FUNDS" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestTableItemRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/v1/tables/0xhandle/item" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"lender":"0x2"}`))
	}))
	defer srv.Close()

	c := NewRPCClient(srv.URL)
	raw, err := c.TableItem(context.Background(), "0xhandle", "u64", "0x1::m::Offer", "0")
	if err != nil {
		t.Fatalf("TableItem: %v", err)
	}
	if string(raw) != `{"lender":"0x2"}` {
		t.Fatalf("raw = %s", raw)
	}
}

func TestWaitForTransactionPendingThenCommitted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
		case 2:
			w.Write([]byte(`{"type":"pending_transaction","hash":"0xabc"}`))
		default:
			w.Write([]byte(`{"type":"user_transaction","hash":"0xabc","success":true,"vm_status":"Executed successfully"}`))
		}
	}))
	defer srv.Close()

	c := NewRPCClient(srv.URL)
	info, err := c.WaitForTransaction(context.Background(), "0xabc", 5*time.Second, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForTransaction: %v", err)
	}
	if !info.Success {
		t.Fatalf("expected success, got %+v", info)
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 polls, got %d", calls.Load())
	}
}

func TestWaitForTransactionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"pending_transaction","hash":"0xabc"}`))
	}))
	defer srv.Close()

	c := NewRPCClient(srv.URL)
	_, err := c.WaitForTransaction(context.Background(), "0xabc", 30*time.Millisecond, 10*time.Millisecond)
	if !errors.Is(err, ErrConfirmTimeout) {
		t.Fatalf("err = %v, want ErrConfirmTimeout", err)
	}
}

func TestMultiRPCFailover(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chain_id":2,"ledger_version":"100"}`))
	}))
	defer good.Close()

	m, err := NewMultiRPCClient([]string{bad.URL, good.URL}, 1)
	if err != nil {
		t.Fatalf("NewMultiRPCClient: %v", err)
	}
	info, err := m.LedgerInfo(context.Background())
	if err != nil {
		t.Fatalf("LedgerInfo: %v", err)
	}
	if info.ChainID != 2 {
		t.Fatalf("chain id = %d", info.ChainID)
	}
	if m.BaseURL() != good.URL {
		t.Fatalf("expected rotation to %s, current %s", good.URL, m.BaseURL())
	}
}

func TestMultiRPCNotFoundIsNotAnOutage(t *testing.T) {
	var hits atomic.Int32
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"message":"missing"}`, http.StatusNotFound)
	}))
	defer a.Close()
	b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("second endpoint should not be consulted on 404")
	}))
	defer b.Close()

	m, err := NewMultiRPCClient([]string{a.URL, b.URL}, 3)
	if err != nil {
		t.Fatalf("NewMultiRPCClient: %v", err)
	}
	if _, err := m.Resource(context.Background(), "0x1", "0x1::m::T"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want 1", hits.Load())
	}
}

func TestSanitizeEndpoints(t *testing.T) {
	got := sanitizeEndpoints([]string{" http://a/ ", "", "http://a", "http://b"})
	if len(got) != 2 || got[0] != "http://a" || got[1] != "http://b" {
		t.Fatalf("sanitizeEndpoints = %v", got)
	}
}
