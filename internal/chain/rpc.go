package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the node has no record under the
	// requested address, handle, or hash.
	ErrNotFound = errors.New("ledger record not found")

	// ErrConfirmTimeout means the confirmation wait gave up before the
	// ledger committed the transaction. The transaction may still finalize;
	// callers must treat this as result-unknown, not as failure.
	ErrConfirmTimeout = errors.New("confirmation wait timed out")
)

// APIError is a non-2xx response from the node, carrying the node's own
// message so contract-side rejection reasons reach the user verbatim.
type APIError struct {
	StatusCode int
	Code       string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger api status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ledger api status %d", e.StatusCode)
}

// RPCClient talks to a single ledger fullnode REST endpoint.
type RPCClient struct {
	baseURL string
	client  *http.Client
}

func NewRPCClient(baseURL string) *RPCClient {
	return &RPCClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type LedgerInfo struct {
	ChainID       uint64 `json:"chain_id"`
	LedgerVersion string `json:"ledger_version"`
	Epoch         string `json:"epoch"`
}

func (c *RPCClient) LedgerInfo(ctx context.Context) (*LedgerInfo, error) {
	var info LedgerInfo
	if err := c.getJSON(ctx, c.baseURL+"/v1", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Resource fetches the singleton record stored under address and the fully
// qualified resource type, e.g. "0xabc::peer_lending::OfferRegistry".
func (c *RPCClient) Resource(ctx context.Context, address, resourceType string) (json.RawMessage, error) {
	endpoint := c.baseURL + "/v1/accounts/" + url.PathEscape(address) + "/resource/" + url.PathEscape(resourceType)
	var resp struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// TableItem looks up one entry of an on-chain table by handle and key.
func (c *RPCClient) TableItem(ctx context.Context, handle, keyType, valueType string, key any) (json.RawMessage, error) {
	endpoint := c.baseURL + "/v1/tables/" + url.PathEscape(handle) + "/item"
	body := map[string]any{
		"key_type":   keyType,
		"value_type": valueType,
		"key":        key,
	}
	var out json.RawMessage
	if err := c.postJSON(ctx, endpoint, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// View invokes a stateless view function and returns its raw return values.
func (c *RPCClient) View(ctx context.Context, function string, typeArgs []string, args []any) ([]json.RawMessage, error) {
	if typeArgs == nil {
		typeArgs = []string{}
	}
	if args == nil {
		args = []any{}
	}
	body := map[string]any{
		"function":       function,
		"type_arguments": typeArgs,
		"arguments":      args,
	}
	var out []json.RawMessage
	if err := c.postJSON(ctx, c.baseURL+"/v1/view", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TxInfo is the node's record of a transaction looked up by hash.
type TxInfo struct {
	Type     string `json:"type"`
	Hash     string `json:"hash"`
	Success  bool   `json:"success"`
	VMStatus string `json:"vm_status"`
	Version  string `json:"version"`
}

// Pending reports whether the node has seen the transaction but not yet
// committed it.
func (t *TxInfo) Pending() bool {
	return t.Type == "pending_transaction"
}

func (c *RPCClient) TransactionByHash(ctx context.Context, hash string) (*TxInfo, error) {
	endpoint := c.baseURL + "/v1/transactions/by_hash/" + url.PathEscape(hash)
	var info TxInfo
	if err := c.getJSON(ctx, endpoint, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// WaitForTransaction polls by hash until the ledger commits the transaction
// or the timeout elapses. A hash the node does not know yet is polled
// through, since submission and indexing race.
func (c *RPCClient) WaitForTransaction(ctx context.Context, hash string, timeout, interval time.Duration) (*TxInfo, error) {
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		info, err := c.TransactionByHash(ctx, hash)
		switch {
		case errors.Is(err, ErrNotFound):
			// keep polling
		case err != nil:
			return nil, err
		case info.Pending():
			// keep polling
		default:
			return info, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrConfirmTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *RPCClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *RPCClient) postJSON(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *RPCClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, apiErr); err != nil {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
