package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"peerlend/internal/payload"
)

// Bridge talks to a local wallet-bridge daemon over HTTP. The bridge fronts
// the browser-extension (or hardware) wallet, so calls here can hang until
// the user approves or declines in the wallet UI.
type Bridge struct {
	baseURL string
	client  *http.Client
}

func NewBridge(baseURL string) *Bridge {
	return &Bridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Long timeout: a pending signing prompt is not a network stall.
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (b *Bridge) Connect(ctx context.Context, name string) (Account, error) {
	var out Account
	err := b.post(ctx, "/connect", map[string]string{"wallet": name}, &out)
	if err != nil {
		return Account{}, err
	}
	if out.WalletName == "" {
		out.WalletName = name
	}
	return out, nil
}

func (b *Bridge) Disconnect(ctx context.Context) error {
	return b.post(ctx, "/disconnect", struct{}{}, nil)
}

func (b *Bridge) SignAndSubmit(ctx context.Context, fn payload.EntryFunction) (string, error) {
	var out struct {
		Hash string `json:"hash"`
	}
	if err := b.post(ctx, "/sign_and_submit", fn, &out); err != nil {
		return "", err
	}
	return out.Hash, nil
}

func (b *Bridge) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(data, &apiErr)
		switch apiErr.Code {
		case "user_rejected":
			return ErrUserRejected
		case "no_session":
			return ErrNoSession
		}
		if apiErr.Message != "" {
			return fmt.Errorf("wallet bridge status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("wallet bridge status %d", resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
