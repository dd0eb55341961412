// Package wallet defines the boundary to the external wallet collaborator.
// This process never holds key material: connecting yields an address, and
// signing plus submission happen entirely on the wallet's side of the fence.
package wallet

import (
	"context"
	"errors"

	"peerlend/internal/payload"
)

var (
	// ErrUserRejected means the user deliberately declined the signing
	// prompt. Callers surface this distinctly from real failures.
	ErrUserRejected = errors.New("wallet: user rejected the request")

	// ErrNoSession means no wallet session is active.
	ErrNoSession = errors.New("wallet: no active session")
)

// Account identifies a connected wallet account. Address is an opaque string
// used for display and as a payload argument, nothing more.
type Account struct {
	WalletName string `json:"walletName"`
	Address    string `json:"address"`
}

type Wallet interface {
	// Connect opens a session with the named wallet. May block on user
	// approval inside the wallet UI.
	Connect(ctx context.Context, name string) (Account, error)

	// Disconnect tears down the active session.
	Disconnect(ctx context.Context) error

	// SignAndSubmit has the wallet sign the entry function and forward it
	// to the ledger, returning the transaction hash. May block on user
	// approval and may return ErrUserRejected.
	SignAndSubmit(ctx context.Context, fn payload.EntryFunction) (string, error)
}
