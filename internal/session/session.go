// Package session owns the single connected-identity slot. Connect and
// disconnect are guarded against overlapping calls so the UI can never
// observe a half-switched identity.
package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"peerlend/internal/payload"
	"peerlend/internal/wallet"
)

var (
	// ErrBusy is returned while another connect or disconnect is settling.
	ErrBusy = errors.New("session: connect or disconnect already in flight")

	// ErrNotConnected is returned when an action needs a signing identity
	// and none is connected.
	ErrNotConnected = errors.New("session: no wallet connected")

	// ErrStubIdentity is returned when signing is attempted through an
	// identity restored from the advisory cache. A restored identity knows
	// its address but has no live wallet session behind it; it must fail
	// loudly rather than produce an invalid signature.
	ErrStubIdentity = errors.New("session: restored identity cannot sign, reconnect the wallet")
)

// Identity is the connected account plus its delegated signing capability.
// The signer is nil for identities rebuilt from the advisory cache.
type Identity struct {
	Account wallet.Account
	signer  wallet.Wallet
}

func (id *Identity) Address() string { return id.Account.Address }

// SignAndSubmit delegates to the wallet collaborator. No key material ever
// lives in this process.
func (id *Identity) SignAndSubmit(ctx context.Context, fn payload.EntryFunction) (string, error) {
	if id == nil {
		return "", ErrNotConnected
	}
	if id.signer == nil {
		return "", ErrStubIdentity
	}
	return id.signer.SignAndSubmit(ctx, fn)
}

// Restored reports whether this identity came from the advisory cache and
// therefore cannot sign.
func (id *Identity) Restored() bool { return id.signer == nil }

type Manager struct {
	wallet wallet.Wallet
	cache  *Cache

	mu      sync.Mutex
	busy    bool
	current *Identity
}

// NewManager wires the manager to the wallet collaborator. cache may be nil,
// in which case nothing is remembered across restarts.
func NewManager(w wallet.Wallet, cache *Cache) *Manager {
	return &Manager{wallet: w, cache: cache}
}

func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}
	m.busy = true
	return nil
}

func (m *Manager) settle() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

// Connect opens a wallet session and installs the resulting identity. While
// a connect or disconnect is in flight, further calls fail with ErrBusy.
func (m *Manager) Connect(ctx context.Context, walletName string) (*Identity, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	defer m.settle()

	acct, err := m.wallet.Connect(ctx, walletName)
	if err != nil {
		return nil, err
	}
	id := &Identity{Account: acct, signer: m.wallet}

	m.mu.Lock()
	m.current = id
	m.mu.Unlock()

	if m.cache != nil {
		if err := m.cache.Store(acct); err != nil {
			log.Printf("session: cache store failed: %v", err)
		}
	}
	return id, nil
}

// Disconnect tears down the wallet session and clears the identity slot.
func (m *Manager) Disconnect(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.settle()

	err := m.wallet.Disconnect(ctx)

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if m.cache != nil {
		if cerr := m.cache.Clear(); cerr != nil {
			log.Printf("session: cache clear failed: %v", cerr)
		}
	}
	return err
}

// Current returns the active identity, or nil when disconnected.
func (m *Manager) Current() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Restore rebuilds a display-only identity from the advisory cache. It never
// fails toward the caller: an unreadable cache entry is discarded and the
// manager simply starts disconnected.
func (m *Manager) Restore() *Identity {
	if m.cache == nil {
		return nil
	}
	acct, ok := m.cache.Load()
	if !ok {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current
	}
	m.current = &Identity{Account: acct}
	return m.current
}
