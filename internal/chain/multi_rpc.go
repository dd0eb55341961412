package chain

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
)

// MultiRPCClient fans requests out over a list of fullnode endpoints,
// rotating to the next endpoint after enough consecutive failures on the
// current one. Reads are cheap to retry on another node; nothing here retries
// a state-mutating submission.
type MultiRPCClient struct {
	clients       []*RPCClient
	index         int
	failCount     int
	failThreshold int
	mu            sync.Mutex
}

func NewMultiRPCClient(endpoints []string, failThreshold int) (*MultiRPCClient, error) {
	list := sanitizeEndpoints(endpoints)
	if len(list) == 0 {
		return nil, errors.New("rpc endpoints is empty")
	}
	if failThreshold <= 0 {
		failThreshold = 3
	}
	clients := make([]*RPCClient, 0, len(list))
	for _, ep := range list {
		clients = append(clients, NewRPCClient(ep))
	}
	return &MultiRPCClient{
		clients:       clients,
		failThreshold: failThreshold,
	}, nil
}

func (m *MultiRPCClient) BaseURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[m.index].baseURL
}

func (m *MultiRPCClient) LedgerInfo(ctx context.Context) (*LedgerInfo, error) {
	return failover(m, func(c *RPCClient) (*LedgerInfo, error) {
		return c.LedgerInfo(ctx)
	})
}

func (m *MultiRPCClient) Resource(ctx context.Context, address, resourceType string) (json.RawMessage, error) {
	return failover(m, func(c *RPCClient) (json.RawMessage, error) {
		return c.Resource(ctx, address, resourceType)
	})
}

func (m *MultiRPCClient) TableItem(ctx context.Context, handle, keyType, valueType string, key any) (json.RawMessage, error) {
	return failover(m, func(c *RPCClient) (json.RawMessage, error) {
		return c.TableItem(ctx, handle, keyType, valueType, key)
	})
}

func (m *MultiRPCClient) View(ctx context.Context, function string, typeArgs []string, args []any) ([]json.RawMessage, error) {
	return failover(m, func(c *RPCClient) ([]json.RawMessage, error) {
		return c.View(ctx, function, typeArgs, args)
	})
}

func (m *MultiRPCClient) TransactionByHash(ctx context.Context, hash string) (*TxInfo, error) {
	return failover(m, func(c *RPCClient) (*TxInfo, error) {
		return c.TransactionByHash(ctx, hash)
	})
}

// WaitForTransaction is pinned to the current endpoint for the whole wait so
// a poll loop does not bounce between nodes with different indexing lag.
func (m *MultiRPCClient) WaitForTransaction(ctx context.Context, hash string, timeout, interval time.Duration) (*TxInfo, error) {
	client, _ := m.current()
	return client.WaitForTransaction(ctx, hash, timeout, interval)
}

// failover runs call against the current endpoint, advancing through the
// endpoint list on error. ErrNotFound is a valid answer, not an outage.
func failover[T any](m *MultiRPCClient, call func(*RPCClient) (T, error)) (T, error) {
	var lastErr error
	var zero T
	for attempts := 0; attempts < len(m.clients); attempts++ {
		client, idx := m.current()
		out, err := call(client)
		if err == nil || errors.Is(err, ErrNotFound) {
			m.resetFailures(idx)
			return out, err
		}
		lastErr = err
		m.noteFailure(idx)
		if m.shouldRotate() || len(m.clients) > 1 {
			m.rotate()
		}
	}
	return zero, lastErr
}

func (m *MultiRPCClient) shouldRotate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failCount >= m.failThreshold
}

func (m *MultiRPCClient) current() (*RPCClient, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[m.index], m.index
}

func (m *MultiRPCClient) resetFailures(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == idx {
		m.failCount = 0
	}
}

func (m *MultiRPCClient) noteFailure(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == idx {
		m.failCount++
	}
}

func (m *MultiRPCClient) rotate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = (m.index + 1) % len(m.clients)
	m.failCount = 0
}

func sanitizeEndpoints(endpoints []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		ep = strings.TrimSpace(ep)
		if ep == "" {
			continue
		}
		ep = strings.TrimRight(ep, "/")
		if _, ok := seen[ep]; ok {
			continue
		}
		seen[ep] = struct{}{}
		out = append(out, ep)
	}
	return out
}
