// Package submit drives a signed transaction through its lifecycle:
// built -> signed -> submitted -> confirmed | failed | unknown. Failures are
// normalized into a discriminated Outcome; nothing escapes this boundary as
// an error, so callers render success and failure uniformly. There is no
// automatic retry: resubmitting a state-mutating financial transaction is
// always an explicit user decision.
package submit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"peerlend/internal/chain"
	"peerlend/internal/payload"
	"peerlend/internal/wallet"
)

type Status string

const (
	// StatusConfirmed: the ledger committed the transaction successfully.
	StatusConfirmed Status = "confirmed"
	// StatusFailed: signing, submission, or execution failed for sure.
	StatusFailed Status = "failed"
	// StatusRejected: the user declined the signing prompt. Deliberate,
	// not an error.
	StatusRejected Status = "rejected"
	// StatusUnknown: the confirmation wait gave up before observing a
	// result. The transaction may still finalize on the ledger.
	StatusUnknown Status = "unknown"
)

type Outcome struct {
	Status   Status `json:"status"`
	Hash     string `json:"hash,omitempty"`
	Reason   string `json:"reason,omitempty"`
	VMStatus string `json:"vmStatus,omitempty"`
}

func (o Outcome) Confirmed() bool { return o.Status == StatusConfirmed }

var submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "lend_tx_submissions_total",
	Help: "Transaction submissions by entry function and terminal status",
}, []string{"function", "status"})

// Signer is the identity's delegated signing capability.
// *session.Identity satisfies it.
type Signer interface {
	SignAndSubmit(ctx context.Context, fn payload.EntryFunction) (string, error)
}

// Waiter is the slice of the ledger client the submitter needs.
type Waiter interface {
	WaitForTransaction(ctx context.Context, hash string, timeout, interval time.Duration) (*chain.TxInfo, error)
}

type Submitter struct {
	Chain          Waiter
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// Submit signs, submits, and awaits one transaction. The signer fails before
// any network round-trip when no identity is connected.
func (s *Submitter) Submit(ctx context.Context, signer Signer, fn payload.EntryFunction) Outcome {
	out := s.submit(ctx, signer, fn)
	submissionsTotal.WithLabelValues(shortName(fn.Function), string(out.Status)).Inc()
	return out
}

func (s *Submitter) submit(ctx context.Context, signer Signer, fn payload.EntryFunction) Outcome {
	if signer == nil {
		return Outcome{Status: StatusFailed, Reason: "no wallet connected"}
	}

	hash, err := signer.SignAndSubmit(ctx, fn)
	if err != nil {
		if errors.Is(err, wallet.ErrUserRejected) {
			return Outcome{Status: StatusRejected, Reason: "signing request declined in wallet"}
		}
		return Outcome{Status: StatusFailed, Reason: err.Error()}
	}

	timeout := s.ConfirmTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	info, err := s.Chain.WaitForTransaction(ctx, hash, timeout, s.PollInterval)
	if err != nil {
		// The transaction left this process the moment the wallet
		// submitted it. Any wait failure, timeout included, means the
		// result was not observed — not that the transaction failed.
		return Outcome{Status: StatusUnknown, Hash: hash, Reason: err.Error()}
	}

	if !info.Success {
		// Contract-side rejection: pass the VM status through verbatim,
		// this layer cannot interpret contract-internal error codes.
		return Outcome{Status: StatusFailed, Hash: hash, Reason: info.VMStatus, VMStatus: info.VMStatus}
	}
	return Outcome{Status: StatusConfirmed, Hash: hash, VMStatus: info.VMStatus}
}

func shortName(function string) string {
	if idx := strings.LastIndex(function, "::"); idx >= 0 {
		return function[idx+2:]
	}
	return function
}
