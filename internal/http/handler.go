package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"peerlend/internal/actions"
	"peerlend/internal/chain"
	"peerlend/internal/docs"
	"peerlend/internal/payload"
	"peerlend/internal/projection"
	"peerlend/internal/session"
	"peerlend/internal/submit"
	"peerlend/internal/units"
	"peerlend/internal/wallet"
)

// Prober is the health slice of the chain client.
type Prober interface {
	LedgerInfo(ctx context.Context) (*chain.LedgerInfo, error)
}

type Handler struct {
	Sessions  *session.Manager
	Projector *projection.Projector
	Submitter *submit.Submitter
	Builder   payload.Builder
	Tracker   *actions.Tracker
	Docs      docs.Hasher
	Hub       *Hub
	Chain     Prober
}

type sessionResponse struct {
	Connected  bool   `json:"connected"`
	Address    string `json:"address,omitempty"`
	WalletName string `json:"walletName,omitempty"`
	Restored   bool   `json:"restored,omitempty"`
}

type actionResponse struct {
	Key       string         `json:"key"`
	AttemptID string         `json:"attemptId"`
	Outcome   submit.Outcome `json:"outcome"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	info, err := h.Chain.LedgerInfo(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "connectivity", "ledger unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "chainId": info.ChainID})
}

// Session

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := h.Sessions.Current()
	if id == nil {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Connected:  true,
		Address:    id.Address(),
		WalletName: id.Account.WalletName,
		Restored:   id.Restored(),
	})
}

func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Wallet string `json:"wallet"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Wallet == "" {
		writeError(w, http.StatusBadRequest, "validation", "wallet name is required")
		return
	}

	id, err := h.Sessions.Connect(r.Context(), req.Wallet)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrBusy):
			writeError(w, http.StatusConflict, "busy", "another connect or disconnect is in flight")
		case errors.Is(err, wallet.ErrUserRejected):
			writeError(w, http.StatusConflict, "rejected", "connection request declined in wallet")
		default:
			writeError(w, http.StatusBadGateway, "connectivity", err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Connected:  true,
		Address:    id.Address(),
		WalletName: id.Account.WalletName,
	})
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Disconnect(r.Context()); err != nil {
		if errors.Is(err, session.ErrBusy) {
			writeError(w, http.StatusConflict, "busy", "another connect or disconnect is in flight")
			return
		}
		// The slot is already cleared locally; a bridge error on teardown
		// is not worth blocking the UI over.
	}
	writeJSON(w, http.StatusOK, sessionResponse{})
}

// Offers

func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	h.Tracker.ClearFailed()
	offers, err := h.Projector.Offers(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "connectivity", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

func (h *Handler) ListMyOffers(w http.ResponseWriter, r *http.Request) {
	id := h.Sessions.Current()
	if id == nil {
		writeError(w, http.StatusUnauthorized, "identity", "connect a wallet first")
		return
	}
	h.Tracker.ClearFailed()
	offers, err := h.Projector.OffersByLender(r.Context(), id.Address())
	if err != nil {
		writeError(w, http.StatusBadGateway, "connectivity", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount       string `json:"amount"`
		RateBps      uint64 `json:"rateBps"`
		DurationDays uint64 `json:"durationDays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid json body")
		return
	}
	atomic, err := units.ToAtomic(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if req.DurationDays == 0 {
		writeError(w, http.StatusBadRequest, "validation", "duration must be at least one day")
		return
	}
	h.runAction(w, r, "createOffer/new", h.Builder.CreateOffer(atomic, req.RateBps, req.DurationDays))
}

func (h *Handler) CancelOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.runAction(w, r, actions.Key("cancelOffer", id), h.Builder.CancelOffer(id))
}

// Requests

func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	id := h.Sessions.Current()
	if id == nil {
		writeError(w, http.StatusUnauthorized, "identity", "connect a wallet first")
		return
	}
	h.Tracker.ClearFailed()
	reqs, err := h.Projector.PendingRequestsForLender(r.Context(), id.Address())
	if err != nil {
		writeError(w, http.StatusBadGateway, "connectivity", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *Handler) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	id := h.Sessions.Current()
	if id == nil {
		writeError(w, http.StatusUnauthorized, "identity", "connect a wallet first")
		return
	}
	h.Tracker.ClearFailed()
	reqs, err := h.Projector.RequestsForBorrower(r.Context(), id.Address())
	if err != nil {
		writeError(w, http.StatusBadGateway, "connectivity", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *Handler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OfferID         uint64 `json:"offerId"`
		Amount          string `json:"amount"`
		Collateral      string `json:"collateral"`
		IncomeProofHash string `json:"incomeProofHash"`
		IDProofHash     string `json:"idProofHash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid json body")
		return
	}
	amount, err := units.ToAtomic(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "amount: "+err.Error())
		return
	}
	collateral, err := units.ToAtomic(req.Collateral)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "collateral: "+err.Error())
		return
	}
	if req.IncomeProofHash == "" || req.IDProofHash == "" {
		writeError(w, http.StatusBadRequest, "validation", "both document references are required")
		return
	}
	fn := h.Builder.RequestLoan(req.OfferID, amount, collateral, req.IncomeProofHash, req.IDProofHash)
	h.runAction(w, r, actions.Key("requestLoan", req.OfferID), fn)
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.runAction(w, r, actions.Key("approveRequest", id), h.Builder.ApproveRequest(id))
}

func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.runAction(w, r, actions.Key("rejectRequest", id), h.Builder.RejectRequest(id))
}

// Loans

func (h *Handler) ListMyLoans(w http.ResponseWriter, r *http.Request) {
	id := h.Sessions.Current()
	if id == nil {
		writeError(w, http.StatusUnauthorized, "identity", "connect a wallet first")
		return
	}
	h.Tracker.ClearFailed()
	loans, err := h.Projector.LoansForBorrower(r.Context(), id.Address())
	if err != nil {
		writeError(w, http.StatusBadGateway, "connectivity", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) RepayLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid json body")
		return
	}
	atomic, err := units.ToAtomic(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	h.runAction(w, r, actions.Key("repayLoan", id), h.Builder.RepayLoan(id, atomic))
}

// Misc

func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Tracker.Snapshot())
}

func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	limit := h.Docs.MaxBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "validation", "document too large")
		return
	}
	ref, err := h.Docs.Reference(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"reference": ref})
}

// runAction drives one protocol action through the submitter and keeps the
// tracker and websocket feed in step. The response is written only after a
// terminal status is observed, so a client refresh after the response can
// never read state older than the action's effect.
func (h *Handler) runAction(w http.ResponseWriter, r *http.Request, key string, fn payload.EntryFunction) {
	id := h.Sessions.Current()
	if id == nil {
		writeError(w, http.StatusUnauthorized, "identity", "connect a wallet first")
		return
	}

	attemptID, err := h.Tracker.Begin(key)
	if err != nil {
		writeError(w, http.StatusConflict, "busy", "action already in flight")
		return
	}

	outcome := h.Submitter.Submit(r.Context(), id, fn)
	if outcome.Status == submit.StatusFailed {
		h.Tracker.Fail(key, outcome.Reason)
	} else {
		h.Tracker.Resolve(key)
	}
	h.Hub.Broadcast(ActionEvent{Kind: "action", Key: key, AttemptID: attemptID, Outcome: outcome})

	writeJSON(w, statusCodeFor(outcome), actionResponse{Key: key, AttemptID: attemptID, Outcome: outcome})
}

func statusCodeFor(o submit.Outcome) int {
	switch o.Status {
	case submit.StatusConfirmed:
		return http.StatusOK
	case submit.StatusUnknown:
		return http.StatusAccepted
	case submit.StatusRejected:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid id")
		return 0, false
	}
	return id, true
}
