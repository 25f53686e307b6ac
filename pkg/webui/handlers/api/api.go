package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/iamprecieee/raiku-simulator/pkg/auction"
	"github.com/iamprecieee/raiku-simulator/pkg/game"
	"github.com/iamprecieee/raiku-simulator/pkg/marketplace"
)

// sessionCookie carries the session id between requests.
const sessionCookie = "raiku_session"

// APIResponse is the envelope for all JSON responses.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Code    int    `json:"code"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeSuccess writes a success envelope.
func writeSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Code:    http.StatusOK,
	})
}

// writeFailure writes a failure envelope.
func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Message: message,
		Code:    status,
	})
}

// writeSubmissionError maps a submission error onto an HTTP status.
func writeSubmissionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, marketplace.ErrUnknownSession):
		writeFailure(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, game.ErrInsufficientBalance):
		writeFailure(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, auction.ErrNoAuction):
		writeFailure(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auction.ErrAuctionExists):
		writeFailure(w, http.StatusConflict, err.Error())
	default:
		writeFailure(w, http.StatusBadRequest, err.Error())
	}
}

// sessionFromRequest resolves the caller's session id from the session
// cookie, falling back to an explicit id in the request body.
func sessionFromRequest(r *http.Request, bodySessionID string) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return bodySessionID
}

// CreateSession validates the caller's existing session or issues a new
// one, refreshing the session cookie either way.
func (h *APIHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	status := "validated"

	var sess struct {
		ID        string
		CreatedAt time.Time
		ExpiresAt time.Time
	}

	existing, ok := func() (id string, ok bool) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value == "" {
			return "", false
		}

		return cookie.Value, true
	}()

	if ok {
		if s, found := h.sessions.Get(existing); found {
			sess.ID, sess.CreatedAt, sess.ExpiresAt = s.ID, s.CreatedAt, s.ExpiresAt
		} else {
			ok = false
		}
	}

	if !ok {
		s := h.sessions.Create()
		sess.ID, sess.CreatedAt, sess.ExpiresAt = s.ID, s.CreatedAt, s.ExpiresAt
		status = "created"
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})

	writeSuccess(w, "Session created or validated.", map[string]any{
		"session_id": sess.ID,
		"status":     status,
		"created_at": sess.CreatedAt,
		"expires_at": sess.ExpiresAt,
	})
}

// GetMarketplaceStatus returns aggregate marketplace statistics.
func (h *APIHandler) GetMarketplaceStatus(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "Marketplace status.", h.svc.GetStats())
}

// ListSlots returns the display window starting at the current slot.
func (h *APIHandler) ListSlots(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "Slots.", map[string]any{
		"current_slot": h.svc.CurrentSlot(),
		"slots":        h.svc.Slots(),
	})
}

// GetSlot returns a single slot by number.
func (h *APIHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	slotNumber, err := strconv.ParseUint(mux.Vars(r)["slot_number"], 10, 64)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid slot number")

		return
	}

	slot, ok := h.svc.Slot(slotNumber)
	if !ok {
		writeFailure(w, http.StatusNotFound, "slot not found")

		return
	}

	writeSuccess(w, "Slot.", slot)
}

// ListJitAuctions returns all open JIT auctions.
func (h *APIHandler) ListJitAuctions(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "Active JIT auctions.", h.svc.ActiveJitAuctions())
}

// ListAotAuctions returns all open AOT auctions.
func (h *APIHandler) ListAotAuctions(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "Active AOT auctions.", h.svc.ActiveAotAuctions())
}

// JitBidRequest is the body for a JIT transaction submission.
type JitBidRequest struct {
	SessionID    string  `json:"session_id,omitempty"`
	BidAmount    float64 `json:"bid_amount"`
	ComputeUnits uint64  `json:"compute_units"`
	Data         string  `json:"data"`
}

// SubmitJitTransaction places a bid on the next slot's JIT auction.
func (h *APIHandler) SubmitJitTransaction(w http.ResponseWriter, r *http.Request) {
	var req JitBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")

		return
	}

	sessionID := sessionFromRequest(r, req.SessionID)
	if sessionID == "" {
		writeFailure(w, http.StatusUnauthorized, "Session ID is missing or invalid")

		return
	}

	tx, err := h.svc.SubmitJitTransaction(sessionID, req.BidAmount, req.ComputeUnits, req.Data)
	if err != nil {
		writeSubmissionError(w, err)

		return
	}

	writeSuccess(w, "JIT transaction submitted.", tx)
}

// AotBidRequest is the body for an AOT transaction submission.
type AotBidRequest struct {
	SessionID    string  `json:"session_id,omitempty"`
	TargetSlot   uint64  `json:"target_slot"`
	BidAmount    float64 `json:"bid_amount"`
	ComputeUnits uint64  `json:"compute_units"`
	Data         string  `json:"data"`
}

// SubmitAotTransaction places a bid on a future slot's AOT auction.
func (h *APIHandler) SubmitAotTransaction(w http.ResponseWriter, r *http.Request) {
	var req AotBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")

		return
	}

	sessionID := sessionFromRequest(r, req.SessionID)
	if sessionID == "" {
		writeFailure(w, http.StatusUnauthorized, "Session ID is missing or invalid")

		return
	}

	tx, err := h.svc.SubmitAotTransaction(sessionID, req.TargetSlot, req.BidAmount, req.ComputeUnits, req.Data)
	if err != nil {
		writeSubmissionError(w, err)

		return
	}

	writeSuccess(w, "AOT transaction submitted.", tx)
}

// ListTransactions returns the caller's transactions newest first with
// offset/limit pagination.
func (h *APIHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromRequest(r, r.URL.Query().Get("session_id"))
	if sessionID == "" || !h.sessions.Validate(sessionID) {
		writeFailure(w, http.StatusUnauthorized, "Session ID is missing or invalid")

		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	txs, total := h.svc.Transactions(sessionID, offset, limit)

	writeSuccess(w, "Transactions.", map[string]any{
		"transactions": txs,
		"total":        total,
		"offset":       offset,
		"limit":        limit,
	})
}

// GetTransaction returns a transaction by id.
func (h *APIHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.svc.Transaction(mux.Vars(r)["transaction_id"])
	if !ok {
		writeFailure(w, http.StatusNotFound, "transaction not found")

		return
	}

	writeSuccess(w, "Transaction.", tx)
}

// GetPlayerStats returns the caller's player statistics.
func (h *APIHandler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromRequest(r, r.URL.Query().Get("session_id"))
	if sessionID == "" || !h.sessions.Validate(sessionID) {
		writeFailure(w, http.StatusUnauthorized, "Session ID is missing or invalid")

		return
	}

	writeSuccess(w, "Player stats.", h.game.GetOrCreate(sessionID))
}

// GetLeaderboard returns the ranked top players.
func (h *APIHandler) GetLeaderboard(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "Leaderboard.", h.game.GenerateLeaderboard())
}

// GetHealth reports liveness.
func (h *APIHandler) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"current_slot": h.svc.CurrentSlot(),
		"timestamp":    time.Now().UnixMilli(),
	})
}
