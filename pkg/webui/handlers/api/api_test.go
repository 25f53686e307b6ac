package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamprecieee/raiku-simulator/pkg/config"
	"github.com/iamprecieee/raiku-simulator/pkg/events"
	"github.com/iamprecieee/raiku-simulator/pkg/game"
	"github.com/iamprecieee/raiku-simulator/pkg/marketplace"
	"github.com/iamprecieee/raiku-simulator/pkg/session"
)

type apiFixture struct {
	handler  *APIHandler
	router   *mux.Router
	sessions *session.Manager
	game     *game.Manager
	svc      *marketplace.Service
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := config.DefaultConfig()
	bus := events.NewBus()
	gameMgr := game.NewManager(cfg.Game.InitialBalance, log)
	sessions := session.NewManager(time.Hour, log)
	svc := marketplace.NewService(cfg, bus, gameMgr, sessions, log)

	handler := NewAPIHandler(cfg, svc, gameMgr, sessions, bus, log)
	t.Cleanup(handler.Stop)

	router := mux.NewRouter()
	router.HandleFunc("/api/sessions", handler.CreateSession).Methods(http.MethodPost)
	router.HandleFunc("/api/marketplace/status", handler.GetMarketplaceStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/marketplace/slots", handler.ListSlots).Methods(http.MethodGet)
	router.HandleFunc("/api/marketplace/slots/{slot_number}", handler.GetSlot).Methods(http.MethodGet)
	router.HandleFunc("/api/transactions/jit", handler.SubmitJitTransaction).Methods(http.MethodPost)
	router.HandleFunc("/api/transactions/aot", handler.SubmitAotTransaction).Methods(http.MethodPost)
	router.HandleFunc("/api/transactions", handler.ListTransactions).Methods(http.MethodGet)
	router.HandleFunc("/api/transactions/{transaction_id}", handler.GetTransaction).Methods(http.MethodGet)
	router.HandleFunc("/api/game/player_stats", handler.GetPlayerStats).Methods(http.MethodGet)
	router.HandleFunc("/api/game/leaderboard", handler.GetLeaderboard).Methods(http.MethodGet)
	router.HandleFunc("/api/health", handler.GetHealth).Methods(http.MethodGet)

	return &apiFixture{
		handler:  handler,
		router:   router,
		sessions: sessions,
		game:     gameMgr,
		svc:      svc,
	}
}

func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return resp
}

func TestCreateSession_IssuesCookie(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "created", data["status"])
	assert.NotEmpty(t, data["session_id"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Equal(t, data["session_id"], cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestCreateSession_ValidatesExistingCookie(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sess.ID})

	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.Equal(t, "validated", data["status"])
	assert.Equal(t, sess.ID, data["session_id"])
	assert.Equal(t, 1, f.sessions.Count())
}

func TestCreateSession_ReplacesStaleCookie(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "long-gone"})

	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.Equal(t, "created", data["status"])
	assert.NotEqual(t, "long-gone", data["session_id"])
}

func TestSubmitJitTransaction_HappyPath(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create()

	body := `{"bid_amount": 0.002, "compute_units": 200000, "data": "ping"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/jit", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sess.ID})

	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, float64(1), data["inclusion"].(map[string]any)["slot"])
}

func TestSubmitJitTransaction_SessionFromBody(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create()

	body := fmt.Sprintf(`{"session_id": %q, "bid_amount": 0.002, "compute_units": 200000}`, sess.ID)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/transactions/jit", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitJitTransaction_MissingSession(t *testing.T) {
	f := newAPIFixture(t)

	body := `{"bid_amount": 0.002, "compute_units": 200000}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/transactions/jit", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitJitTransaction_UnknownSession(t *testing.T) {
	f := newAPIFixture(t)

	body := `{"session_id": "no-such-session", "bid_amount": 0.002, "compute_units": 200000}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/transactions/jit", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitJitTransaction_BadBody(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/transactions/jit", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitJitTransaction_InsufficientBalance(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create()

	body := `{"bid_amount": 999999, "compute_units": 200000}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/jit", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sess.ID})

	rec := f.do(req)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestSubmitAotTransaction_PastSlotRejected(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create()

	body := `{"target_slot": 0, "bid_amount": 0.01, "compute_units": 200000}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions/aot", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sess.ID})

	rec := f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactions_RequiresValidSession(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListTransactions_ReturnsSubmitted(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create()

	_, err := f.svc.SubmitJitTransaction(sess.ID, 0.002, 200_000, "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sess.ID})

	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(50), data["limit"])
	assert.Len(t, data["transactions"].([]any), 1)
}

func TestGetTransaction_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/transactions/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSlot(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/marketplace/slots/5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.Equal(t, float64(5), data["slot_number"])

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/marketplace/slots/999999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/marketplace/slots/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSlots_ReportsDisplayWindow(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/marketplace/slots", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.Equal(t, float64(0), data["current_slot"])
	assert.Len(t, data["slots"].([]any), 50)
}

func TestGetPlayerStats(t *testing.T) {
	f := newAPIFixture(t)
	sess := f.sessions.Create()

	req := httptest.NewRequest(http.MethodGet, "/api/game/player_stats", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sess.ID})

	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeResponse(t, rec).Data.(map[string]any)
	assert.Equal(t, float64(100_000), data["balance"])

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/game/player_stats", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetHealth(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRateLimit_Returns429OverBudget(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	limited := RateLimit(3)(inner)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = "198.51.100.7:1234"
		limited.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	limited.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client still has budget.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "198.51.100.8:1234"
	limited.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_ZeroDisables(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	limited := RateLimit(0)(inner)

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestEventStream_SendsInitialState(t *testing.T) {
	f := newAPIFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	f.handler.EventStream(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "data: ")
	assert.Contains(t, rec.Body.String(), string(events.TypeSlotsUpdated))
}
