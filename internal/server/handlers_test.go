package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"farmsync/internal/booking"
	logpkg "farmsync/internal/logger"
	"farmsync/internal/model"
	"farmsync/internal/relay"
	"farmsync/internal/store"
)

func newTestServer(t *testing.T) Server {
	t.Helper()
	lg := logpkg.NewLogger(logpkg.LevelOff, io.Discard)
	st, err := store.New(t.TempDir(), lg)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	key, err := jwk.FromRaw([]byte("test-secret"))
	if err != nil {
		t.Fatalf("jwk.FromRaw: %v", err)
	}
	return Server{
		Coordinator:   booking.NewCoordinator(st, relay.NewBus(nil, "booking-sync", lg), lg),
		Logger:        lg,
		AuthSecretKey: key,
	}
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sessionToken(t *testing.T, h http.Handler, role string) string {
	t.Helper()
	w := doRequest(t, h, http.MethodPost, "/api/session", "", map[string]string{"role": role})
	if w.Code != http.StatusOK {
		t.Fatalf("session for role %s: status %d, body: %s", role, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal session response: %v", err)
	}
	return resp.Token
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	farmer := sessionToken(t, r, "farmer")
	provider := sessionToken(t, r, "provider")

	w := doRequest(t, r, http.MethodPost, "/api/bookings", farmer,
		map[string]string{"provider_id": "p1", "slot": "2025-02-01 09:00-12:00"})
	if w.Code != http.StatusOK {
		t.Fatalf("create booking: status %d, body: %s", w.Code, w.Body.String())
	}
	var created struct {
		BookingID string `json:"booking_id"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal create response: %v", err)
	}
	if created.Status != "pending" || created.BookingID == "" {
		t.Fatalf("create response = %+v", created)
	}

	w = doRequest(t, r, http.MethodGet, "/api/bookings?status=pending", provider, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list pending: status %d", w.Code)
	}
	var pending []model.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil {
		t.Fatalf("unmarshal pending list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != created.BookingID {
		t.Fatalf("pending list = %+v", pending)
	}

	w = doRequest(t, r, http.MethodPost, "/api/bookings/"+created.BookingID+"/accept", provider, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("accept: status %d, body: %s", w.Code, w.Body.String())
	}
	var accepted model.Booking
	if err := json.Unmarshal(w.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("unmarshal accept response: %v", err)
	}
	if accepted.Status != model.BookingAccepted {
		t.Errorf("accepted booking status = %s", accepted.Status)
	}

	w = doRequest(t, r, http.MethodGet, "/api/alerts", farmer, nil)
	var alerts []model.FarmerAlert
	if err := json.Unmarshal(w.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("unmarshal alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Signature != "accepted_"+created.BookingID {
		t.Fatalf("alerts = %+v", alerts)
	}
	if !strings.Contains(alerts[0].Message, "2025-02-01 09:00-12:00") {
		t.Errorf("alert message %q does not mention the slot", alerts[0].Message)
	}

	w = doRequest(t, r, http.MethodGet, "/api/notifications", provider, nil)
	var notis []model.ProviderNotification
	if err := json.Unmarshal(w.Body.Bytes(), &notis); err != nil {
		t.Fatalf("unmarshal notifications: %v", err)
	}
	if len(notis) != 2 || notis[0].Type != "booking:accepted" || notis[1].Type != "booking" {
		t.Fatalf("notifications = %+v", notis)
	}

	w = doRequest(t, r, http.MethodPost, "/api/alerts/accepted_"+created.BookingID+"/dismiss", farmer, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("dismiss: status %d", w.Code)
	}
}

func TestAvailabilityOverHTTP(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()
	provider := sessionToken(t, r, "provider")

	w := doRequest(t, r, http.MethodPost, "/api/slots", provider, map[string]string{
		"start_date": "2025-01-20", "start_time": "09:00",
		"end_date": "2025-01-22", "end_time": "17:00",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("define slots: status %d, body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Created int          `json:"created"`
		Slots   []model.Slot `json:"slots"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal define response: %v", err)
	}
	if resp.Created != 3 {
		t.Fatalf("created = %d, want 3", resp.Created)
	}

	w = doRequest(t, r, http.MethodPost, "/api/slots", provider, map[string]string{
		"start_date": "2025-01-22", "start_time": "09:00",
		"end_date": "2025-01-20", "end_time": "17:00",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("inverted range: status %d, want 400", w.Code)
	}

	w = doRequest(t, r, http.MethodDelete, "/api/slots/"+resp.Slots[0].ID, provider, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete slot: status %d", w.Code)
	}
}

func TestAuthAndRoles(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	if w := doRequest(t, r, http.MethodGet, "/api/bookings", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", w.Code)
	}
	if w := doRequest(t, r, http.MethodGet, "/api/bookings", "not-a-token", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status %d, want 401", w.Code)
	}

	farmer := sessionToken(t, r, "farmer")
	if w := doRequest(t, r, http.MethodGet, "/api/bookings", farmer, nil); w.Code != http.StatusForbidden {
		t.Errorf("farmer reading provider inbox: status %d, want 403", w.Code)
	}

	w := doRequest(t, r, http.MethodPost, "/api/session", "", map[string]string{"role": "admin"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown role: status %d, want 400", w.Code)
	}
}

func TestAccessKeyGate(t *testing.T) {
	s := newTestServer(t)
	s.AccessKey = "letmein"
	r := s.Router()

	w := doRequest(t, r, http.MethodPost, "/api/session", "", map[string]string{"role": "farmer"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing access key: status %d, want 401", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/api/session", "",
		map[string]string{"role": "farmer", "access_key": "letmein"})
	if w.Code != http.StatusOK {
		t.Errorf("correct access key: status %d, want 200", w.Code)
	}
}
