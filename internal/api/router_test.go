package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/unionportal/ballot-system/internal/core/service"
	"github.com/unionportal/ballot-system/internal/infrastructure/db/memory"
)

const testSecret = "router-test-secret"

// captureSender remembers the last code sent to each number.
type captureSender struct {
	mu   sync.Mutex
	last map[string]string
}

func (s *captureSender) SendText(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Body starts with "Your verification code: NNNN".
	idx := strings.Index(body, ": ")
	s.last[to] = body[idx+2 : idx+6]
	return nil
}

func (s *captureSender) code(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[phone]
}

func newTestRouter(t *testing.T) (*echo.Echo, *captureSender) {
	t.Helper()
	log := zerolog.Nop()
	store := memory.NewStore()
	sender := &captureSender{last: make(map[string]string)}

	registry := service.NewSessionRegistry(store.Identities(), memory.NewSlots(), "09132323123", log)
	e := NewRouter(Deps{
		OTP:        service.NewOTPService(store, sender, nil, service.OTPConfig{HashCost: bcrypt.MinCost}, log),
		Sessions:   registry,
		Tokens:     service.NewTokenIssuer(testSecret, 0),
		Ballots:    service.NewBallotService(store, store.Identities(), memory.NewCandidates(map[string]string{"candidate-7": "Candidate Seven", "candidate-9": "Candidate Nine"}), registry, nil, log),
		Identities: service.NewIdentityService(store.Identities(), registry, "09132323123", log),
		Log:        log,
		Registerer: prometheus.NewRegistry(),
	})
	return e, sender
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo, sender *captureSender, phone string) (string, map[string]any) {
	t.Helper()
	if rec := do(e, http.MethodPost, "/auth/otp", "", `{"phone":"`+phone+`"}`); rec.Code != http.StatusOK {
		t.Fatalf("request code: %d %s", rec.Code, rec.Body.String())
	}
	rec := do(e, http.MethodPost, "/auth/verify", "", `{"phone":"`+phone+`","code":"`+sender.code(phone)+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token    string         `json:"token"`
		Identity map[string]any `json:"identity"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp.Token, resp.Identity
}

func TestRouter_LoginVoteLogout(t *testing.T) {
	e, sender := newTestRouter(t)
	token, identity := login(t, e, sender, "09121234567")

	if identity["role"] != "member" || identity["approved"] != false {
		t.Fatalf("expected unapproved member, got %+v", identity)
	}

	if rec := do(e, http.MethodPost, "/v1/ballots", token, `{"candidate_id":"candidate-7"}`); rec.Code != http.StatusCreated {
		t.Fatalf("cast: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodPost, "/v1/ballots", token, `{"candidate_id":"candidate-9"}`); rec.Code != http.StatusConflict {
		t.Fatalf("second cast: expected 409, got %d", rec.Code)
	}

	rec := do(e, http.MethodGet, "/v1/results", token, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"candidate_id":"candidate-7","candidate_name":"Candidate Seven","votes":1,"leader":true`) {
		t.Fatalf("results: %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(e, http.MethodPost, "/auth/logout", token, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/auth/session", token, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token should be rejected, got %d", rec.Code)
	}
}

func TestRouter_CodeReplayRejected(t *testing.T) {
	e, sender := newTestRouter(t)
	phone := "09121234567"

	do(e, http.MethodPost, "/auth/otp", "", `{"phone":"`+phone+`"}`)
	body := `{"phone":"` + phone + `","code":"` + sender.code(phone) + `"}`

	if rec := do(e, http.MethodPost, "/auth/verify", "", body); rec.Code != http.StatusOK {
		t.Fatalf("first verify: %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/auth/verify", "", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("replayed code: expected 401, got %d", rec.Code)
	}
}

func TestRouter_AdminApproval(t *testing.T) {
	e, sender := newTestRouter(t)
	memberToken, member := login(t, e, sender, "09121234567")
	adminToken, admin := login(t, e, sender, "09132323123")

	if admin["role"] != "admin" || admin["approved"] != true {
		t.Fatalf("bootstrap phone should be an approved admin, got %+v", admin)
	}

	path := "/v1/identities/" + member["id"].(string) + "/approval"
	if rec := do(e, http.MethodPatch, path, memberToken, `{"approved":true}`); rec.Code != http.StatusForbidden {
		t.Fatalf("member approval: expected 403, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPatch, path, adminToken, `{"approved":true}`); rec.Code != http.StatusOK {
		t.Fatalf("admin approval: %d %s", rec.Code, rec.Body.String())
	}

	rec := do(e, http.MethodGet, "/auth/session", memberToken, "")
	if !strings.Contains(rec.Body.String(), `"approved":true`) {
		t.Fatalf("member session should reflect approval: %s", rec.Body.String())
	}
}

func TestRouter_Unauthenticated(t *testing.T) {
	e, _ := newTestRouter(t)
	for _, path := range []string{"/v1/results", "/v1/ballots/me", "/auth/session"} {
		if rec := do(e, http.MethodGet, path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
	if rec := do(e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
}

func TestRouter_UnknownCandidateRejected(t *testing.T) {
	e, sender := newTestRouter(t)
	token, _ := login(t, e, sender, "09121234567")

	rec := do(e, http.MethodGet, "/v1/candidates", token, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `{"id":"candidate-7","name":"Candidate Seven"}`) {
		t.Fatalf("candidates: %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(e, http.MethodPost, "/v1/ballots", token, `{"candidate_id":"no-such-candidate"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown candidate: expected 400, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodGet, "/v1/ballots/me", token, ""); !strings.Contains(rec.Body.String(), `"has_voted":false`) {
		t.Fatalf("rejected cast must leave no ballot: %s", rec.Body.String())
	}
	if rec := do(e, http.MethodPost, "/v1/ballots", token, `{"candidate_id":"candidate-9"}`); rec.Code != http.StatusCreated {
		t.Fatalf("valid cast after rejection: %d %s", rec.Code, rec.Body.String())
	}
}
