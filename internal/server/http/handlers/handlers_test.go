package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/refundstatus/internal/domain/errors"
	"github.com/polkiloo/refundstatus/internal/domain/model"
	"github.com/polkiloo/refundstatus/internal/server/http/dto"
	"github.com/polkiloo/refundstatus/internal/server/http/middleware"
	testhelpers "github.com/polkiloo/refundstatus/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(t *testing.T, method, path string, handler gin.HandlerFunc, setup func(*gin.Context), body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	route, _, _ := strings.Cut(path, "?")
	router.Handle(method, route, func(c *gin.Context) {
		if setup != nil {
			setup(c)
		}
		handler(c)
	})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCurrentUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := CurrentUserID(c); got != 0 {
		t.Fatalf("expected 0 when not set, got %d", got)
	}

	c.Set(middleware.UserIDContextKey, int64(42))
	if got := CurrentUserID(c); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestAuthHandlerRegister(t *testing.T) {
	body, _ := json.Marshal(dto.AuthRequest{Login: "user", Password: "pass"})
	resp := performRequest(t, http.MethodPost, "/register", NewAuthHandler(testhelpers.AuthFacadeStub{}).Register, nil, body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if resp.Header().Get("Authorization") == "" {
		t.Fatalf("expected auth header to be set")
	}
}

func TestAuthHandlerRegisterIssuesSessionToken(t *testing.T) {
	login := testhelpers.RandomASCIIString(7, 14)
	password := testhelpers.RandomASCIIString(16, 32)
	body, _ := json.Marshal(dto.AuthRequest{Login: login, Password: password})
	handler := NewAuthHandler(testhelpers.AuthFacadeStub{RegisterFn: func(ctx context.Context, gotLogin, gotPassword string) (string, error) {
		if gotLogin != login || gotPassword != password {
			t.Fatalf("unexpected credentials passed to facade: %q %q", gotLogin, gotPassword)
		}
		return "session-token", nil
	}})
	resp := performRequest(t, http.MethodPost, "/register", handler.Register, nil, body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	authHeader := resp.Header().Get("Authorization")
	if authHeader != "Bearer session-token" {
		t.Fatalf("unexpected authorization header %q", authHeader)
	}
	var session dto.SessionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil || session.Token != "session-token" || session.TokenType != "Bearer" {
		t.Fatalf("unexpected session body %q", resp.Body.String())
	}
	result := resp.Result()
	t.Cleanup(func() {
		_ = result.Body.Close()
	})
	cookies := result.Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected auth cookie to be set")
	}
	foundCookie := false
	for _, cookie := range cookies {
		if cookie.Name == "refundstatus_token" {
			if cookie.Value != "session-token" {
				t.Fatalf("unexpected token stored in cookie: %q", cookie.Value)
			}
			foundCookie = true
			break
		}
	}
	if !foundCookie {
		t.Fatal("expected auth cookie named refundstatus_token")
	}
}

func TestAuthHandlerRegisterFailures(t *testing.T) {
	tests := []struct {
		name   string
		facade testhelpers.AuthFacadeStub
		body   []byte
		status int
	}{
		{name: "bad json", body: []byte("not json"), status: http.StatusBadRequest},
		{name: "invalid credentials", body: []byte(`{"login":"","password":""}`), facade: testhelpers.AuthFacadeStub{RegisterFn: func(context.Context, string, string) (string, error) {
			return "", domainErrors.ErrInvalidCredentials
		}}, status: http.StatusBadRequest},
		{name: "already exists", body: []byte(`{"login":"a","password":"b"}`), facade: testhelpers.AuthFacadeStub{RegisterFn: func(context.Context, string, string) (string, error) {
			return "", domainErrors.ErrAlreadyExists
		}}, status: http.StatusConflict},
		{name: "internal", body: []byte(`{"login":"a","password":"b"}`), facade: testhelpers.AuthFacadeStub{RegisterFn: func(context.Context, string, string) (string, error) {
			return "", errors.New("boom")
		}}, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, http.MethodPost, "/register", NewAuthHandler(tt.facade).Register, nil, tt.body, map[string]string{"Content-Type": "application/json"})
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
			assertErrorBody(t, resp)
		})
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	body, _ := json.Marshal(dto.AuthRequest{Login: "user", Password: "pass"})
	resp := performRequest(t, http.MethodPost, "/login", NewAuthHandler(testhelpers.AuthFacadeStub{}).Login, nil, body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestAuthHandlerLogout(t *testing.T) {
	resp := performRequest(t, http.MethodPost, "/logout", NewAuthHandler(testhelpers.AuthFacadeStub{}).Logout, nil, nil, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
	result := resp.Result()
	t.Cleanup(func() { _ = result.Body.Close() })
	for _, cookie := range result.Cookies() {
		if cookie.Name == "refundstatus_token" && cookie.MaxAge < 0 && cookie.Value == "" {
			return
		}
	}
	t.Fatal("expected auth cookie to be expired")
}

func TestAuthHandlerRenew(t *testing.T) {
	setUser := func(c *gin.Context) { c.Set(middleware.UserIDContextKey, int64(7)) }
	var gotID int64
	handler := NewAuthHandler(testhelpers.AuthFacadeStub{RenewFn: func(_ context.Context, userID int64) (string, error) {
		gotID = userID
		return "fresh", nil
	}})
	resp := performRequest(t, http.MethodPost, "/refresh", handler.Renew, setUser, nil, nil)
	if resp.Code != http.StatusOK || gotID != 7 {
		t.Fatalf("expected renewed session for user 7, got %d for %d", resp.Code, gotID)
	}
	if resp.Header().Get("Authorization") != "Bearer fresh" {
		t.Fatalf("unexpected authorization header %q", resp.Header().Get("Authorization"))
	}

	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "account gone", err: domainErrors.ErrInvalidCredentials, code: http.StatusUnauthorized},
		{name: "internal", err: errors.New("db down"), code: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthHandler(testhelpers.AuthFacadeStub{RenewFn: func(context.Context, int64) (string, error) {
				return "", tt.err
			}})
			resp := performRequest(t, http.MethodPost, "/refresh", handler.Renew, setUser, nil, nil)
			if resp.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, resp.Code)
			}
			assertErrorBody(t, resp)
		})
	}
}

func TestAuthHandlerLoginFailures(t *testing.T) {
	tests := []struct {
		name   string
		facade testhelpers.AuthFacadeStub
		body   []byte
		status int
	}{
		{name: "bad json", body: []byte("not json"), status: http.StatusBadRequest},
		{name: "invalid", body: []byte(`{"login":"a","password":"b"}`), facade: testhelpers.AuthFacadeStub{AuthenticateFn: func(context.Context, string, string) (string, error) {
			return "", domainErrors.ErrInvalidCredentials
		}}, status: http.StatusUnauthorized},
		{name: "internal", body: []byte(`{"login":"a","password":"b"}`), facade: testhelpers.AuthFacadeStub{AuthenticateFn: func(context.Context, string, string) (string, error) {
			return "", errors.New("boom")
		}}, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := performRequest(t, http.MethodPost, "/login", NewAuthHandler(tt.facade).Login, nil, tt.body, map[string]string{"Content-Type": "application/json"})
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
			assertErrorBody(t, resp)
		})
	}
}

func assertErrorBody(t *testing.T, resp *httptest.ResponseRecorder) {
	t.Helper()
	var body dto.ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil || body.Error == "" {
		t.Fatalf("expected json error body, got %q", resp.Body.String())
	}
}

func withUser(id int64) func(*gin.Context) {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDContextKey, id)
		c.Set(middleware.RequestIDContextKey, "req-1")
	}
}

func newRefundHandler(facade RefundFacade) *RefundHandler {
	return NewRefundHandler(facade, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestRefundHandlerLatest(t *testing.T) {
	amount := 1250.5
	var gotUser int64
	var gotYear int
	var gotRequest string
	facade := testhelpers.RefundFacadeStub{LatestFn: func(_ context.Context, userID int64, taxYear int, requestID string) (*model.RefundView, error) {
		gotUser, gotYear, gotRequest = userID, taxYear, requestID
		return &model.RefundView{
			TaxYear:        2025,
			Status:         model.RefundStatusApproved,
			LastUpdatedAt:  time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
			ExpectedAmount: &amount,
		}, nil
	}}

	resp := performRequest(t, http.MethodGet, "/latest?taxYear=2025", newRefundHandler(facade).Latest, withUser(7), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if gotUser != 7 || gotYear != 2025 || gotRequest != "req-1" {
		t.Fatalf("unexpected facade arguments %d %d %q", gotUser, gotYear, gotRequest)
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "APPROVED" || body["taxYear"] != float64(2025) || body["expectedAmount"] != amount {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["trackingId"]; !ok {
		t.Fatal("expected absent fields to be serialized as null")
	}
	if body["lastUpdatedAt"] != "2026-02-01T10:00:00Z" {
		t.Fatalf("unexpected timestamp %v", body["lastUpdatedAt"])
	}
}

func TestRefundHandlerLatestFailures(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{name: "bad year", path: "/latest?taxYear=abc", status: http.StatusBadRequest},
		{name: "invalid year", path: "/latest?taxYear=1990", err: domainErrors.ErrInvalidTaxYear, status: http.StatusBadRequest},
		{name: "not found", path: "/latest?taxYear=2020", err: domainErrors.ErrNotFound, status: http.StatusNotFound},
		{name: "internal", path: "/latest", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facade := testhelpers.RefundFacadeStub{LatestFn: func(context.Context, int64, int, string) (*model.RefundView, error) {
				return nil, tt.err
			}}
			resp := performRequest(t, http.MethodGet, tt.path, newRefundHandler(facade).Latest, withUser(1), nil, nil)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
			assertErrorBody(t, resp)
		})
	}
}

func TestRefundHandlerSimulate(t *testing.T) {
	var got model.RefundSimulation
	facade := testhelpers.RefundFacadeStub{SimulateFn: func(_ context.Context, _ int64, req model.RefundSimulation, _ string) error {
		got = req
		return nil
	}}
	body := []byte(`{"taxYear":2025,"status":"SENT","expectedAmount":99.5,"trackingId":"IRS-1"}`)
	resp := performRequest(t, http.MethodPost, "/simulate", newRefundHandler(facade).Simulate, withUser(1), body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
	if got.TaxYear != 2025 || got.Status != "SENT" || got.ExpectedAmount == nil || *got.ExpectedAmount != 99.5 ||
		got.TrackingID == nil || *got.TrackingID != "IRS-1" {
		t.Fatalf("unexpected simulation %+v", got)
	}
}

func TestRefundHandlerSimulateFailures(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		err    error
		status int
	}{
		{name: "bad json", body: []byte("{"), status: http.StatusBadRequest},
		{name: "demo disabled", body: []byte(`{"taxYear":2025,"status":"SENT"}`), err: domainErrors.ErrDemoDisabled, status: http.StatusNotFound},
		{name: "tax year", body: []byte(`{"taxYear":1,"status":"SENT"}`), err: domainErrors.ErrInvalidTaxYear, status: http.StatusBadRequest},
		{name: "status", body: []byte(`{"taxYear":2025,"status":"LOST"}`), err: domainErrors.ErrInvalidStatus, status: http.StatusBadRequest},
		{name: "amount", body: []byte(`{"taxYear":2025,"status":"SENT","expectedAmount":-1}`), err: domainErrors.ErrInvalidAmount, status: http.StatusBadRequest},
		{name: "internal", body: []byte(`{"taxYear":2025,"status":"SENT"}`), err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facade := testhelpers.RefundFacadeStub{SimulateFn: func(context.Context, int64, model.RefundSimulation, string) error {
				return tt.err
			}}
			resp := performRequest(t, http.MethodPost, "/simulate", newRefundHandler(facade).Simulate, withUser(1), tt.body, map[string]string{"Content-Type": "application/json"})
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
			assertErrorBody(t, resp)
		})
	}
}

func TestRefundHandlerLifecycle(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/lifecycle", newRefundHandler(testhelpers.RefundFacadeStub{}).Lifecycle, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var body dto.LifecycleResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	want := []string{"RECEIVED", "PROCESSING", "APPROVED", "SENT", "AVAILABLE"}
	if len(body.Statuses) != len(want) {
		t.Fatalf("unexpected statuses %v", body.Statuses)
	}
	for i := range want {
		if body.Statuses[i] != want[i] {
			t.Fatalf("unexpected statuses %v", body.Statuses)
		}
	}
}

func TestRefundHandlerHistory(t *testing.T) {
	var gotLimit int
	facade := testhelpers.RefundFacadeStub{HistoryFn: func(ctx context.Context, userID int64, limit int) ([]model.AccessAudit, error) {
		gotLimit = limit
		return testhelpers.RefundFacadeStub{}.RefundHistory(ctx, userID, limit)
	}}

	resp := performRequest(t, http.MethodGet, "/audit?limit=5", newRefundHandler(facade).History, withUser(3), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if gotLimit != 5 {
		t.Fatalf("expected limit to be forwarded, got %d", gotLimit)
	}
	var body []dto.AuditEntryResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body) != 1 || body[0].Action != model.AuditActionView || body[0].RequestID != "req-1" {
		t.Fatalf("unexpected body %+v", body)
	}

	resp = performRequest(t, http.MethodGet, "/audit?limit=x", newRefundHandler(facade).History, withUser(3), nil, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}

	empty := testhelpers.RefundFacadeStub{HistoryFn: func(context.Context, int64, int) ([]model.AccessAudit, error) { return nil, nil }}
	resp = performRequest(t, http.MethodGet, "/audit", newRefundHandler(empty).History, withUser(3), nil, nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}

	failing := testhelpers.RefundFacadeStub{HistoryFn: func(context.Context, int64, int) ([]model.AccessAudit, error) {
		return nil, errors.New("boom")
	}}
	resp = performRequest(t, http.MethodGet, "/audit", newRefundHandler(failing).History, withUser(3), nil, nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
}

func newAssistantHandler(facade AssistantFacade) *AssistantHandler {
	return NewAssistantHandler(facade, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestAssistantHandlerChat(t *testing.T) {
	var gotUser int64
	var gotQuestion, gotRequest string
	facade := testhelpers.AssistantFacadeStub{AskFn: func(_ context.Context, userID int64, question, requestID string) (*model.AssistantAnswer, error) {
		gotUser, gotQuestion, gotRequest = userID, question, requestID
		return &model.AssistantAnswer{
			Intent:         model.IntentRefundETA,
			AnswerMarkdown: "**Estimated availability:** 2026-03-22\n",
			Actions: []model.AssistantAction{
				{Type: model.ActionRefresh, Label: "Refresh status"},
				{Type: model.ActionShowTracking, Label: "Show tracking details"},
			},
			Confidence: model.ConfidenceMedium,
		}, nil
	}}

	body := []byte(`{"question":"When will it arrive?"}`)
	resp := performRequest(t, http.MethodPost, "/chat", newAssistantHandler(facade).Chat, withUser(6), body, map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if gotUser != 6 || gotQuestion != "When will it arrive?" || gotRequest != "req-1" {
		t.Fatalf("unexpected facade call %d %q %q", gotUser, gotQuestion, gotRequest)
	}

	var got dto.AssistantChatResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Intent != "REFUND_ETA" || got.Confidence != "MEDIUM" || !strings.Contains(got.AnswerMarkdown, "2026-03-22") {
		t.Fatalf("unexpected body %+v", got)
	}
	if len(got.Actions) != 2 || got.Actions[1].Type != "SHOW_TRACKING" || got.Actions[1].Label != "Show tracking details" {
		t.Fatalf("unexpected actions %+v", got.Actions)
	}
}

func TestAssistantHandlerChatFailures(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		err    error
		status int
	}{
		{name: "bad json", body: []byte("{"), status: http.StatusBadRequest},
		{name: "invalid question", body: []byte(`{"question":""}`), err: domainErrors.ErrInvalidQuestion, status: http.StatusBadRequest},
		{name: "internal", body: []byte(`{"question":"status"}`), err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facade := testhelpers.AssistantFacadeStub{AskFn: func(context.Context, int64, string, string) (*model.AssistantAnswer, error) {
				return nil, tt.err
			}}
			resp := performRequest(t, http.MethodPost, "/chat", newAssistantHandler(facade).Chat, withUser(1), tt.body, map[string]string{"Content-Type": "application/json"})
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, resp.Code)
			}
			assertErrorBody(t, resp)
		})
	}
}
