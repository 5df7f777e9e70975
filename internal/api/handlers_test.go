package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuwe/site-forms/internal/config"
	"github.com/nuwe/site-forms/internal/domain"
	"github.com/nuwe/site-forms/internal/notify"
	"github.com/nuwe/site-forms/internal/pkg/httputil"
	"github.com/nuwe/site-forms/internal/submission"
)

// memStore is an in-memory contact and newsletter repository.
type memStore struct {
	mu          sync.Mutex
	contacts    []domain.ContactSubmission
	subscribers map[string]bool
	failWith    error
}

func newMemStore() *memStore { return &memStore{subscribers: make(map[string]bool)} }

func (m *memStore) InsertContact(_ context.Context, c *domain.ContactSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.contacts = append(m.contacts, *c)
	return nil
}

func (m *memStore) SubscriptionExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return false, m.failWith
	}
	return m.subscribers[email], nil
}

func (m *memStore) InsertSubscription(_ context.Context, s *domain.NewsletterSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribers[s.Email] {
		return submission.ErrDuplicate
	}
	m.subscribers[s.Email] = true
	return nil
}

type stubNotifier struct {
	result notify.Result
	calls  int
}

func (n *stubNotifier) NotifyContact(context.Context, domain.ContactSubmission) notify.Result {
	n.calls++
	return n.result
}

type panicSubmitter struct{}

func (panicSubmitter) Submit(context.Context, *domain.ContactSubmission) (notify.Result, error) {
	panic("boom")
}

type testEnv struct {
	store    *memStore
	notifier *stubNotifier
	handler  http.Handler
}

func newTestEnv(t *testing.T, rl config.RateLimitConfig) *testEnv {
	t.Helper()
	store := newMemStore()
	n := &stubNotifier{result: notify.Result{Status: notify.StatusSent, MessageID: "m-1"}}
	cfg := &config.Config{
		Server:    config.ServerConfig{AllowedOrigins: []string{"*"}},
		RateLimit: rl,
	}
	srv := NewServer(cfg, Deps{
		Contacts:   submission.NewContactService(store, n),
		Newsletter: submission.NewNewsletterService(store, nil),
	})
	return &testEnv{store: store, notifier: n, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, httputil.Envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env httputil.Envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

const validContact = `{"name":"王小明","email":"ming@example.com","subject":"合作","message":"你好\n再見"}`

func TestContact_Created(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{})

	rec, env := e.do(t, http.MethodPost, "/contact", validContact)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "訊息已成功送出！我們會盡快與您聯繫。", env.Message)
	require.Len(t, e.store.contacts, 1)
	assert.Equal(t, "王小明", e.store.contacts[0].Name)
	assert.Equal(t, 1, e.notifier.calls)
}

func TestContact_ValidationStopsBeforeStore(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{})

	rec, env := e.do(t, http.MethodPost, "/contact", `{"name":"","email":"a@b.com","subject":"s","message":"m"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "請輸入姓名", env.Message)
	assert.Empty(t, e.store.contacts)
	assert.Equal(t, 0, e.notifier.calls)
}

func TestContact_MalformedJSON(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{})

	rec, env := e.do(t, http.MethodPost, "/contact", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "驗證錯誤", env.Message)
}

func TestContact_OversizedBody(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{})
	big := `{"name":"n","email":"a@b.com","subject":"s","message":"` + strings.Repeat("x", maxBodyBytes) + `"}`

	rec, env := e.do(t, http.MethodPost, "/contact", big)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "驗證錯誤", env.Message)
	assert.Empty(t, e.store.contacts)
}

func TestContact_NotificationFailureStillCreated(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{})
	e.notifier.result = notify.Result{Status: notify.StatusFailed, Reason: "provider down"}

	rec, env := e.do(t, http.MethodPost, "/contact", validContact)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Len(t, e.store.contacts, 1)
}

func TestContact_StoreFailure(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{})
	e.store.failWith = errors.New("pq: password authentication failed")

	rec, env := e.do(t, http.MethodPost, "/contact", validContact)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "系統錯誤，請稍後再試。", env.Message)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Equal(t, 0, e.notifier.calls)
}

func TestMethodNotAllowed(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{})

	for _, path := range []string{"/contact", "/newsletter", "/api/contact", "/api/newsletter"} {
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
			rec, env := e.do(t, method, path, "")
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", method, path)
			assert.False(t, env.Success)
			assert.Equal(t, "Method not allowed", env.Message)
		}
	}
	assert.Empty(t, e.store.contacts)
}

func TestNewsletter_SubscribeThenDuplicate(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{})

	rec, env := e.do(t, http.MethodPost, "/newsletter", `{"email":"a@b.com"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "訂閱成功！感謝您加入 NUWE 家族。", env.Message)

	rec, env = e.do(t, http.MethodPost, "/api/newsletter", `{"email":"a@b.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "此 Email 已經訂閱過囉！", env.Message)
}

func TestNewsletter_InvalidEmail(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{})

	rec, env := e.do(t, http.MethodPost, "/newsletter", `{"email":"nope"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "請輸入有效的 Email", env.Message)
	assert.Empty(t, e.store.subscribers)
}

func TestNewsletter_StoreFailure(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{})
	e.store.failWith = errors.New("dial tcp: connection refused")

	rec, env := e.do(t, http.MethodPost, "/newsletter", `{"email":"a@b.com"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "系統錯誤，請稍後再試。", env.Message)
}

func TestPanicBecomesEnvelope(t *testing.T) {
	h := SetupRoutes(NewHandlers(panicSubmitter{}, nil, nil), NewHealthChecker(nil, nil), nil, nil, []string{"*"})

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(validContact))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"系統錯誤，請稍後再試。"}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{PerMinute: 2, Burst: 2})

	for i := 0; i < 2; i++ {
		rec, _ := e.do(t, http.MethodPost, "/newsletter", `{"email":"nope"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec, env := e.do(t, http.MethodPost, "/newsletter", `{"email":"a@b.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "請求過於頻繁，請稍後再試。", env.Message)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Empty(t, e.store.subscribers)

	// Other methods are never limited and still get 405.
	for i := 0; i < 3; i++ {
		rec, env = e.do(t, http.MethodGet, "/newsletter", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "Method not allowed", env.Message)
	}

	// Health is not limited.
	rec, _ = e.do(t, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_NonPostSpendsNoTokens(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{PerMinute: 1, Burst: 1})

	for i := 0; i < 3; i++ {
		rec, _ := e.do(t, http.MethodGet, "/newsletter", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	}

	rec, env := e.do(t, http.MethodPost, "/newsletter", `{"email":"a@b.com"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
}

func TestMetricsCountOutcomes(t *testing.T) {
	e := newTestEnv(t, config.RateLimitConfig{})

	e.do(t, http.MethodPost, "/newsletter", `{"email":"a@b.com"}`)
	e.do(t, http.MethodPost, "/newsletter", `{"email":"a@b.com"}`)
	e.do(t, http.MethodPost, "/contact", validContact)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `site_forms_submissions_total{flow="newsletter",outcome="created"} 1`)
	assert.Contains(t, body, `site_forms_submissions_total{flow="newsletter",outcome="duplicate"} 1`)
	assert.Contains(t, body, `site_forms_submissions_total{flow="contact",outcome="created"} 1`)
	assert.Contains(t, body, `site_forms_notifications_total{status="sent"} 1`)
}

func TestReadiness(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	hc := NewHealthChecker(db, nil)

	mock.ExpectPing()
	rec := httptest.NewRecorder()
	hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	rec = httptest.NewRecorder()
	hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Ready  bool   `json:"ready"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	assert.Equal(t, "unhealthy", body.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetermineOverallStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]ComponentCheck
		want   string
	}{
		{"all up", map[string]ComponentCheck{"database": {Status: "up"}, "redis": {Status: "up"}}, "healthy"},
		{"redis not configured", map[string]ComponentCheck{"database": {Status: "up"}, "redis": {Status: "down", Message: "not configured"}}, "healthy"},
		{"redis down", map[string]ComponentCheck{"database": {Status: "up"}, "redis": {Status: "down", Message: "ping failed"}}, "degraded"},
		{"database down", map[string]ComponentCheck{"database": {Status: "down", Message: "ping failed"}}, "unhealthy"},
		{"database slow", map[string]ComponentCheck{"database": {Status: "degraded"}}, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineOverallStatus(tt.checks))
		})
	}
}
