package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/guido-cesarano/distributedq/internal/manager"
	"github.com/guido-cesarano/distributedq/internal/store"
	"github.com/redis/go-redis/v9"
)

func newTestServer(t *testing.T) (*miniredis.Miniredis, *manager.Manager, *Server) {
	t.Helper()
	return newServerWithKey(t, "")
}

func newServerWithKey(t *testing.T, key string) (*miniredis.Miniredis, *manager.Manager, *Server) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	qs := store.NewQueueStore(rdb)
	m := manager.New(qs, store.NewResultStore(rdb))
	var opts []Option
	if key != "" {
		opts = append(opts, WithAPIKey(key))
	}
	return s, m, New(m, qs, opts...)
}

func TestPushSuccess(t *testing.T) {
	s, _, srv := newTestServer(t)
	defer s.Close()

	body := []byte(`{"queue":"test","name":"foo","args":[1,2]}`)
	req := httptest.NewRequest(http.MethodPost, "/push", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if resp["id"] == "" {
		t.Fatal("expected non-empty task id in response")
	}
}

func TestPushMissingQueueIsBadParams(t *testing.T) {
	s, _, srv := newTestServer(t)
	defer s.Close()

	body := []byte(`{"name":"foo"}`)
	req := httptest.NewRequest(http.MethodPost, "/push", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var apiErr apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if apiErr.Error != "bad-params" {
		t.Fatalf("expected bad-params, got %q", apiErr.Error)
	}
}

func TestPushUnsupportedContentType(t *testing.T) {
	s, _, srv := newTestServer(t)
	defer s.Close()

	req := httptest.NewRequest(http.MethodPost, "/push", bytes.NewReader([]byte("queue=test")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var apiErr apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if apiErr.Error != "invalid-content-type" {
		t.Fatalf("expected invalid-content-type, got %q", apiErr.Error)
	}
}

func TestResultMissingIDIsBadParams(t *testing.T) {
	s, _, srv := newTestServer(t)
	defer s.Close()

	req := httptest.NewRequest(http.MethodGet, "/result", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestResultNotFoundReturnsNullBody(t *testing.T) {
	s, _, srv := newTestServer(t)
	defer s.Close()

	req := httptest.NewRequest(http.MethodGet, "/result?id=missing", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "null" {
		t.Fatalf("expected JSON null body, got %q", rec.Body.String())
	}
}

func TestResultReturnsKeptRecord(t *testing.T) {
	s, m, srv := newTestServer(t)
	defer s.Close()
	ctx := context.Background()

	m.RegisterPlain("add", func(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		return "ok", nil
	})

	ttl := 10 * time.Second
	res, err := m.Push(ctx, manager.PushOptions{Queue: "test", Name: "add", KeepResult: &ttl})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	task, err := m.Pop(ctx, []string{"test"}, time.Second)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if _, err := m.Process(ctx, task, time.Now(), true); err != nil {
		t.Fatalf("Process: %v", err)
	}

	httpReq := httptest.NewRequest(http.MethodGet, "/result?id="+res.ID(), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httpReq)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var rec2 struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rec2); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if rec2.Result != "ok" {
		t.Fatalf("expected result %q, got %q", "ok", rec2.Result)
	}
}

func TestNotFoundRoute(t *testing.T) {
	s, _, srv := newTestServer(t)
	defer s.Close()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsWrongKey(t *testing.T) {
	s, _, srv := newServerWithKey(t, "secret")
	defer s.Close()

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRecovererMiddlewareReturnsInternalError(t *testing.T) {
	s, _, srv := newTestServer(t)
	defer s.Close()

	panics := srv.recovererMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/whatever", nil)
	rec := httptest.NewRecorder()
	panics.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var apiErr apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if apiErr.Error != "internal-error" {
		t.Fatalf("expected internal-error, got %q", apiErr.Error)
	}
}

func TestAuthMiddlewareAllowsCorrectKey(t *testing.T) {
	s, _, srv := newServerWithKey(t, "secret")
	defer s.Close()

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
