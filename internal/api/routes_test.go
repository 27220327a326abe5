package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jsalazar/toolforge/internal/api"
	"github.com/jsalazar/toolforge/internal/domain/audit"
	"github.com/jsalazar/toolforge/internal/domain/dispatch"
	"github.com/jsalazar/toolforge/internal/domain/tool"
	"github.com/jsalazar/toolforge/internal/infra/sqlite"
	pkgauth "github.com/jsalazar/toolforge/pkg/auth"
)

var signingKey = []byte("routes-test-key")

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	registry, err := tool.NewBuiltinRegistry(tool.CatalogDeps{FilesRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("NewBuiltinRegistry: %v", err)
	}

	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	auditSvc := audit.NewService(db, nil, zap.NewNop())

	exec := tool.NewExecutor(time.Second, zap.NewNop())
	disp := dispatch.New(registry, exec, dispatch.Policy{MaxCalls: 10, MaxRetries: 1, BaseDelay: time.Millisecond}, zap.NewNop(), auditSvc)

	hash, err := pkgauth.HashSecret("ci-secret")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}

	return api.NewRouter(api.Deps{
		Registry:    registry,
		Dispatcher:  disp,
		Runner:      nil,
		Audit:       auditSvc,
		DatasetPath: filepath.Join(t.TempDir(), "train.jsonl"),
		SigningKey:  signingKey,
		TokenTTL:    time.Hour,
		Credentials: map[string]string{"ci": hash},
	})
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token, err := pkgauth.GenerateToken(signingKey, "ci", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return "Bearer " + token
}

func TestHealth_Public(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthToken_Exchange(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	body := bytes.NewBufferString(`{"service_id":"ci","secret":"ci-secret"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/token", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token     string `json:"token"`
		ServiceID string `json:"service_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" || resp.ServiceID != "ci" {
		t.Fatalf("response = %+v", resp)
	}

	// The issued token must open the protected routes.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("protected route with issued token: status = %d", rec.Code)
	}
}

func TestAuthToken_WrongSecret(t *testing.T) {
	t.Parallel()

	body := bytes.NewBufferString(`{"service_id":"ci","secret":"wrong"}`)
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/token", body))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	for _, path := range []string{"/api/v1/tools", "/api/v1/examples", "/api/v1/invocations"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: status = %d, want 401", path, rec.Code)
		}
	}
}

func TestListTools_FullCatalog(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil)
	req.Header.Set("Authorization", bearerToken(t))
	newTestRouter(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Data []struct {
			Type     string `json:"type"`
			Function struct {
				Name string `json:"name"`
			} `json:"function"`
		} `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Meta.Total != 6 || len(resp.Data) != 6 {
		t.Fatalf("catalog size = %d, want 6", resp.Meta.Total)
	}
	if resp.Data[0].Type != "function" || resp.Data[0].Function.Name != "get_weather" {
		t.Fatalf("first definition = %+v", resp.Data[0])
	}
}

func TestExecuteTool_Calculate(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	body := bytes.NewBufferString(`{"name":"calculate","arguments":{"expression":"2+2*3"}}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/execute", body)
	req.Header.Set("Authorization", bearerToken(t))
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res tool.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.OK() {
		t.Fatalf("result = %+v", res)
	}
	if string(res.Payload) != `{"result":8}` {
		t.Fatalf("payload = %s", res.Payload)
	}

	// The settled call must appear in the audit trail.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/invocations", nil)
	req.Header.Set("Authorization", bearerToken(t))
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("invocations status = %d", rec.Code)
	}
	var activity struct {
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &activity); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	if activity.Meta.Total != 1 {
		t.Fatalf("audit trail holds %d events, want 1", activity.Meta.Total)
	}
}

func TestExecuteTool_UnknownToolSettlesAsError(t *testing.T) {
	t.Parallel()

	body := bytes.NewBufferString(`{"name":"launch_rocket","arguments":{}}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/execute", body)
	req.Header.Set("Authorization", bearerToken(t))
	newTestRouter(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var res tool.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != tool.StatusError {
		t.Fatalf("status = %q, want error", res.Status)
	}
}

func TestExamples_EmptyDataset(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/examples", nil)
	req.Header.Set("Authorization", bearerToken(t))
	newTestRouter(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Meta.Total != 0 {
		t.Fatalf("total = %d, want 0", resp.Meta.Total)
	}
}

func TestTurns_NoProviderConfigured(t *testing.T) {
	t.Parallel()

	body := bytes.NewBufferString(`{"message":"hello"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turns", body)
	req.Header.Set("Authorization", bearerToken(t))
	newTestRouter(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
