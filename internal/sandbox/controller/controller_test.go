package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codesandbox/internal/isolation"
	"codesandbox/internal/sandbox"
	"codesandbox/internal/sandbox/profile"
	"codesandbox/internal/sandbox/result"
	appErr "codesandbox/pkg/errors"

	"github.com/gin-gonic/gin"
)

type fakeService struct {
	res   result.ExecutionResult
	err   error
	calls int
}

func (f *fakeService) Execute(ctx context.Context, req sandbox.ExecutionRequest) (result.ExecutionResult, error) {
	f.calls++
	return f.res, f.err
}

func (f *fakeService) Languages() []profile.LanguageProfile {
	return profile.NewDefaultRegistry().List()
}

type fakeHostManager struct {
	started bool
	fail    bool
}

func (f *fakeHostManager) CheckRuntimeStatus(ctx context.Context) isolation.Status {
	return isolation.Status{Running: true}
}

func (f *fakeHostManager) CheckExecutionHostStatus(ctx context.Context) isolation.Status {
	return isolation.Status{Running: f.started}
}

func (f *fakeHostManager) StartExecutionHost(ctx context.Context) isolation.ActionResult {
	if f.fail {
		return isolation.ActionResult{Success: false, Error: "runtime unavailable"}
	}
	f.started = true
	return isolation.ActionResult{Success: true}
}

func (f *fakeHostManager) StopExecutionHost(ctx context.Context) isolation.ActionResult {
	f.started = false
	return isolation.ActionResult{Success: true}
}

func newRouter(svc ExecutionService, host HostManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var hostCtl *HostController
	if host != nil {
		hostCtl = NewHostController(host)
	}
	RegisterRoutes(router.Group("/api/v1/sandbox"), NewSandboxController(svc), hostCtl)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestExecuteReturnsRawResult(t *testing.T) {
	svc := &fakeService{res: result.Failed("SyntaxError: invalid syntax", 12*time.Millisecond)}
	router := newRouter(svc, nil)

	rec := doJSON(router, http.MethodPost, "/api/v1/sandbox/execute", map[string]string{"code": "print(", "language": "python"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false || body["output"] != nil || body["error"] != "SyntaxError: invalid syntax" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["executionTime"] != float64(12) {
		t.Fatalf("executionTime should be a number, got %v", body["executionTime"])
	}
}

func TestExecuteValidationError(t *testing.T) {
	svc := &fakeService{err: appErr.UnsupportedLanguage("ruby")}
	router := newRouter(svc, nil)

	rec := doJSON(router, http.MethodPost, "/api/v1/sandbox/execute", map[string]string{"code": "puts 1", "language": "ruby"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["code"] != float64(appErr.LanguageNotSupported) {
		t.Fatalf("unexpected envelope %v", body)
	}
}

func TestExecuteMalformedBody(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sandbox/execute", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("service must not be called")
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != float64(appErr.InvalidParams) {
		t.Fatalf("unexpected code %v", body["code"])
	}
	if msg, _ := body["message"].(string); !strings.HasPrefix(msg, "invalid request body: ") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestListLanguages(t *testing.T) {
	router := newRouter(&fakeService{}, nil)
	rec := doJSON(router, http.MethodGet, "/api/v1/sandbox/languages", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data []profile.LanguageProfile `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 5 {
		t.Fatalf("expected 5 languages, got %d", len(body.Data))
	}
}

func TestHostRoutes(t *testing.T) {
	host := &fakeHostManager{}
	router := newRouter(&fakeService{}, host)

	if rec := doJSON(router, http.MethodGet, "/api/v1/sandbox/host/runtime", nil); rec.Code != http.StatusOK {
		t.Fatalf("runtime status: %d", rec.Code)
	}
	if rec := doJSON(router, http.MethodPost, "/api/v1/sandbox/host/start", nil); rec.Code != http.StatusOK {
		t.Fatalf("start: %d", rec.Code)
	}
	rec := doJSON(router, http.MethodGet, "/api/v1/sandbox/host/status", nil)
	var st isolation.Status
	_ = json.Unmarshal(rec.Body.Bytes(), &st)
	if !st.Running {
		t.Fatalf("host should be running")
	}
	if rec := doJSON(router, http.MethodPost, "/api/v1/sandbox/host/stop", nil); rec.Code != http.StatusOK {
		t.Fatalf("stop: %d", rec.Code)
	}

	host.fail = true
	rec = doJSON(router, http.MethodPost, "/api/v1/sandbox/host/start", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on failed start, got %d", rec.Code)
	}
}

func TestHostRoutesDisabled(t *testing.T) {
	router := newRouter(&fakeService{}, nil)
	if rec := doJSON(router, http.MethodGet, "/api/v1/sandbox/host/status", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without isolation, got %d", rec.Code)
	}
}
