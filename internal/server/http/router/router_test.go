package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/polkiloo/facecheck/internal/config"
	"github.com/polkiloo/facecheck/internal/domain/model"
	"github.com/polkiloo/facecheck/internal/server/http/handlers"
	testhelpers "github.com/polkiloo/facecheck/internal/test"
)

func newTestEngine(t *testing.T, facade handlers.IdentityFacade, cfg *config.Config, rdb *redis.Client) *gin.Engine {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	engine := Setup(Params{Facade: facade, Config: cfg, Logger: logger, Redis: rdb})
	gin.SetMode(gin.TestMode)
	return engine
}

func TestSetupRoutes(t *testing.T) {
	userID := uuid.New()
	facade := testhelpers.IdentityFacadeStub{
		AuthFacadeStub: testhelpers.AuthFacadeStub{
			ParseFn: func(token string) (uuid.UUID, error) { return userID, nil },
		},
	}
	engine := newTestEngine(t, facade, &config.Config{CORSOrigins: []string{"*"}, AssetBackend: config.AssetBackendS3}, nil)

	body, _ := json.Marshal(map[string]string{"login": "user", "password": "pass"})
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 for login, got %d", resp.Code)
	}

	cases := []struct {
		method string
		path   string
		auth   bool
		status int
	}{
		{http.MethodGet, "/healthz", false, http.StatusOK},
		{http.MethodGet, "/users/" + userID.String(), false, http.StatusOK},
		{http.MethodGet, "/api/user/" + userID.String(), false, http.StatusOK},
		{http.MethodPut, "/users/" + userID.String() + "/verification/reset", false, http.StatusOK},
		{http.MethodPut, "/api/request-revalidation/" + userID.String(), false, http.StatusOK},
		{http.MethodGet, "/users/me", false, http.StatusUnauthorized},
		{http.MethodGet, "/users/me", true, http.StatusOK},
		{http.MethodPost, "/users/" + userID.String() + "/verification", false, http.StatusBadRequest},
		{http.MethodPost, "/api/verify-identity/" + userID.String(), false, http.StatusBadRequest},
		{http.MethodGet, "/uploads/documents/x.jpg", false, http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.auth {
			req.Header.Set("Authorization", "Bearer token")
		}
		resp := httptest.NewRecorder()
		engine.ServeHTTP(resp, req)
		if resp.Code != tc.status {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, resp.Code)
		}
	}
}

func TestSetupServesLocalUploads(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "documents"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "documents", "doc.jpg"), []byte("image"), 0o600); err != nil {
		t.Fatal(err)
	}

	engine := newTestEngine(t, testhelpers.IdentityFacadeStub{}, &config.Config{AssetBackend: config.AssetBackendLocal, AssetDir: dir}, nil)
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/uploads/documents/doc.jpg", nil))
	if resp.Code != http.StatusOK || resp.Body.String() != "image" {
		t.Fatalf("expected stored file, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestSetupRateLimitsLogin(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{RateLimitMax: 1, RateLimitWindow: time.Minute}
	engine := newTestEngine(t, testhelpers.IdentityFacadeStub{
		AuthFacadeStub: testhelpers.AuthFacadeStub{LoginFn: func(_ context.Context, login, _ string) (*model.Session, error) {
			return &model.Session{Token: "t", User: &model.User{ID: uuid.New(), Login: login}}, nil
		}},
	}, cfg, client)

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte(`{"login":"a","password":"b"}`)))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		engine.ServeHTTP(resp, req)
		return resp.Code
	}
	if code := login(); code != http.StatusOK {
		t.Fatalf("expected first login to pass, got %d", code)
	}
	if code := login(); code != http.StatusTooManyRequests {
		t.Fatalf("expected second login to be limited, got %d", code)
	}

	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("health must not be limited, got %d", resp.Code)
	}
}

func TestSetupRejectsOversizedBodies(t *testing.T) {
	engine := newTestEngine(t, testhelpers.IdentityFacadeStub{}, &config.Config{MaxUploadBytes: 16}, nil)
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(bytes.Repeat([]byte("a"), 64)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.Code)
	}
}

func TestCorsConfig(t *testing.T) {
	if cfg := corsConfig([]string{"*"}); !cfg.AllowAllOrigins || cfg.AllowCredentials {
		t.Fatalf("unexpected wildcard config %+v", cfg)
	}
	if cfg := corsConfig(nil); !cfg.AllowAllOrigins {
		t.Fatal("expected empty origin list to allow all")
	}
	cfg := corsConfig([]string{"https://app.example.com"})
	if cfg.AllowAllOrigins || !cfg.AllowCredentials || len(cfg.AllowOrigins) != 1 {
		t.Fatalf("unexpected explicit config %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid cors config: %v", err)
	}
}

var _ handlers.IdentityFacade = testhelpers.IdentityFacadeStub{}
