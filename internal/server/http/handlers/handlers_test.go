package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/facecheck/internal/domain/errors"
	"github.com/polkiloo/facecheck/internal/domain/model"
	"github.com/polkiloo/facecheck/internal/server/http/dto"
	"github.com/polkiloo/facecheck/internal/server/http/middleware"
	testhelpers "github.com/polkiloo/facecheck/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.RegisterValidation()
}

func performRequest(t *testing.T, method, route, path string, handler gin.HandlerFunc, setup func(*gin.Context), body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, route, func(c *gin.Context) {
		if setup != nil {
			setup(c)
		}
		handler(c)
	})

	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type filePart struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", resp.Body.String(), err)
	}
	return body
}

func registrationFields() map[string]string {
	return map[string]string{
		"login":    "alice",
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "secret",
		"userType": "pf",
	}
}

func TestCurrentUserID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := CurrentUserID(c); got != uuid.Nil {
		t.Fatalf("expected nil id when not set, got %s", got)
	}

	id := uuid.New()
	c.Set(middleware.UserIDContextKey, id)
	if got := CurrentUserID(c); got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domainErrors.ErrDuplicateLogin, http.StatusBadRequest},
		{domainErrors.ErrUserNotFound, http.StatusNotFound},
		{domainErrors.ErrInvalidPassword, http.StatusUnauthorized},
		{domainErrors.ErrNoDocumentOnFile, http.StatusBadRequest},
		{fmt.Errorf("selfie image: %w", domainErrors.ErrFaceNotDetected), http.StatusBadRequest},
		{domainErrors.Wrap(domainErrors.ErrProvider, errors.New("timeout")), http.StatusBadGateway},
		{domainErrors.Wrap(domainErrors.ErrStorage, errors.New("disk full")), http.StatusInternalServerError},
		{domainErrors.ErrInvalidInput, http.StatusBadRequest},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestAuthHandlerRegisterMultipart(t *testing.T) {
	var got model.Registration
	userID := uuid.New()
	handler := NewAuthHandler(testhelpers.AuthFacadeStub{RegisterFn: func(_ context.Context, in model.Registration) (*model.User, error) {
		got = in
		return &model.User{ID: userID}, nil
	}})

	body, contentType := multipartBody(t, registrationFields(), filePart{field: "document", name: "passport.png", data: []byte("\x89PNG\r\n\x1a\nrest")})
	resp := performRequest(t, http.MethodPost, "/users", "/users", handler.Register, nil, body, map[string]string{"Content-Type": contentType})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var out dto.RegisterResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil || out.UserID != userID.String() {
		t.Fatalf("unexpected response %q", resp.Body.String())
	}
	if got.Login != "alice" || got.UserType != "pf" || got.Document == nil {
		t.Fatalf("unexpected registration %+v", got)
	}
	if got.Document.Filename != "passport.png" || got.Document.ContentType != "image/png" {
		t.Fatalf("unexpected document %+v", got.Document)
	}
}

func TestAuthHandlerRegisterWithoutDocument(t *testing.T) {
	var got model.Registration
	handler := NewAuthHandler(testhelpers.AuthFacadeStub{RegisterFn: func(_ context.Context, in model.Registration) (*model.User, error) {
		got = in
		return &model.User{ID: uuid.New()}, nil
	}})

	body, contentType := multipartBody(t, registrationFields())
	resp := performRequest(t, http.MethodPost, "/users", "/users", handler.Register, nil, body, map[string]string{"Content-Type": contentType})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	if got.Document != nil {
		t.Fatal("expected no document")
	}

	payload, _ := json.Marshal(registrationFields())
	resp = performRequest(t, http.MethodPost, "/users", "/users", handler.Register, nil, bytes.NewReader(payload), map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected JSON registration to succeed, got %d", resp.Code)
	}
}

func TestAuthHandlerRegisterKeepsFreeFormFields(t *testing.T) {
	var got model.Registration
	handler := NewAuthHandler(testhelpers.AuthFacadeStub{RegisterFn: func(_ context.Context, in model.Registration) (*model.User, error) {
		got = in
		return &model.User{ID: uuid.New(), Login: in.Login, Email: in.Email}, nil
	}})

	fields := registrationFields()
	fields["email"] = "alice-at-example"
	fields["login"] = strings.Repeat("a", 100)
	fields["name"] = strings.Repeat("Alice ", 40)
	body, contentType := multipartBody(t, fields)
	resp := performRequest(t, http.MethodPost, "/users", "/users", handler.Register, nil, body, map[string]string{"Content-Type": contentType})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Email != "alice-at-example" || len(got.Login) != 100 {
		t.Fatalf("expected fields to be passed through, got %+v", got)
	}
}

func TestAuthHandlerRegisterErrors(t *testing.T) {
	t.Run("validation names fields", func(t *testing.T) {
		fields := registrationFields()
		delete(fields, "email")
		body, contentType := multipartBody(t, fields)
		resp := performRequest(t, http.MethodPost, "/users", "/users", NewAuthHandler(testhelpers.AuthFacadeStub{}).Register, nil, body, map[string]string{"Content-Type": contentType})
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.Code)
		}
		out := decodeError(t, resp)
		if out.Code != "InvalidInput" || !strings.Contains(out.Error, "email") {
			t.Fatalf("unexpected error body %+v", out)
		}
	})

	t.Run("unknown user type", func(t *testing.T) {
		fields := registrationFields()
		fields["userType"] = "robot"
		body, contentType := multipartBody(t, fields)
		resp := performRequest(t, http.MethodPost, "/users", "/users", NewAuthHandler(testhelpers.AuthFacadeStub{}).Register, nil, body, map[string]string{"Content-Type": contentType})
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.Code)
		}
	})

	t.Run("duplicate login", func(t *testing.T) {
		handler := NewAuthHandler(testhelpers.AuthFacadeStub{RegisterFn: func(context.Context, model.Registration) (*model.User, error) {
			return nil, domainErrors.ErrDuplicateLogin
		}})
		body, contentType := multipartBody(t, registrationFields())
		resp := performRequest(t, http.MethodPost, "/users", "/users", handler.Register, nil, body, map[string]string{"Content-Type": contentType})
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.Code)
		}
		if out := decodeError(t, resp); out.Code != "DuplicateLogin" {
			t.Fatalf("unexpected code %q", out.Code)
		}
	})

	t.Run("storage failure hides details", func(t *testing.T) {
		handler := NewAuthHandler(testhelpers.AuthFacadeStub{RegisterFn: func(context.Context, model.Registration) (*model.User, error) {
			return nil, domainErrors.Wrap(domainErrors.ErrStorage, errors.New("pq: connection refused at 10.0.0.5"))
		}})
		body, contentType := multipartBody(t, registrationFields())
		resp := performRequest(t, http.MethodPost, "/users", "/users", handler.Register, nil, body, map[string]string{"Content-Type": contentType})
		if resp.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", resp.Code)
		}
		out := decodeError(t, resp)
		if out.Code != "StorageError" || strings.Contains(out.Error, "10.0.0.5") {
			t.Fatalf("unexpected error body %+v", out)
		}
	})
}

func TestAuthHandlerLogin(t *testing.T) {
	user := &model.User{ID: uuid.New(), Name: "Alice", IsVerified: true}
	handler := NewAuthHandler(testhelpers.AuthFacadeStub{LoginFn: func(_ context.Context, login, password string) (*model.Session, error) {
		if login != "alice" || password != "secret" {
			t.Fatalf("unexpected credentials %q %q", login, password)
		}
		return &model.Session{Token: "tok", User: user}, nil
	}})

	body, _ := json.Marshal(dto.LoginRequest{Login: "alice", Password: "secret"})
	resp := performRequest(t, http.MethodPost, "/sessions", "/sessions", handler.Login, nil, bytes.NewReader(body), map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var out dto.SessionResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Token != "tok" || out.UserID != user.ID.String() || out.Name != "Alice" || !out.IsVerified {
		t.Fatalf("unexpected session %+v", out)
	}
	if resp.Header().Get("Authorization") != "Bearer tok" {
		t.Fatal("expected auth header to be set")
	}
}

func TestAuthHandlerLoginFreshUser(t *testing.T) {
	handler := NewAuthHandler(testhelpers.AuthFacadeStub{LoginFn: func(context.Context, string, string) (*model.Session, error) {
		return &model.Session{Token: "tok", User: &model.User{ID: uuid.New(), Name: "Bob"}}, nil
	}})

	body, _ := json.Marshal(dto.LoginRequest{Login: "bob", Password: "secret"})
	resp := performRequest(t, http.MethodPost, "/sessions", "/sessions", handler.Login, nil, bytes.NewReader(body), map[string]string{"Content-Type": "application/json"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["token"] != "tok" {
		t.Fatalf("expected token, got %v", out["token"])
	}
	if verified, ok := out["isVerified"].(bool); !ok || verified {
		t.Fatalf("expected isVerified=false, got %v", out["isVerified"])
	}
}

func TestAuthHandlerLoginErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "malformed json", body: `{`, status: http.StatusBadRequest, code: "InvalidInput"},
		{name: "missing password", body: `{"login":"alice"}`, status: http.StatusBadRequest, code: "InvalidInput"},
		{name: "unknown login", body: `{"login":"x","password":"y"}`, err: domainErrors.ErrUserNotFound, status: http.StatusUnauthorized, code: "UserNotFound"},
		{name: "wrong password", body: `{"login":"x","password":"y"}`, err: domainErrors.ErrInvalidPassword, status: http.StatusUnauthorized, code: "InvalidPassword"},
		{name: "internal", body: `{"login":"x","password":"y"}`, err: errors.New("boom"), status: http.StatusInternalServerError, code: "Internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewAuthHandler(testhelpers.AuthFacadeStub{LoginFn: func(context.Context, string, string) (*model.Session, error) {
				return nil, tc.err
			}})
			resp := performRequest(t, http.MethodPost, "/sessions", "/sessions", handler.Login, nil, strings.NewReader(tc.body), map[string]string{"Content-Type": "application/json"})
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.Code)
			}
			if out := decodeError(t, resp); out.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, out.Code)
			}
		})
	}
}

func TestAuthHandlerProfile(t *testing.T) {
	id := uuid.New()
	handler := NewAuthHandler(testhelpers.AuthFacadeStub{})
	resp := performRequest(t, http.MethodGet, "/users/:id", "/users/"+id.String(), handler.Profile, nil, nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "secret-hash") || strings.Contains(strings.ToLower(resp.Body.String()), "password") {
		t.Fatalf("password hash leaked: %s", resp.Body.String())
	}
	var out dto.UserResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil || out.ID != id.String() {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}

	resp = performRequest(t, http.MethodGet, "/users/:id", "/users/not-a-uuid", handler.Profile, nil, nil, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", resp.Code)
	}

	missing := NewAuthHandler(testhelpers.AuthFacadeStub{ProfileFn: func(context.Context, uuid.UUID) (*model.User, error) {
		return nil, domainErrors.ErrUserNotFound
	}})
	resp = performRequest(t, http.MethodGet, "/users/:id", "/users/"+id.String(), missing.Profile, nil, nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestAuthHandlerMe(t *testing.T) {
	id := uuid.New()
	var asked uuid.UUID
	handler := NewAuthHandler(testhelpers.AuthFacadeStub{ProfileFn: func(_ context.Context, userID uuid.UUID) (*model.User, error) {
		asked = userID
		return &model.User{ID: userID}, nil
	}})
	resp := performRequest(t, http.MethodGet, "/users/me", "/users/me", handler.Me, func(c *gin.Context) {
		c.Set(middleware.UserIDContextKey, id)
	}, nil, nil)
	if resp.Code != http.StatusOK || asked != id {
		t.Fatalf("expected profile of %s, got status %d for %s", id, resp.Code, asked)
	}
}

func TestVerificationHandlerVerify(t *testing.T) {
	id := uuid.New()
	var gotSelfie model.Upload
	handler := NewVerificationHandler(testhelpers.VerificationFacadeStub{VerifyFn: func(_ context.Context, userID uuid.UUID, selfie model.Upload) (*model.VerificationResult, error) {
		if userID != id {
			t.Fatalf("unexpected user %s", userID)
		}
		gotSelfie = selfie
		return &model.VerificationResult{Verified: false, Similarity: 0.3899999, Distance: 0.61, Reason: model.ReasonFaceMismatch}, nil
	}})

	body, contentType := multipartBody(t, nil, filePart{field: "selfie", name: "me.jpg", data: []byte("\xff\xd8\xff\xe0face")})
	resp := performRequest(t, http.MethodPost, "/users/:id/verification", "/users/"+id.String()+"/verification", handler.Verify, nil, body, map[string]string{"Content-Type": contentType})
	if resp.Code != http.StatusOK {
		t.Fatalf("mismatch must be reported with 200, got %d", resp.Code)
	}
	var out dto.VerificationResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Verified || out.Similarity != 0.39 || out.Reason != model.ReasonFaceMismatch {
		t.Fatalf("unexpected response %+v", out)
	}
	if gotSelfie.Filename != "me.jpg" || string(gotSelfie.Data) != "\xff\xd8\xff\xe0face" {
		t.Fatalf("unexpected selfie %+v", gotSelfie)
	}
}

func TestVerificationHandlerVerifyErrors(t *testing.T) {
	id := uuid.New()
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown user", domainErrors.ErrUserNotFound, http.StatusNotFound, "UserNotFound"},
		{"no document", domainErrors.ErrNoDocumentOnFile, http.StatusBadRequest, "NoDocumentOnFile"},
		{"no face", fmt.Errorf("selfie image: %w", domainErrors.ErrFaceNotDetected), http.StatusBadRequest, "FaceNotDetected"},
		{"provider down", domainErrors.Wrap(domainErrors.ErrProvider, errors.New("timeout")), http.StatusBadGateway, "ProviderError"},
		{"storage", domainErrors.Wrap(domainErrors.ErrStorage, errors.New("bucket")), http.StatusInternalServerError, "StorageError"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewVerificationHandler(testhelpers.VerificationFacadeStub{VerifyFn: func(context.Context, uuid.UUID, model.Upload) (*model.VerificationResult, error) {
				return nil, tc.err
			}})
			body, contentType := multipartBody(t, nil, filePart{field: "selfie", name: "me.jpg", data: []byte("img")})
			resp := performRequest(t, http.MethodPost, "/users/:id/verification", "/users/"+id.String()+"/verification", handler.Verify, nil, body, map[string]string{"Content-Type": contentType})
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.Code)
			}
			if out := decodeError(t, resp); out.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, out.Code)
			}
		})
	}

	t.Run("missing selfie", func(t *testing.T) {
		cases := []struct {
			name   string
			err    error
			status int
			code   string
		}{
			{name: "known user", err: domainErrors.Wrap(domainErrors.ErrInvalidInput, errors.New("selfie image is required")), status: http.StatusBadRequest, code: "InvalidInput"},
			{name: "unknown user", err: domainErrors.ErrUserNotFound, status: http.StatusNotFound, code: "UserNotFound"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				var got model.Upload
				handler := NewVerificationHandler(testhelpers.VerificationFacadeStub{VerifyFn: func(_ context.Context, _ uuid.UUID, selfie model.Upload) (*model.VerificationResult, error) {
					got = selfie
					return nil, tc.err
				}})
				body, contentType := multipartBody(t, map[string]string{"note": "no file"})
				resp := performRequest(t, http.MethodPost, "/users/:id/verification", "/users/"+id.String()+"/verification", handler.Verify, nil, body, map[string]string{"Content-Type": contentType})
				if resp.Code != tc.status {
					t.Fatalf("expected %d, got %d", tc.status, resp.Code)
				}
				if len(got.Data) != 0 {
					t.Fatalf("expected empty upload, got %d bytes", len(got.Data))
				}
				if out := decodeError(t, resp); out.Code != tc.code {
					t.Fatalf("unexpected code %q", out.Code)
				}
			})
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		body, contentType := multipartBody(t, nil, filePart{field: "selfie", name: "me.jpg", data: []byte("img")})
		resp := performRequest(t, http.MethodPost, "/users/:id/verification", "/users/42/verification", NewVerificationHandler(testhelpers.VerificationFacadeStub{}).Verify, nil, body, map[string]string{"Content-Type": contentType})
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.Code)
		}
	})
}

func TestVerificationHandlerReset(t *testing.T) {
	id := uuid.New()
	handler := NewVerificationHandler(testhelpers.VerificationFacadeStub{})
	resp := performRequest(t, http.MethodPut, "/users/:id/verification/reset", "/users/"+id.String()+"/verification/reset", handler.Reset, nil, nil, nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}

	missing := NewVerificationHandler(testhelpers.VerificationFacadeStub{ResetFn: func(context.Context, uuid.UUID) error {
		return domainErrors.ErrUserNotFound
	}})
	resp = performRequest(t, http.MethodPut, "/users/:id/verification/reset", "/users/"+id.String()+"/verification/reset", missing.Reset, nil, nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	resp := performRequest(t, http.MethodGet, "/healthz", "/healthz", NewHealthHandler(testhelpers.HealthCheckerStub{}).Check, nil, nil, nil)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}

	resp = performRequest(t, http.MethodGet, "/healthz", "/healthz", NewHealthHandler(testhelpers.HealthCheckerStub{Err: errors.New("down")}).Check, nil, nil, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

var _ IdentityFacade = testhelpers.IdentityFacadeStub{}
