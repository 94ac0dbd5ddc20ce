package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vivido-app/vivido/internal/apperror"
)

// mockService implements Service with function fields, like the repository mock.
type mockService struct {
	loginFn          func(ctx context.Context, input LoginInput) (*LoginResult, error)
	registerFn       func(ctx context.Context, input RegisterInput) (*Account, error)
	deleteFn         func(ctx context.Context, id int64) error
	getFn            func(ctx context.Context, id int64) (*Account, error)
	forgotPasswordFn func(ctx context.Context, email string) error
	resetPasswordFn  func(ctx context.Context, token, password string) error
}

func (m *mockService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	return m.loginFn(ctx, input)
}

func (m *mockService) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	return m.registerFn(ctx, input)
}

func (m *mockService) Delete(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

func (m *mockService) Get(ctx context.Context, id int64) (*Account, error) {
	return m.getFn(ctx, id)
}

func (m *mockService) ForgotPassword(ctx context.Context, email string) error {
	return m.forgotPasswordFn(ctx, email)
}

func (m *mockService) ResetPassword(ctx context.Context, token, password string) error {
	return m.resetPasswordFn(ctx, token, password)
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, params ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	// Mirror the app's central error handler for errors the handler
	// passes through (bad requests, store errors).
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		_ = c.JSON(apperror.SafeCode(err), map[string]any{
			"success": false,
			"message": apperror.SafeMessage(err),
		})
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}

	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return rec, out
}

func TestHandlerLogin_Success(t *testing.T) {
	now := time.Now().UTC()
	svc := &mockService{
		loginFn: func(ctx context.Context, input LoginInput) (*LoginResult, error) {
			if input.Identifier != "validuser" || input.Password != "Strong@123" {
				t.Errorf("unexpected input %+v", input)
			}
			return &LoginResult{UserID: 1, Username: "validuser", Email: "validuser@gmail.com", LastLogin: now}, nil
		},
	}
	h := NewHandler(svc)

	rec, out := doJSON(t, h.Login, http.MethodPost, "/api/login",
		`{"identifier":"validuser","password":"Strong@123"}`)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if out["success"] != true || out["message"] != "Login successful" {
		t.Errorf("unexpected envelope %v", out)
	}
	if out["user_id"] != float64(1) || out["username"] != "validuser" {
		t.Errorf("missing identity fields in %v", out)
	}
}

func TestHandlerLogin_AccountNotFoundFlag(t *testing.T) {
	svc := &mockService{
		loginFn: func(ctx context.Context, input LoginInput) (*LoginResult, error) {
			return nil, apperror.NewAccountNotFound("Email or username does not exist. Please create an account.")
		},
	}
	h := NewHandler(svc)

	rec, out := doJSON(t, h.Login, http.MethodPost, "/api/login",
		`{"identifier":"ghost","password":"x"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if out["success"] != false {
		t.Errorf("expected failure envelope, got %v", out)
	}
	if out["account_not_found"] != true {
		t.Errorf("expected account_not_found flag in %v", out)
	}
}

func TestHandlerLogin_Locked(t *testing.T) {
	svc := &mockService{
		loginFn: func(ctx context.Context, input LoginInput) (*LoginResult, error) {
			return nil, apperror.NewAccountLocked("Account locked. Try again in 12 minutes")
		},
	}
	h := NewHandler(svc)

	rec, out := doJSON(t, h.Login, http.MethodPost, "/api/login",
		`{"identifier":"validuser","password":"Strong@123"}`)

	if rec.Code != http.StatusLocked {
		t.Errorf("expected 423, got %d", rec.Code)
	}
	if _, present := out["account_not_found"]; present {
		t.Error("account_not_found must be omitted unless set")
	}
}

func TestHandlerLogin_StoreErrorHidesCause(t *testing.T) {
	svc := &mockService{
		loginFn: func(ctx context.Context, input LoginInput) (*LoginResult, error) {
			return nil, apperror.NewStoreError(context.DeadlineExceeded)
		},
	}
	h := NewHandler(svc)

	rec, _ := doJSON(t, h.Login, http.MethodPost, "/api/login",
		`{"identifier":"validuser","password":"Strong@123"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "deadline") {
		t.Errorf("internal cause leaked: %s", rec.Body.String())
	}
}

func TestHandlerRegister_Created(t *testing.T) {
	svc := &mockService{
		registerFn: func(ctx context.Context, input RegisterInput) (*Account, error) {
			return &Account{ID: 5, Username: input.Username, Email: input.Email, IsActive: true}, nil
		},
	}
	h := NewHandler(svc)

	rec, out := doJSON(t, h.Register, http.MethodPost, "/api/register",
		`{"username":"validuser","email":"validuser@gmail.com","password":"Strong@123"}`)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if out["message"] != "User registered successfully" {
		t.Errorf("unexpected envelope %v", out)
	}
}

func TestHandlerRegister_Duplicate(t *testing.T) {
	svc := &mockService{
		registerFn: func(ctx context.Context, input RegisterInput) (*Account, error) {
			return nil, apperror.NewDuplicateIdentifier("Username or email already exists")
		},
	}
	h := NewHandler(svc)

	rec, out := doJSON(t, h.Register, http.MethodPost, "/api/register",
		`{"username":"validuser","email":"validuser@gmail.com","password":"Strong@123"}`)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if out["message"] != "Username or email already exists" {
		t.Errorf("unexpected envelope %v", out)
	}
}

func TestHandlerDelete(t *testing.T) {
	svc := &mockService{
		deleteFn: func(ctx context.Context, id int64) error {
			if id != 7 {
				t.Errorf("expected id 7, got %d", id)
			}
			return nil
		},
	}
	h := NewHandler(svc)

	rec, out := doJSON(t, h.Delete, http.MethodDelete, "/api/accounts/7", "", "id", "7")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if out["message"] != "Account deleted successfully" {
		t.Errorf("unexpected envelope %v", out)
	}
}

func TestHandlerDelete_BadID(t *testing.T) {
	h := NewHandler(&mockService{})

	rec, _ := doJSON(t, h.Delete, http.MethodDelete, "/api/accounts/abc", "", "id", "abc")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerGet_NeverExposesDigest(t *testing.T) {
	svc := &mockService{
		getFn: func(ctx context.Context, id int64) (*Account, error) {
			return &Account{
				ID:             3,
				Username:       "validuser",
				Email:          "validuser@gmail.com",
				PasswordDigest: "$argon2id$secret",
				IsActive:       true,
				FailedAttempts: 2,
			}, nil
		},
	}
	h := NewHandler(svc)

	rec, _ := doJSON(t, h.Get, http.MethodGet, "/api/accounts/3", "", "id", "3")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "argon2id") || strings.Contains(body, "failed_attempts") {
		t.Errorf("sensitive fields leaked: %s", body)
	}
}

func TestHandlerForgotPassword(t *testing.T) {
	svc := &mockService{
		forgotPasswordFn: func(ctx context.Context, email string) error {
			return nil
		},
	}
	h := NewHandler(svc)

	rec, out := doJSON(t, h.ForgotPassword, http.MethodPost, "/api/forgot-password",
		`{"email":"validuser@gmail.com"}`)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if out["message"] != "Password reset link sent to your email" {
		t.Errorf("unexpected envelope %v", out)
	}
}
