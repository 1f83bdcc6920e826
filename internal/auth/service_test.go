package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/docshelf/internal/apiclient"
	"github.com/hitoshi/docshelf/internal/model"
)

// mockBackendClient はテスト用のBackendClient実装。
type mockBackendClient struct {
	loginFunc          func(ctx context.Context, email, password string) (*apiclient.AuthResponse, error)
	registerFunc       func(ctx context.Context, name, email, password string) (*apiclient.AuthResponse, error)
	logoutFunc         func(ctx context.Context, token string) error
	profileFunc        func(ctx context.Context, token string) (*model.User, error)
	forgotPasswordFunc func(ctx context.Context, email string) (string, error)
	resetPasswordFunc  func(ctx context.Context, email, code, newPassword string) error
}

func (m *mockBackendClient) Login(ctx context.Context, email, password string) (*apiclient.AuthResponse, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockBackendClient) Register(ctx context.Context, name, email, password string) (*apiclient.AuthResponse, error) {
	return m.registerFunc(ctx, name, email, password)
}

func (m *mockBackendClient) Logout(ctx context.Context, token string) error {
	return m.logoutFunc(ctx, token)
}

func (m *mockBackendClient) Profile(ctx context.Context, token string) (*model.User, error) {
	return m.profileFunc(ctx, token)
}

func (m *mockBackendClient) ForgotPassword(ctx context.Context, email string) (string, error) {
	return m.forgotPasswordFunc(ctx, email)
}

func (m *mockBackendClient) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return m.resetPasswordFunc(ctx, email, code, newPassword)
}

// mockSessionStore はテスト用のインメモリセッションストア。
type mockSessionStore struct {
	token      string
	user       *model.User
	saveCalls  int
	clearCalls int
	saveErr    error
	clearErr   error
}

func (m *mockSessionStore) Token(r *http.Request) string            { return m.token }
func (m *mockSessionStore) User(r *http.Request) *model.User        { return m.user }
func (m *mockSessionStore) TokenFromRequest(r *http.Request) string { return m.token }

func (m *mockSessionStore) Save(w http.ResponseWriter, r *http.Request, token string, user *model.User) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = token
	m.user = user
	return nil
}

func (m *mockSessionStore) SetUser(w http.ResponseWriter, r *http.Request, user *model.User) error {
	m.user = user
	return nil
}

func (m *mockSessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	m.clearCalls++
	if m.clearErr != nil {
		return m.clearErr
	}
	m.token = ""
	m.user = nil
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(client *mockBackendClient, store *mockSessionStore) *Service {
	return NewService(client, store, testLogger())
}

func TestLogin(t *testing.T) {
	client := &mockBackendClient{
		loginFunc: func(ctx context.Context, email, password string) (*apiclient.AuthResponse, error) {
			if email != "a@b.com" || password != "secret1" {
				t.Errorf("unexpected credentials: %s / %s", email, password)
			}
			return &apiclient.AuthResponse{
				User:        model.User{ID: "u1", Email: "a@b.com", Name: "Alice"},
				AccessToken: "tok123",
			}, nil
		},
	}
	store := &mockSessionStore{}
	svc := newTestService(client, store)

	var events []Event
	svc.Subscribe(func(ev Event) { events = append(events, ev) })

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)

	user, err := svc.Login(context.Background(), w, r, "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("user ID = %s, want u1", user.ID)
	}
	if store.token != "tok123" {
		t.Errorf("stored token = %s, want tok123", store.token)
	}
	if store.user == nil || store.user.ID != "u1" {
		t.Error("user identity was not cached in the session")
	}
	if len(events) != 1 || events[0].Type != EventLogin {
		t.Errorf("events = %+v, want single login event", events)
	}
	if events[0].User == nil || events[0].User.ID != "u1" {
		t.Error("login event did not carry the user")
	}
}

func TestLoginFailureLeavesSessionUntouched(t *testing.T) {
	client := &mockBackendClient{
		loginFunc: func(ctx context.Context, email, password string) (*apiclient.AuthResponse, error) {
			return nil, &apiclient.StatusError{Status: 401, Message: "invalid credentials"}
		},
	}
	store := &mockSessionStore{}
	svc := newTestService(client, store)

	var notified bool
	svc.Subscribe(func(ev Event) { notified = true })

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)

	_, err := svc.Login(context.Background(), w, r, "a@b.com", "wrong")
	if err == nil {
		t.Fatal("expected error for rejected credentials")
	}
	if store.saveCalls != 0 {
		t.Error("session was saved despite login failure")
	}
	if notified {
		t.Error("subscribers were notified despite login failure")
	}
}

func TestLoginValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "secret1"},
		{"blank email", "   ", "secret1"},
		{"empty password", "a@b.com", ""},
	}

	client := &mockBackendClient{
		loginFunc: func(ctx context.Context, email, password string) (*apiclient.AuthResponse, error) {
			t.Error("backend should not be called for invalid input")
			return nil, nil
		},
	}
	store := &mockSessionStore{}
	svc := newTestService(client, store)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)

			_, err := svc.Login(context.Background(), w, r, tt.email, tt.password)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Category != model.CategoryValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestLoginMissingToken(t *testing.T) {
	client := &mockBackendClient{
		loginFunc: func(ctx context.Context, email, password string) (*apiclient.AuthResponse, error) {
			return &apiclient.AuthResponse{User: model.User{ID: "u1"}}, nil
		},
	}
	store := &mockSessionStore{}
	svc := newTestService(client, store)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)

	_, err := svc.Login(context.Background(), w, r, "a@b.com", "secret1")
	if err == nil {
		t.Fatal("expected error when backend omits the token")
	}
	if store.saveCalls != 0 {
		t.Error("session was saved without a token")
	}
}

func TestRegister(t *testing.T) {
	client := &mockBackendClient{
		registerFunc: func(ctx context.Context, name, email, password string) (*apiclient.AuthResponse, error) {
			if name != "Alice" {
				t.Errorf("name = %s, want Alice", name)
			}
			return &apiclient.AuthResponse{
				User:        model.User{ID: "u2", Email: email, Name: name},
				AccessToken: "tok456",
			}, nil
		},
	}
	store := &mockSessionStore{}
	svc := newTestService(client, store)

	var events []Event
	svc.Subscribe(func(ev Event) { events = append(events, ev) })

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)

	user, err := svc.Register(context.Background(), w, r, "Alice", "alice@example.com", "secret12")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID != "u2" {
		t.Errorf("user ID = %s, want u2", user.ID)
	}
	if store.token != "tok456" {
		t.Errorf("stored token = %s, want tok456", store.token)
	}
	if len(events) != 1 || events[0].Type != EventRegister {
		t.Errorf("events = %+v, want single register event", events)
	}
}

func TestLogoutClearsSessionEvenWhenBackendFails(t *testing.T) {
	client := &mockBackendClient{
		logoutFunc: func(ctx context.Context, token string) error {
			return errors.New("backend unreachable")
		},
	}
	store := &mockSessionStore{token: "tok123", user: &model.User{ID: "u1"}}
	svc := newTestService(client, store)

	var events []Event
	svc.Subscribe(func(ev Event) { events = append(events, ev) })

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)

	if err := svc.Logout(context.Background(), w, r); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if store.token != "" || store.user != nil {
		t.Error("local session was not cleared")
	}
	if len(events) != 1 || events[0].Type != EventLogout {
		t.Errorf("events = %+v, want single logout event", events)
	}
}

func TestLogoutNotifiesBackendWithToken(t *testing.T) {
	var gotToken string
	client := &mockBackendClient{
		logoutFunc: func(ctx context.Context, token string) error {
			gotToken = token
			return nil
		},
	}
	store := &mockSessionStore{token: "tok123"}
	svc := newTestService(client, store)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)

	if err := svc.Logout(context.Background(), w, r); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if gotToken != "tok123" {
		t.Errorf("backend logout token = %s, want tok123", gotToken)
	}
}

func TestLogoutIdempotent(t *testing.T) {
	client := &mockBackendClient{
		logoutFunc: func(ctx context.Context, token string) error {
			t.Error("backend should not be called without a token")
			return nil
		},
	}
	store := &mockSessionStore{}
	svc := newTestService(client, store)

	var notified bool
	svc.Subscribe(func(ev Event) { notified = true })

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)

	if err := svc.Logout(context.Background(), w, r); err != nil {
		t.Fatalf("Logout on empty session failed: %v", err)
	}
	if notified {
		t.Error("subscribers were notified for a no-op logout")
	}
}

func TestForceLogout(t *testing.T) {
	store := &mockSessionStore{token: "tok123", user: &model.User{ID: "u1"}}
	svc := newTestService(&mockBackendClient{}, store)

	var events []Event
	svc.Subscribe(func(ev Event) { events = append(events, ev) })

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/documents", nil)

	svc.ForceLogout(w, r)

	if store.token != "" {
		t.Error("session was not cleared")
	}
	if len(events) != 1 || events[0].Type != EventForcedLogout {
		t.Errorf("events = %+v, want single forced_logout event", events)
	}
}

func TestRefreshProfile(t *testing.T) {
	client := &mockBackendClient{
		profileFunc: func(ctx context.Context, token string) (*model.User, error) {
			if token != "tok123" {
				t.Errorf("token = %s, want tok123", token)
			}
			return &model.User{ID: "u1", Email: "a@b.com", Name: "Alice Updated"}, nil
		},
	}
	store := &mockSessionStore{token: "tok123", user: &model.User{ID: "u1", Name: "Alice"}}
	svc := newTestService(client, store)

	var events []Event
	svc.Subscribe(func(ev Event) { events = append(events, ev) })

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)

	user, err := svc.RefreshProfile(context.Background(), w, r)
	if err != nil {
		t.Fatalf("RefreshProfile failed: %v", err)
	}
	if user.Name != "Alice Updated" {
		t.Errorf("name = %s, want Alice Updated", user.Name)
	}
	if store.user.Name != "Alice Updated" {
		t.Error("cached identity was not updated")
	}
	if len(events) != 1 || events[0].Type != EventProfileRefresh {
		t.Errorf("events = %+v, want single profile_refresh event", events)
	}
}

func TestRefreshProfileWithoutSession(t *testing.T) {
	svc := newTestService(&mockBackendClient{}, &mockSessionStore{})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)

	_, err := svc.RefreshProfile(context.Background(), w, r)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Category != model.CategoryAuth {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestResetPasswordValidation(t *testing.T) {
	svc := newTestService(&mockBackendClient{}, &mockSessionStore{})

	err := svc.ResetPassword(context.Background(), "a@b.com", "code1", "short")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Category != model.CategoryValidation {
		t.Errorf("expected validation error for short password, got %v", err)
	}
}

func TestSubscribeMultiple(t *testing.T) {
	client := &mockBackendClient{
		loginFunc: func(ctx context.Context, email, password string) (*apiclient.AuthResponse, error) {
			return &apiclient.AuthResponse{User: model.User{ID: "u1"}, AccessToken: "tok123"}, nil
		},
	}
	svc := newTestService(client, &mockSessionStore{})

	var first, second int
	svc.Subscribe(func(ev Event) { first++ })
	svc.Subscribe(func(ev Event) { second++ })

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)

	if _, err := svc.Login(context.Background(), w, r, "a@b.com", "secret1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if first != 1 || second != 1 {
		t.Errorf("subscriber calls = %d, %d; want 1, 1", first, second)
	}
}
