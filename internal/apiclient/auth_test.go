package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogin_SendsCredentialsAndReturnsTokenAndUser(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user":{"id":"u1","email":"a@b.com","name":"A"},"accessToken":"tok123"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	resp, err := c.Login(context.Background(), "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if gotPath != "/auth/login" {
		t.Errorf("path = %q, want %q", gotPath, "/auth/login")
	}
	if gotBody["email"] != "a@b.com" || gotBody["password"] != "secret1" {
		t.Errorf("body = %v, want email/password fields", gotBody)
	}
	if resp.BearerToken() != "tok123" {
		t.Errorf("BearerToken() = %q, want %q", resp.BearerToken(), "tok123")
	}
	if resp.User.ID != "u1" {
		t.Errorf("User.ID = %q, want %q", resp.User.ID, "u1")
	}
}

func TestLogin_InvalidCredentials_ReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid credentials"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	_, err := c.Login(context.Background(), "a@b.com", "wrong")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	se, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("error type = %T, want *StatusError", err)
	}
	if se.Message != "Invalid credentials" {
		t.Errorf("Message = %q, want backend message", se.Message)
	}
}

func TestAuthResponse_BearerToken_FallsBackToTokenKey(t *testing.T) {
	resp := &AuthResponse{Token: "legacy-tok"}
	if got := resp.BearerToken(); got != "legacy-tok" {
		t.Errorf("BearerToken() = %q, want %q", got, "legacy-tok")
	}

	resp = &AuthResponse{AccessToken: "tok-a", Token: "tok-b"}
	if got := resp.BearerToken(); got != "tok-a" {
		t.Errorf("BearerToken() = %q, want accessToken to take precedence", got)
	}
}

func TestRegister_SendsAllFields(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user":{"id":"u2","email":"c@d.com","name":"C"},"accessToken":"tok456"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	resp, err := c.Register(context.Background(), "C", "c@d.com", "password8")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if gotBody["name"] != "C" || gotBody["email"] != "c@d.com" || gotBody["password"] != "password8" {
		t.Errorf("body = %v, want name/email/password fields", gotBody)
	}
	if resp.User.ID != "u2" {
		t.Errorf("User.ID = %q, want %q", resp.User.ID, "u2")
	}
}

func TestLogout_SendsTokenAsBearer(t *testing.T) {
	var gotAuth, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	if err := c.Logout(context.Background(), "tok123"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok123")
	}
}

func TestProfile_ReturnsUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/profile" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/users/profile")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"u1","email":"a@b.com","name":"A","role":"admin"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	user, err := c.Profile(context.Background(), "tok123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID != "u1" || user.Role != "admin" {
		t.Errorf("user = %+v, want id=u1 role=admin", user)
	}
}

func TestForgotPassword_ReturnsBackendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"reset code sent"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	msg, err := c.ForgotPassword(context.Background(), "a@b.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if msg != "reset code sent" {
		t.Errorf("message = %q, want %q", msg, "reset code sent")
	}
}

func TestResetPassword_SendsCodeAndNewPassword(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	if err := c.ResetPassword(context.Background(), "a@b.com", "123456", "newpassword"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotBody["email"] != "a@b.com" || gotBody["code"] != "123456" || gotBody["newPassword"] != "newpassword" {
		t.Errorf("body = %v, want email/code/newPassword fields", gotBody)
	}
}
