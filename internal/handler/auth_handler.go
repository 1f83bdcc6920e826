package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/docshelf/internal/apiclient"
	"github.com/hitoshi/docshelf/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, w http.ResponseWriter, r *http.Request, email, password string) (*model.User, error)
	Register(ctx context.Context, w http.ResponseWriter, r *http.Request, name, email, password string) (*model.User, error)
	Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	ForceLogout(w http.ResponseWriter, r *http.Request)
	CurrentUser(r *http.Request) *model.User
	RefreshProfile(ctx context.Context, w http.ResponseWriter, r *http.Request) (*model.User, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// AuthHandler はセッションライフサイクルのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	recorder BackendErrorRecorder
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, recorder BackendErrorRecorder) *AuthHandler {
	return &AuthHandler{
		service:  service,
		recorder: recorder,
	}
}

// --- リクエスト・レスポンス型 ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type userResponse struct {
	User *model.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login は認証情報をバックエンドに送信し、成功時にセッションを確立する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	user, err := h.service.Login(r.Context(), w, r, req.Email, req.Password)
	if err != nil {
		h.handleCredentialError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// Register は新規ユーザーを登録し、そのままセッションを確立する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	user, err := h.service.Register(r.Context(), w, r, req.Name, req.Email, req.Password)
	if err != nil {
		h.handleCredentialError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{User: user})
}

// Logout はセッションを破棄する。
// セッションが存在しなくても204を返す（冪等）。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), w, r); err != nil {
		slog.Error("failed to logout", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "INTERNAL_ERROR",
			Message:  "ログアウト処理に失敗しました。",
			Category: model.CategorySystem,
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me はセッションにキャッシュされた現在のユーザー識別情報を返す。
// バックエンドへの問い合わせは行わない。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := h.service.CurrentUser(r)
	if user == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// Profile はバックエンドからプロフィールを再取得して返す。
// キャッシュ済みの識別情報もあわせて更新される。
// GET /api/users/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.RefreshProfile(r.Context(), w, r)
	if err != nil {
		handleBackendError(w, r, err, h.service, h.recorder)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// ForgotPassword はパスワードリセットコードの送信を依頼する。
// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	message, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		handleBackendError(w, r, err, nil, h.recorder)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: message})
}

// ResetPassword はリセットコードを使ったパスワード再設定を依頼する。
// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		handleBackendError(w, r, err, nil, h.recorder)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "パスワードを再設定しました。"})
}

// handleCredentialError はログイン・登録の失敗を変換する。
// バックエンドの認証拒否は強制ログアウトの対象ではないため、
// handleBackendErrorとは別に扱う。
func (h *AuthHandler) handleCredentialError(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) && (statusErr.Status == http.StatusUnauthorized || statusErr.Status == http.StatusBadRequest) {
		if h.recorder != nil {
			h.recorder.RecordBackendError("status")
		}
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError(statusErr.Message))
		return
	}

	handleBackendError(w, r, err, nil, h.recorder)
}
