// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/docshelf/internal/apiclient"
	"github.com/hitoshi/docshelf/internal/middleware"
	"github.com/hitoshi/docshelf/internal/model"
)

// tokenOrFail はリクエストコンテキストからベアラートークンを取り出す。
// ガードミドルウェアを通過していないリクエストには401を書き込み、空文字を返す。
func tokenOrFail(w http.ResponseWriter, r *http.Request) string {
	token, err := middleware.TokenFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return ""
	}
	return token
}

// SessionInvalidator はトークン拒否時にローカルセッションを破棄するインターフェース。
// auth.Serviceの部分集合として定義する。
type SessionInvalidator interface {
	ForceLogout(w http.ResponseWriter, r *http.Request)
}

// BackendErrorRecorder はバックエンドエラーのメトリクス記録インターフェース。
type BackendErrorRecorder interface {
	RecordBackendError(kind string)
}

// apiErrorResponse はAPIエラーレスポンスのJSONフォーマット。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleBackendError はバックエンドAPI呼び出しのエラーを適切なHTTPレスポンスに変換する。
//
// バックエンドがトークンを拒否した場合（401/403）は、レスポンスを書き込む前に
// ローカルセッションを破棄する。Cookieヘッダーはボディより先に確定する必要があるため、
// この順序を崩してはならない。
func handleBackendError(w http.ResponseWriter, r *http.Request, err error, sessions SessionInvalidator, recorder BackendErrorRecorder) {
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) {
		if recorder != nil {
			recorder.RecordBackendError("status")
		}
		if statusErr.IsAuth() {
			if sessions != nil {
				sessions.ForceLogout(w, r)
			}
			writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
			return
		}
		writeAPIErrorResponse(w, statusErr.Status, model.NewBackendRejectedError(statusErr.Message))
		return
	}

	var transportErr *apiclient.TransportError
	if errors.As(err, &transportErr) {
		if recorder != nil {
			recorder.RecordBackendError("transport")
		}
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewBackendUnavailableError())
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: model.CategorySystem,
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case model.ErrCodeUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case model.ErrCodeDocumentNotFound:
		return http.StatusNotFound
	case model.ErrCodeShareLinkFailed, model.ErrCodeBackendRejected:
		return http.StatusBadGateway
	case model.ErrCodeBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
