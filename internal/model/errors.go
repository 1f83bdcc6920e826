package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, document, network, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラーカテゴリ
const (
	CategoryAuth       = "auth"
	CategoryValidation = "validation"
	CategoryDocument   = "document"
	CategoryNetwork    = "network"
	CategorySystem     = "system"
)

// 定義済みエラーコード
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeUploadTooLarge     = "UPLOAD_TOO_LARGE"
	ErrCodeDocumentNotFound   = "DOCUMENT_NOT_FOUND"
	ErrCodeShareLinkFailed    = "SHARE_LINK_FAILED"
	ErrCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrCodeBackendRejected    = "BACKEND_REJECTED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: CategoryAuth,
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
// バックエンドがメッセージを返した場合はそれを優先する。
func NewInvalidCredentialsError(backendMessage string) *APIError {
	msg := "メールアドレスまたはパスワードが正しくありません。"
	if backendMessage != "" {
		msg = backendMessage
	}
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  msg,
		Category: CategoryAuth,
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: CategoryValidation,
		Action:   "入力内容を修正して再度お試しください。",
	}
}

// NewUploadTooLargeError はアップロードサイズ超過エラーを生成する。
func NewUploadTooLargeError(size, limit int64) *APIError {
	return &APIError{
		Code:     ErrCodeUploadTooLarge,
		Message:  fmt.Sprintf("ファイルサイズが上限を超えています: %dバイト（上限 %dバイト）", size, limit),
		Category: CategoryValidation,
		Action:   "10MB以下のファイルを選択してください。",
	}
}

// NewDocumentNotFoundError はドキュメント未検出エラーを生成する。
func NewDocumentNotFoundError(documentID string) *APIError {
	return &APIError{
		Code:     ErrCodeDocumentNotFound,
		Message:  fmt.Sprintf("指定されたドキュメントが見つかりません: %s", documentID),
		Category: CategoryDocument,
		Action:   "ドキュメント一覧を再読み込みしてください。",
	}
}

// NewShareLinkFailedError は共有リンク生成失敗エラーを生成する。
func NewShareLinkFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeShareLinkFailed,
		Message:  "共有リンクの生成に失敗しました。",
		Category: CategoryDocument,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewBackendUnavailableError はバックエンド疎通不能エラーを生成する。
// ネットワーク障害などレスポンス自体が受信できなかった場合に使用する。
func NewBackendUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeBackendUnavailable,
		Message:  "サーバーに接続できませんでした。",
		Category: CategoryNetwork,
		Action:   "ネットワーク接続を確認して再度お試しください。",
	}
}

// NewBackendRejectedError はバックエンドの非2xxレスポンスを表すエラーを生成する。
// バックエンドがメッセージを返した場合はそれを優先する。
func NewBackendRejectedError(backendMessage string) *APIError {
	msg := "リクエストの処理に失敗しました。"
	if backendMessage != "" {
		msg = backendMessage
	}
	return &APIError{
		Code:     ErrCodeBackendRejected,
		Message:  msg,
		Category: CategoryDocument,
		Action:   "内容を確認して再度お試しください。",
	}
}
