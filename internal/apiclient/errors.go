package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError はバックエンドが非2xxレスポンスを返したことを表す。
// レスポンスボディにメッセージが含まれていた場合はMessageに抽出される。
type StatusError struct {
	Status  int    // HTTPステータスコード
	Code    string // バックエンドが返したエラーコード（存在する場合）
	Message string // バックエンドが返したメッセージ（存在する場合）
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("バックエンドAPIがステータス %d を返しました: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("バックエンドAPIがステータス %d を返しました", e.Status)
}

// IsAuth はトークン拒否（401/403）かどうかを返す。
// trueの場合、呼び出し元はセッションをクリアしなければならない。
func (e *StatusError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// TransportError はレスポンスを受信できなかったネットワーク障害を表す。
type TransportError struct {
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *TransportError) Error() string {
	return fmt.Sprintf("バックエンドAPIへの接続に失敗しました: %v", e.Err)
}

// Unwrap はラップされた元のエラーを返す。
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAuthError はerrがトークン拒否（401/403）のStatusErrorかどうかを返す。
func IsAuthError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.IsAuth()
}

// IsTransportError はerrがTransportErrorかどうかを返す。
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
