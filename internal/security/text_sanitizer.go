// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はバックエンドから受け取った自由記述テキスト
// （ドキュメントの説明、検索キーワードのエコーバックなど）をサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリの厳格ポリシーで、HTMLタグを一切通過させない。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は自由記述テキストのサニタイズ機能のインターフェースを定義する。
// バックエンドレスポンスをクライアントに返す前に使用される。
type TextSanitizerService interface {
	// SanitizeText はテキストからHTMLタグをすべて除去したプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはいかなるタグ・属性も許可しない。
// ドキュメントの説明文は表示上プレーンテキストであるため、
// 許可リスト方式ではなく全除去が正しい挙動となる。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はテキストからHTMLタグをすべて除去したプレーンテキストを返す。
// タグ除去後の前後空白もあわせて除去する。
func (s *textSanitizer) SanitizeText(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
