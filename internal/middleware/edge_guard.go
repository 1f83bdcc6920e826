// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/docshelf/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// tokenContextKey はリクエストコンテキストにベアラートークンを格納するためのキー。
var tokenContextKey = contextKey("access_token")

// TokenResolver はリクエストからセッショントークンを解決するインターフェース。
// session.Storeの部分集合として定義する。
type TokenResolver interface {
	TokenFromRequest(r *http.Request) string
}

// NewEdgeGuard は保護ページへのアクセスをトークンの存在有無で判定する
// ミドルウェアを返す。トークンが無い場合はログインページへリダイレクトする。
// トークンの正当性検証は行わない。無効なトークンはバックエンドが
// 最初のAPIリクエストで拒否し、その時点でセッションが破棄される。
func NewEdgeGuard(resolver TokenResolver, loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := resolver.TokenFromRequest(r)
			if token == "" {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewAPIGuard は保護APIへのアクセスをトークンの存在有無で判定する
// ミドルウェアを返す。トークンが無い場合は401を統一フォーマットで返す。
// 解決したトークンをリクエストコンテキストに注入する。
func NewAPIGuard(resolver TokenResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := resolver.TokenFromRequest(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), tokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromContext はリクエストコンテキストからベアラートークンを取得する。
// ガードミドルウェアを通過したリクエストでのみ有効。
func TokenFromContext(ctx context.Context) (string, error) {
	token, ok := ctx.Value(tokenContextKey).(string)
	if !ok || token == "" {
		return "", fmt.Errorf("access token not found in context")
	}
	return token, nil
}

// ContextWithToken はコンテキストにベアラートークンを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}
