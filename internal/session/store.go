// Package session はブラウザセッションに紐づくトークン保管を提供する。
//
// 正準の保管先は署名付きセッションCookie内の単一キー（accessToken）で、
// Edge Guardの存在チェック用にauth_tokenミラーCookieへ複製する。
// トークンの検証はこのレイヤーでは一切行わず、バックエンドに委ねる。
package session

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/hitoshi/docshelf/internal/model"
)

const (
	// sessionName はセッションCookieの名前。
	sessionName = "docshelf_session"

	// GuardCookieName はEdge Guardが存在チェックに使用するミラーCookieの名前。
	GuardCookieName = "auth_token"

	// セッション値のキー。トークンの正準キーはaccessTokenの1つのみ。
	tokenKey     = "accessToken"
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
	userRoleKey  = "userRole"
)

// Options はCookieの属性設定。
type Options struct {
	MaxAge int // 秒。スペック上の既定は1日（86400）
	Secure bool
	Domain string
}

// Store はセッションCookieへのトークンとユーザー識別情報の読み書きを行う。
// すべてのメソッドはセッションが存在しない状態でも安全に呼び出せる。
type Store struct {
	cookies *sessions.CookieStore
	opts    Options
}

// NewStore はStoreを生成する。secretはCookie署名鍵。
func NewStore(secret string, opts Options) *Store {
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   opts.MaxAge,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Store{
		cookies: cs,
		opts:    opts,
	}
}

// Token は保存されたベアラートークンを返す。
// セッションが存在しない、または復号できない場合は空文字列を返す（失敗しない）。
func (s *Store) Token(r *http.Request) string {
	sess, err := s.cookies.Get(r, sessionName)
	if err != nil || sess == nil {
		return ""
	}
	token, _ := sess.Values[tokenKey].(string)
	return token
}

// User はセッションにキャッシュされたユーザー識別情報を返す。
// キャッシュが存在しない場合はnilを返す。
func (s *Store) User(r *http.Request) *model.User {
	sess, err := s.cookies.Get(r, sessionName)
	if err != nil || sess == nil {
		return nil
	}
	id, _ := sess.Values[userIDKey].(string)
	if id == "" {
		return nil
	}
	email, _ := sess.Values[userEmailKey].(string)
	name, _ := sess.Values[userNameKey].(string)
	role, _ := sess.Values[userRoleKey].(string)
	return &model.User{
		ID:    id,
		Email: email,
		Name:  name,
		Role:  role,
	}
}

// Save はトークンとユーザー識別情報をセッションに書き込み、
// ミラーCookieを設定する。ログイン・登録成功時に呼ばれる。
func (s *Store) Save(w http.ResponseWriter, r *http.Request, token string, user *model.User) error {
	sess, _ := s.cookies.Get(r, sessionName)
	sess.Values[tokenKey] = token
	setUserValues(sess, user)

	if err := sess.Save(r, w); err != nil {
		return err
	}

	s.setGuardCookie(w, token, s.opts.MaxAge)
	return nil
}

// SetUser はキャッシュ済みユーザー識別情報のみを更新する。
// プロフィール再取得時に使用する。トークンは変更しない。
func (s *Store) SetUser(w http.ResponseWriter, r *http.Request, user *model.User) error {
	sess, _ := s.cookies.Get(r, sessionName)
	setUserValues(sess, user)
	return sess.Save(r, w)
}

// Clear はセッションとミラーCookieの両方を破棄する。
// 既にクリア済みの状態で呼んでも何もせず成功する（冪等）。
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.cookies.Get(r, sessionName)

	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1

	if err := sess.Save(r, w); err != nil {
		return err
	}

	s.setGuardCookie(w, "", -1)
	return nil
}

// TokenFromRequest はリクエストからベアラートークンを解決する。
// Authorizationヘッダーを優先し、次にセッション、最後にミラーCookieを参照する。
// ビューがヘッダーで直接トークンを送るケースとCookieセッションの両方に対応する。
func (s *Store) TokenFromRequest(r *http.Request) string {
	if token := BearerFromHeader(r); token != "" {
		return token
	}
	if token := s.Token(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(GuardCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// BearerFromHeader はAuthorizationヘッダーからベアラートークンを取り出す。
// ヘッダーが無い、またはBearer形式でない場合は空文字列を返す。
func BearerFromHeader(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

// setGuardCookie はEdge Guard用ミラーCookieを設定または破棄する。
func (s *Store) setGuardCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuardCookieName,
		Value:    token,
		Path:     "/",
		Domain:   s.opts.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func setUserValues(sess *sessions.Session, user *model.User) {
	if user == nil {
		return
	}
	sess.Values[userIDKey] = user.ID
	sess.Values[userEmailKey] = user.Email
	sess.Values[userNameKey] = user.Name
	sess.Values[userRoleKey] = user.Role
}
