// Package auth はセッションライフサイクル管理を提供する。
//
// 認証情報の送信、トークンの保存、ユーザー識別情報のキャッシュ、
// セッション破棄をひとつのサービスに集約し、状態遷移を購読者に通知する。
// セッション状態の保管と破棄はローカル操作（clearLocal）、
// バックエンドへの通知はリモート操作（apiclient側）として明確に分離している。
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/hitoshi/docshelf/internal/apiclient"
	"github.com/hitoshi/docshelf/internal/model"
)

// EventType はセッション状態遷移の種別を表す。
type EventType string

const (
	// EventLogin はログイン成功を示す。
	EventLogin EventType = "login"
	// EventRegister は登録成功を示す。
	EventRegister EventType = "register"
	// EventLogout は明示的なログアウトを示す。
	EventLogout EventType = "logout"
	// EventForcedLogout はバックエンドのトークン拒否による強制ログアウトを示す。
	EventForcedLogout EventType = "forced_logout"
	// EventProfileRefresh はプロフィール再取得による識別情報更新を示す。
	EventProfileRefresh EventType = "profile_refresh"
)

// Event はセッション状態遷移の通知。
// ログアウト系のイベントではUserはnilになる。
type Event struct {
	Type EventType
	User *model.User
}

// BackendClient は認証サービスが必要とするバックエンドAPIのインターフェース。
type BackendClient interface {
	Login(ctx context.Context, email, password string) (*apiclient.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*apiclient.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, token string) (*model.User, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// SessionStore はセッションCookieへの読み書きインターフェース。
type SessionStore interface {
	Token(r *http.Request) string
	User(r *http.Request) *model.User
	TokenFromRequest(r *http.Request) string
	Save(w http.ResponseWriter, r *http.Request, token string, user *model.User) error
	SetUser(w http.ResponseWriter, r *http.Request, user *model.User) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

// Service はセッションライフサイクルのビジネスロジックを提供する。
// 状態遷移をすべてこのサービス経由に集約し、重複した認証実装を持たない。
type Service struct {
	client BackendClient
	store  SessionStore
	logger *slog.Logger

	mu          sync.Mutex
	subscribers []func(Event)
}

// NewService はServiceを生成する。
func NewService(client BackendClient, store SessionStore, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		store:  store,
		logger: logger,
	}
}

// Subscribe はセッション状態遷移の購読者を登録する。
// 通知は登録順に同期的に呼び出される。
func (s *Service) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// notify は全購読者にイベントを通知する。
func (s *Service) notify(ev Event) {
	s.mu.Lock()
	subs := make([]func(Event), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Login は認証情報をバックエンドに送信し、成功時にトークンと
// ユーザー識別情報をセッションに保存する。
// 失敗時はセッションを変更せずエラーを返す。
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, email, password string) (*model.User, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	resp, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token := resp.BearerToken()
	if token == "" {
		return nil, model.NewBackendRejectedError("バックエンドがトークンを返しませんでした")
	}

	if err := s.store.Save(w, r, token, &resp.User); err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", resp.User.ID))
	s.notify(Event{Type: EventLogin, User: &resp.User})
	return &resp.User, nil
}

// Register は新規ユーザーを登録し、成功時にそのままログイン状態にする。
func (s *Service) Register(ctx context.Context, w http.ResponseWriter, r *http.Request, name, email, password string) (*model.User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, model.NewValidationError("名前を入力してください")
	}
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	resp, err := s.client.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}

	token := resp.BearerToken()
	if token == "" {
		return nil, model.NewBackendRejectedError("バックエンドがトークンを返しませんでした")
	}

	if err := s.store.Save(w, r, token, &resp.User); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", resp.User.ID))
	s.notify(Event{Type: EventRegister, User: &resp.User})
	return &resp.User, nil
}

// Logout はバックエンドにログアウトを通知した後、無条件にローカルの
// セッションを破棄する。バックエンド呼び出しはベストエフォートで、
// 失敗してもローカルのクリーンアップは必ず実行される。
// セッションが既に存在しない状態で呼んでも何もせず成功する（冪等）。
func (s *Service) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	token := s.store.TokenFromRequest(r)
	if token == "" {
		// クリア済みセッションの再クリアはno-op
		return s.store.Clear(w, r)
	}

	if err := s.client.Logout(ctx, token); err != nil {
		s.logger.Warn("backend logout failed, clearing local session anyway",
			slog.String("error", err.Error()),
		)
	}

	if err := s.store.Clear(w, r); err != nil {
		return err
	}

	s.notify(Event{Type: EventLogout})
	return nil
}

// ForceLogout はバックエンドがトークンを拒否した際のローカル破棄を行う。
// バックエンドへの通知は行わない（トークンは既に無効）。
// 他のレスポンス処理より先に呼ばれなければならない。
func (s *Service) ForceLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(w, r); err != nil {
		s.logger.Error("failed to clear session on forced logout",
			slog.String("error", err.Error()),
		)
	}
	s.notify(Event{Type: EventForcedLogout})
}

// CurrentUser はセッションにキャッシュされたユーザー識別情報を返す。
// 未ログインの場合はnilを返す。
func (s *Service) CurrentUser(r *http.Request) *model.User {
	return s.store.User(r)
}

// Token はリクエストからベアラートークンを解決する。
func (s *Service) Token(r *http.Request) string {
	return s.store.TokenFromRequest(r)
}

// RefreshProfile はバックエンドからプロフィールを再取得し、
// キャッシュ済み識別情報を更新する。
// トークンが拒否された場合は呼び出し元がForceLogoutを実行する。
func (s *Service) RefreshProfile(ctx context.Context, w http.ResponseWriter, r *http.Request) (*model.User, error) {
	token := s.store.TokenFromRequest(r)
	if token == "" {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.client.Profile(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetUser(w, r, user); err != nil {
		return nil, err
	}

	s.notify(Event{Type: EventProfileRefresh, User: user})
	return user, nil
}

// ForgotPassword はパスワードリセットコードの送信をバックエンドに依頼する。
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", model.NewValidationError("メールアドレスを入力してください")
	}
	return s.client.ForgotPassword(ctx, email)
}

// ResetPassword はリセットコードを使ったパスワード再設定をバックエンドに依頼する。
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(code) == "" {
		return model.NewValidationError("メールアドレスとリセットコードを入力してください")
	}
	if len(newPassword) < 8 {
		return model.NewValidationError("パスワードは8文字以上で入力してください")
	}
	return s.client.ResetPassword(ctx, email, code, newPassword)
}

// validateCredentials はログイン・登録共通の入力検証を行う。
// あくまで事前チェックであり、正当性の最終判断はバックエンドが行う。
func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return model.NewValidationError("メールアドレスを入力してください")
	}
	if password == "" {
		return model.NewValidationError("パスワードを入力してください")
	}
	return nil
}
