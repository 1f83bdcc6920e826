package apiclient

import (
	"context"
	"net/http"

	"github.com/hitoshi/docshelf/internal/model"
)

// loginRequest はPOST /auth/loginのリクエストボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registerRequest はPOST /auth/registerのリクエストボディ。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// forgotPasswordRequest はPOST /auth/forgot-passwordのリクエストボディ。
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// resetPasswordRequest はPOST /auth/reset-passwordのリクエストボディ。
type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// AuthResponse はログイン・登録成功時のレスポンス。
// トークンのキー名はバックエンドのバージョンによりaccessTokenとtokenの揺れがある。
type AuthResponse struct {
	User        model.User `json:"user"`
	AccessToken string     `json:"accessToken"`
	Token       string     `json:"token"`
}

// BearerToken は発行されたベアラートークンを返す。
// accessTokenを優先し、無ければtokenにフォールバックする。
func (r *AuthResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

// messageResponse はメッセージのみのレスポンスボディ。
type messageResponse struct {
	Message string `json:"message"`
}

// Login は認証情報をバックエンドに送信し、トークンとユーザー情報を受け取る。
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.postJSON(ctx, "/auth/login", "", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register は新規ユーザーを登録し、トークンとユーザー情報を受け取る。
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.postJSON(ctx, "/auth/register", "", registerRequest{Name: name, Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout はバックエンドにログアウトを通知する。
// ベストエフォート呼び出しで、失敗してもローカルのセッション破棄は妨げない
// （その判断は呼び出し元が行う）。
func (c *Client) Logout(ctx context.Context, token string) error {
	_, _, err := c.do(ctx, http.MethodPost, "/auth/logout", token, nil, "", nil)
	return err
}

// Profile は現在のユーザープロフィールを取得する。
func (c *Client) Profile(ctx context.Context, token string) (*model.User, error) {
	var user model.User
	if err := c.getJSON(ctx, "/users/profile", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ForgotPassword はパスワードリセットコードの送信を依頼する。
// バックエンドが返した案内メッセージを返す。
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp messageResponse
	if err := c.postJSON(ctx, "/auth/forgot-password", "", forgotPasswordRequest{Email: email}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ResetPassword はリセットコードを使ってパスワードを再設定する。
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	return c.postJSON(ctx, "/auth/reset-password", "", resetPasswordRequest{
		Email:       email,
		Code:        code,
		NewPassword: newPassword,
	}, nil)
}
