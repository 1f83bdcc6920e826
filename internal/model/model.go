// Package model はドメインモデルを定義する。
// バックエンドAPIのワイヤーフォーマット（camelCaseのJSON）をそのまま写した型を持つ。
package model

import "time"

// User はログイン中のユーザーの識別情報を表す。
// Roleはバックエンドが返す場合のみ設定される参考情報で、
// このレイヤーでは認可判断に使用しない。
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

// Document はバックエンドが管理するドキュメントのメタデータを表す。
type Document struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	Description  string `json:"description"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	Path         string `json:"path"`
	Hash         string `json:"hash"`
	EncryptionIV string `json:"encryptionIv"`
	IsEncrypted  bool   `json:"isEncrypted"`
	OwnerID      string `json:"ownerId"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// AuditLog はドキュメント操作の監査ログエントリを表す。
type AuditLog struct {
	ID           string  `json:"id"`
	Action       string  `json:"action"`
	UserID       string  `json:"userId"`
	AccessLinkID *string `json:"accessLinkId"`
	IPAddress    string  `json:"ipAddress"`
	UserAgent    string  `json:"userAgent"`
	Timestamp    string  `json:"timestamp"`
	DocumentID   *string `json:"documentId"`
}

// AccessLink はドキュメント共有用のアクセスリンクを表す。
type AccessLink struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	AccessURL  string    `json:"accessUrl"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// PageMeta はページネーション付き一覧レスポンスのメタ情報を表す。
type PageMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// DocumentList はドキュメント一覧のレスポンスエンベロープ。
type DocumentList struct {
	Data []Document `json:"data"`
	Meta PageMeta   `json:"meta"`
}

// AuditLogList は監査ログ一覧のレスポンスエンベロープ。
type AuditLogList struct {
	Data []AuditLog `json:"data"`
	Meta PageMeta   `json:"meta"`
}
