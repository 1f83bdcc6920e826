package apiclient

import (
	"context"
	"net/url"
	"time"

	"github.com/hitoshi/docshelf/internal/model"
)

// createAccessLinkRequest はPOST /access-linksのリクエストボディ。
type createAccessLinkRequest struct {
	DocumentID string `json:"documentId"`
	ExpiresAt  string `json:"expiresAt"`
}

// ListAccessLinks はドキュメントの既存アクセスリンク一覧を取得する。
// リンクが存在しない場合は空スライスを返す。
func (c *Client) ListAccessLinks(ctx context.Context, token, documentID string) ([]model.AccessLink, error) {
	var links []model.AccessLink
	if err := c.getJSON(ctx, "/access-links/document/"+url.PathEscape(documentID), token, nil, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// CreateAccessLink はドキュメントの新しいアクセスリンクを発行する。
func (c *Client) CreateAccessLink(ctx context.Context, token, documentID string, expiresAt time.Time) (*model.AccessLink, error) {
	var link model.AccessLink
	req := createAccessLinkRequest{
		DocumentID: documentID,
		ExpiresAt:  expiresAt.UTC().Format(time.RFC3339),
	}
	if err := c.postJSON(ctx, "/access-links", token, req, &link); err != nil {
		return nil, err
	}
	return &link, nil
}
