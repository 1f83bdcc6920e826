package apiclient

import (
	"context"
	"net/url"
	"strconv"

	"github.com/hitoshi/docshelf/internal/model"
)

// AuditLogOptions は監査ログ一覧取得のクエリパラメータ。
type AuditLogOptions struct {
	Page       int
	Limit      int
	Search     string
	Filter     string // アクション種別フィルタ。"all"または空は全件
	DocumentID string
}

// ListAuditLogs は現在のユーザーの監査ログ一覧をページネーション付きで取得する。
// pageとlimitは常に送信し、search・filter・documentIdは指定時のみ付与する。
func (c *Client) ListAuditLogs(ctx context.Context, token string, opts AuditLogOptions) (*model.AuditLogList, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(opts.Page))
	q.Set("limit", strconv.Itoa(opts.Limit))
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Filter != "" && opts.Filter != "all" {
		q.Set("filter", opts.Filter)
	}
	if opts.DocumentID != "" {
		q.Set("documentId", opts.DocumentID)
	}

	var list model.AuditLogList
	if err := c.getJSON(ctx, "/audit-logs/user", token, q, &list); err != nil {
		return nil, err
	}
	return &list, nil
}
