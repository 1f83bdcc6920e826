package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/docshelf/internal/apiclient"
	"github.com/hitoshi/docshelf/internal/model"
	"github.com/hitoshi/docshelf/internal/security"
)

// defaultAuditLogsPerPage は監査ログ一覧の1ページあたりのデフォルト件数。
const defaultAuditLogsPerPage = 50

// AuditLogServiceInterface は監査ログハンドラーが必要とするバックエンドAPIのインターフェース。
type AuditLogServiceInterface interface {
	ListAuditLogs(ctx context.Context, token string, opts apiclient.AuditLogOptions) (*model.AuditLogList, error)
}

// AuditLogHandler は監査ログのHTTPハンドラー。
type AuditLogHandler struct {
	service   AuditLogServiceInterface
	sanitizer security.TextSanitizerService
	sessions  SessionInvalidator
	recorder  BackendErrorRecorder
}

// NewAuditLogHandler はAuditLogHandlerを生成する。
func NewAuditLogHandler(service AuditLogServiceInterface, sanitizer security.TextSanitizerService, sessions SessionInvalidator, recorder BackendErrorRecorder) *AuditLogHandler {
	return &AuditLogHandler{
		service:   service,
		sanitizer: sanitizer,
		sessions:  sessions,
		recorder:  recorder,
	}
}

// ListAuditLogs は現在のユーザーの監査ログ一覧を取得する。
// filterはアクション種別による絞り込みで、未指定時は全件を表す。
// GET /api/audit-logs?page=1&limit=50&search=xxx&filter=view&documentId=yyy
func (h *AuditLogHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	token := tokenOrFail(w, r)
	if token == "" {
		return
	}

	opts := apiclient.AuditLogOptions{
		Page:       queryInt(r, "page", 1),
		Limit:      queryInt(r, "limit", defaultAuditLogsPerPage),
		Search:     r.URL.Query().Get("search"),
		Filter:     r.URL.Query().Get("filter"),
		DocumentID: r.URL.Query().Get("documentId"),
	}

	list, err := h.service.ListAuditLogs(r.Context(), token, opts)
	if err != nil {
		handleBackendError(w, r, err, h.sessions, h.recorder)
		return
	}

	// User-Agentはクライアント由来の自由記述テキストのため、ブラウザに返す前にサニタイズする
	for i := range list.Data {
		list.Data[i].UserAgent = h.sanitizer.SanitizeText(list.Data[i].UserAgent)
	}

	writeJSON(w, http.StatusOK, list)
}
