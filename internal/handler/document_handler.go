package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/docshelf/internal/apiclient"
	"github.com/hitoshi/docshelf/internal/model"
	"github.com/hitoshi/docshelf/internal/security"
)

const (
	// defaultDocumentsPerPage はドキュメント一覧の1ページあたりのデフォルト件数。
	defaultDocumentsPerPage = 10
	// shareLinkTTL は共有リンクの有効期間。
	shareLinkTTL = 30 * 24 * time.Hour
)

// DocumentServiceInterface はドキュメントハンドラーが必要とするバックエンドAPIのインターフェース。
type DocumentServiceInterface interface {
	ListDocuments(ctx context.Context, token string, opts apiclient.ListOptions) (*model.DocumentList, error)
	GetDocument(ctx context.Context, token, documentID string) (*model.Document, error)
	UploadDocument(ctx context.Context, token string, up apiclient.Upload) (*model.Document, error)
	DeleteDocument(ctx context.Context, token, documentID string) error
	ListAccessLinks(ctx context.Context, token, documentID string) ([]model.AccessLink, error)
	CreateAccessLink(ctx context.Context, token, documentID string, expiresAt time.Time) (*model.AccessLink, error)
}

// UploadRecorder はアップロードサイズのメトリクス記録インターフェース。
type UploadRecorder interface {
	RecordUploadBytes(size int64)
}

// DocumentHandler はドキュメント管理のHTTPハンドラー。
type DocumentHandler struct {
	service        DocumentServiceInterface
	sanitizer      security.TextSanitizerService
	sessions       SessionInvalidator
	recorder       BackendErrorRecorder
	uploadRecorder UploadRecorder
	maxUploadSize  int64
}

// NewDocumentHandler はDocumentHandlerを生成する。
func NewDocumentHandler(
	service DocumentServiceInterface,
	sanitizer security.TextSanitizerService,
	sessions SessionInvalidator,
	recorder BackendErrorRecorder,
	uploadRecorder UploadRecorder,
	maxUploadSize int64,
) *DocumentHandler {
	return &DocumentHandler{
		service:        service,
		sanitizer:      sanitizer,
		sessions:       sessions,
		recorder:       recorder,
		uploadRecorder: uploadRecorder,
		maxUploadSize:  maxUploadSize,
	}
}

// shareLinkResponse は共有リンクのレスポンス。
type shareLinkResponse struct {
	AccessURL   string    `json:"accessUrl"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ListDocuments はドキュメント一覧をページネーション付きで取得する。
// GET /api/documents?page=1&limit=10&search=xxx
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	token := tokenOrFail(w, r)
	if token == "" {
		return
	}

	opts := apiclient.ListOptions{
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", defaultDocumentsPerPage),
		Search: r.URL.Query().Get("search"),
	}

	list, err := h.service.ListDocuments(r.Context(), token, opts)
	if err != nil {
		handleBackendError(w, r, err, h.sessions, h.recorder)
		return
	}

	// バックエンド由来の自由記述テキストはそのまま返さない
	for i := range list.Data {
		list.Data[i].Description = h.sanitizer.SanitizeText(list.Data[i].Description)
	}

	writeJSON(w, http.StatusOK, list)
}

// GetDocument はドキュメント詳細を取得する。
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	token := tokenOrFail(w, r)
	if token == "" {
		return
	}

	documentID := chi.URLParam(r, "id")

	doc, err := h.service.GetDocument(r.Context(), token, documentID)
	if err != nil {
		h.handleDocumentError(w, r, err, documentID)
		return
	}

	doc.Description = h.sanitizer.SanitizeText(doc.Description)
	writeJSON(w, http.StatusOK, doc)
}

// UploadDocument はmultipartで受け取ったファイルをバックエンドに中継する。
// サイズ上限の検査はバックエンドへの送信前にローカルで行う。
// POST /api/documents
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	token := tokenOrFail(w, r)
	if token == "" {
		return
	}

	// multipartのオーバーヘッド分は上限に含めない
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("ファイルが指定されていません"))
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadSize {
		writeAPIErrorResponse(w, http.StatusRequestEntityTooLarge,
			model.NewUploadTooLargeError(header.Size, h.maxUploadSize))
		return
	}

	up := apiclient.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
		Description: h.sanitizer.SanitizeText(r.FormValue("description")),
		Encrypt:     r.FormValue("encrypt") == "true",
		Progress: func(sent, total int64) {
			slog.Debug("upload progress",
				slog.Int64("sent", sent),
				slog.Int64("total", total),
			)
		},
	}

	doc, err := h.service.UploadDocument(r.Context(), token, up)
	if err != nil {
		handleBackendError(w, r, err, h.sessions, h.recorder)
		return
	}

	if h.uploadRecorder != nil {
		h.uploadRecorder.RecordUploadBytes(header.Size)
	}

	writeJSON(w, http.StatusCreated, doc)
}

// DeleteDocument はドキュメントを削除する。
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	token := tokenOrFail(w, r)
	if token == "" {
		return
	}

	documentID := chi.URLParam(r, "id")

	if err := h.service.DeleteDocument(r.Context(), token, documentID); err != nil {
		h.handleDocumentError(w, r, err, documentID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ShareDocument はドキュメントの共有リンクを取得または生成する。
// 有効期限内のリンクが既に存在する場合はそれを再利用し、
// 無ければ有効期限30日の新しいリンクを生成する。
// POST /api/documents/{id}/share
func (h *DocumentHandler) ShareDocument(w http.ResponseWriter, r *http.Request) {
	token := tokenOrFail(w, r)
	if token == "" {
		return
	}

	documentID := chi.URLParam(r, "id")

	link, err := h.resolveShareLink(r.Context(), token, documentID)
	if err != nil {
		var statusErr *apiclient.StatusError
		if errors.As(err, &statusErr) && statusErr.IsAuth() {
			handleBackendError(w, r, err, h.sessions, h.recorder)
			return
		}
		if h.recorder != nil {
			h.recorder.RecordBackendError("status")
		}
		slog.Error("failed to resolve share link",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewShareLinkFailedError())
		return
	}

	writeJSON(w, http.StatusOK, shareLinkResponse{
		AccessURL:   link.AccessURL,
		DownloadURL: link.AccessURL + "?download=true",
		ExpiresAt:   link.ExpiresAt,
	})
}

// resolveShareLink は有効な既存リンクを探し、無ければ新規生成する。
func (h *DocumentHandler) resolveShareLink(ctx context.Context, token, documentID string) (*model.AccessLink, error) {
	links, err := h.service.ListAccessLinks(ctx, token, documentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for i := range links {
		if links[i].ExpiresAt.After(now) {
			return &links[i], nil
		}
	}

	return h.service.CreateAccessLink(ctx, token, documentID, now.Add(shareLinkTTL))
}

// handleDocumentError はドキュメント単体操作のエラーを変換する。
// バックエンドの404はドキュメント未検出エラーにマッピングする。
func (h *DocumentHandler) handleDocumentError(w http.ResponseWriter, r *http.Request, err error, documentID string) {
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
		if h.recorder != nil {
			h.recorder.RecordBackendError("status")
		}
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewDocumentNotFoundError(documentID))
		return
	}

	handleBackendError(w, r, err, h.sessions, h.recorder)
}

// queryInt はクエリパラメータを整数として取得する。
// 未指定または不正な値の場合はデフォルト値を返す。
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}
