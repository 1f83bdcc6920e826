package apiclient

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/docshelf/internal/model"
)

// ListOptions はドキュメント一覧取得のクエリパラメータ。
type ListOptions struct {
	Page   int
	Limit  int
	Search string
}

// Upload はドキュメントアップロードの入力。
// Progressが設定されている場合、ボディ送信の進捗ごとに
// （送信済みバイト数, 総バイト数）で呼び出される。
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
	Description string
	Encrypt     bool
	Progress    func(sent, total int64)
}

// ListDocuments はページネーション付きのドキュメント一覧を取得する。
// pageとlimitは常にクエリパラメータとして送信し、searchは空でない場合のみ付与する。
func (c *Client) ListDocuments(ctx context.Context, token string, opts ListOptions) (*model.DocumentList, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(opts.Page))
	q.Set("limit", strconv.Itoa(opts.Limit))
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}

	var list model.DocumentList
	if err := c.getJSON(ctx, "/documents", token, q, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetDocument はドキュメント詳細を取得する。
func (c *Client) GetDocument(ctx context.Context, token, documentID string) (*model.Document, error) {
	var doc model.Document
	if err := c.getJSON(ctx, "/documents/"+url.PathEscape(documentID), token, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UploadDocument はドキュメントをmultipart/form-dataでアップロードする。
// ボディはパイプ経由でストリーミングし、全体をメモリに保持しない。
// サイズ上限の検査は呼び出し元（ハンドラー）がネットワーク送信前に行う。
func (c *Client) UploadDocument(ctx context.Context, token string, up Upload) (*model.Document, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		content := up.Content
		if up.Progress != nil {
			content = &progressReader{
				r:        up.Content,
				total:    up.Size,
				progress: up.Progress,
			}
		}

		part, err := mw.CreateFormFile("file", up.Filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := mw.WriteField("description", up.Description); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := mw.WriteField("encrypt", strconv.FormatBool(up.Encrypt)); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	data, contentType, err := c.do(ctx, http.MethodPost, "/documents", token, nil, mw.FormDataContentType(), pr)
	if err != nil {
		return nil, err
	}

	var doc model.Document
	if err := decodeJSON("/documents", data, contentType, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument はドキュメントを削除する。
func (c *Client) DeleteDocument(ctx context.Context, token, documentID string) error {
	_, _, err := c.do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(documentID), token, nil, "", nil)
	return err
}

// progressReader は読み取り量を集計してコールバックに通知するio.Reader。
type progressReader struct {
	r        io.Reader
	total    int64
	sent     int64
	progress func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.progress(p.sent, p.total)
	}
	return n, err
}
