// Package apiclient はドキュメント管理バックエンドAPIのHTTPクライアントを提供する。
//
// すべてのリクエストは保持中のトークンが空でない場合のみ
// Authorization: Bearerヘッダーを付与する（空のときはヘッダー自体を送らない）。
// 非2xxレスポンスは常に*StatusErrorとして返し、ボディの素通しはしない。
// レスポンスを受信できなかった場合は*TransportErrorを返す。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Client はバックエンドAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用に差し替え可能
}

// New はClientの新しいインスタンスを生成する。
// baseURL末尾のスラッシュは除去される。
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// errorBody はバックエンドのエラーレスポンスボディの形。
// messageとerrorのどちらのキーで返るかがエンドポイントにより揺れるため両方を受ける。
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// do はHTTPリクエストを実行し、ボディとContent-Typeを返す。
// token が空でない場合のみAuthorizationヘッダーを付与する。
func (c *Client) do(ctx context.Context, method, endpoint, token string, query url.Values, contentType string, body io.Reader) ([]byte, string, error) {
	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("バックエンドAPIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &TransportError{Err: err}
	}

	respContentType := resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Status: resp.StatusCode}
		if isJSON(respContentType) {
			var eb errorBody
			if jsonErr := json.Unmarshal(data, &eb); jsonErr == nil {
				se.Code = eb.Code
				if eb.Message != "" {
					se.Message = eb.Message
				} else {
					se.Message = eb.Error
				}
			}
		}
		c.logger.Warn("バックエンドAPIがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, "", se
	}

	return data, respContentType, nil
}

// getJSON はGETリクエストを実行し、JSONレスポンスをoutにデコードする。
func (c *Client) getJSON(ctx context.Context, endpoint, token string, query url.Values, out any) error {
	data, contentType, err := c.do(ctx, http.MethodGet, endpoint, token, query, "", nil)
	if err != nil {
		return err
	}
	return decodeJSON(endpoint, data, contentType, out)
}

// postJSON はJSONボディ付きのPOSTリクエストを実行する。
// outがnilの場合はレスポンスボディを破棄する。
func (c *Client) postJSON(ctx context.Context, endpoint, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	data, contentType, err := c.do(ctx, http.MethodPost, endpoint, token, nil, "application/json", body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeJSON(endpoint, data, contentType, out)
}

// decodeJSON はContent-TypeがJSONの場合のみoutへデコードする。
// JSON以外のレスポンスをJSONとして期待した場合はエラーを返す。
func decodeJSON(endpoint string, data []byte, contentType string, out any) error {
	if out == nil {
		return nil
	}
	if !isJSON(contentType) {
		return fmt.Errorf("エンドポイント %s のレスポンスがJSONではありません: %s", endpoint, contentType)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// isJSON はContent-TypeがJSONかどうかを判定する。
func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
