package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/docshelf/internal/metrics"
	"github.com/hitoshi/docshelf/internal/middleware"
	"github.com/hitoshi/docshelf/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	TokenResolver     middleware.TokenResolver

	// メトリクス
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface

	// ドキュメント
	DocumentService DocumentServiceInterface
	Sanitizer       security.TextSanitizerService
	UploadMaxSize   int64

	// 監査ログ
	AuditLogService AuditLogServiceInterface

	// 静的ファイル配信
	StaticDir string
	LoginPath string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → SecurityHeaders → CORS → Metrics
//
// 認証ルート（/api/auth/*）はAPIガードの外に配置し、
// 認証情報送信系には専用のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}

	var recorder BackendErrorRecorder
	var uploadRecorder UploadRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
		uploadRecorder = deps.Metrics
	}

	authHandler := NewAuthHandler(deps.AuthService, recorder)
	docHandler := NewDocumentHandler(
		deps.DocumentService, deps.Sanitizer, deps.AuthService,
		recorder, uploadRecorder, deps.UploadMaxSize,
	)
	auditHandler := NewAuditLogHandler(deps.AuditLogService, deps.Sanitizer, deps.AuthService, recorder)

	// --- 運用エンドポイント ---

	r.Get("/health", handleHealth)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 認証ルート ---
	// 認証情報を受け取るエンドポイントはブルートフォース対策の専用レート制限つき
	r.Route("/api/auth", func(r chi.Router) {
		credentialLimit := deps.RateLimiter.CredentialMiddleware()

		r.With(credentialLimit).Post("/login", authHandler.Login)
		r.With(credentialLimit).Post("/register", authHandler.Register)
		r.With(credentialLimit).Post("/forgot-password", authHandler.ForgotPassword)
		r.With(credentialLimit).Post("/reset-password", authHandler.ResetPassword)

		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なAPIルート ---
	// ミドルウェアスタック: APIGuard → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAPIGuard(deps.TokenResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ドキュメント管理
		r.Route("/api/documents", func(r chi.Router) {
			r.Get("/", docHandler.ListDocuments)
			r.Post("/", docHandler.UploadDocument)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", docHandler.GetDocument)
				r.Delete("/", docHandler.DeleteDocument)
				r.Post("/share", docHandler.ShareDocument)
			})
		})

		// プロフィール
		r.Get("/api/users/profile", authHandler.Profile)

		// 監査ログ
		r.Get("/api/audit-logs", auditHandler.ListAuditLogs)
	})

	// --- 保護ページと静的ファイル配信 ---
	if deps.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(deps.StaticDir))
		guard := middleware.NewEdgeGuard(deps.TokenResolver, deps.LoginPath)

		r.With(guard).Handle("/dashboard", fileServer)
		r.With(guard).Handle("/dashboard/*", fileServer)
		r.Handle("/*", fileServer)
	}

	return r
}

// handleHealth はプロセスの生存確認エンドポイント。
// バックエンドへの疎通は確認しない。
// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
