package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"automarket/http-server/action"
	getadmin "automarket/http-server/admin/get"
	generate_excel "automarket/http-server/generate-report/generate-excel"
	"automarket/http-server/health"
	getoffers "automarket/http-server/offers/get"
	getorders "automarket/http-server/orders/get"
	"automarket/http-server/telegram/webhook"
	"automarket/internal/config"
	"automarket/internal/middleware/auth"
	"automarket/internal/service"
	report "automarket/internal/service/generate-excel"
	"automarket/internal/storage/mysql"
)

func routes(cfg config.Config, log *slog.Logger, storage *mysql.Storage, svc *service.MarketService, genService *report.GenerateExcelService, metricsHandler http.Handler) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// Старый единый адрес фронта: действия POST, выгрузка и проверка GET.
	router.Get("/exec", action.Query(log, svc))
	router.Post("/exec", action.Exec(log, svc))

	router.Get("/api/orders", getorders.GetOrders(log, svc))
	router.Get("/api/orders/{id}", getorders.GetOrder(log, svc))
	router.Get("/api/offers/my", getoffers.GetMyOffers(log, svc))

	router.Post("/api/telegram/webhook", webhook.Webhook(log, cfg.Telegram.WebhookSecret, svc))

	router.Get("/health", health.Health(log, storage))
	router.Handle("/metrics", metricsHandler)

	adminRouter := chi.NewRouter()
	adminRouter.Use(auth.BasicAuth(cfg.AdminLogin, cfg.AdminPass))

	adminRouter.Get("/report/excel", generate_excel.GenerateReportExcel(log, genService))
	adminRouter.Get("/logs", getadmin.GetActionLogs(log, storage))
	adminRouter.Get("/subscribers", getadmin.GetSubscribers(log, storage))

	router.Mount("/api/admin", adminRouter)

	frontendDir := cfg.FrontendDir
	if _, err := os.Stat(frontendDir); err != nil {
		log.Warn("Папка фронтенда не найдена, статика не отдаётся", "path", frontendDir)
		return router
	}

	fileServer := http.StripPrefix("/", http.FileServer(http.Dir(frontendDir)))

	router.Handle("/assets/*", fileServer)
	router.Handle("/js/*", fileServer)
	router.Handle("/css/*", fileServer)
	router.Handle("/img/*", fileServer)

	router.With(auth.BasicAuth(cfg.AdminLogin, cfg.AdminPass)).Handle("/admin/*",
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, filepath.Join(frontendDir, "index.html"))
		}),
	)

	// SPA: существующий файл отдаём как есть, остальное на index.html
	router.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(frontendDir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}
		http.ServeFile(w, r, filepath.Join(frontendDir, "index.html"))
	})

	return router
}
