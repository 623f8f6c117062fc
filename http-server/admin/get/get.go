package get

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"automarket/internal/storage"
)

type AdminProvider interface {
	ActionLogs(ctx context.Context, limit int) ([]storage.ActionLog, error)
	Subscribers(ctx context.Context) ([]storage.Subscriber, error)
}

// GetActionLogs последние записи журнала действий: ?limit=100.
func GetActionLogs(log *slog.Logger, admin AdminProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.GetActionLogs"

		limit := 100
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 1000 {
				http.Error(w, "Некорректный limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		logs, err := admin.ActionLogs(ctx, limit)
		if err != nil {
			log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("error", err.Error()),
			).Error("ошибка получения журнала действий")
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if logs == nil {
			logs = []storage.ActionLog{}
		}

		render.JSON(w, r, logs)
	}
}

func GetSubscribers(log *slog.Logger, admin AdminProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.GetSubscribers"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		subs, err := admin.Subscribers(ctx)
		if err != nil {
			log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("error", err.Error()),
			).Error("ошибка получения подписчиков")
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if subs == nil {
			subs = []storage.Subscriber{}
		}

		render.JSON(w, r, subs)
	}
}
