package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"automarket/http-server/apierr"
	"automarket/internal/service"
	"automarket/internal/service/market"
	"automarket/internal/storage"
)

const maxLimit = 500

type OrdersProvider interface {
	ListOrders(ctx context.Context, q service.OrderQuery) ([]market.OrderView, error)
	GetOrder(ctx context.Context, id int64, role storage.Role, supplier string) (market.OrderView, error)
}

type ResponseOrders struct {
	Orders []market.OrderView `json:"orders"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// GetOrders список заказов в представлении роли: ?role=admin|client|supplier&phone=&supplier=&q=&open=1&limit=&offset=
func GetOrders(log *slog.Logger, provider OrdersProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.orders.GetOrders"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		query := r.URL.Query()

		limit, err := intParam(query.Get("limit"), 100)
		if err != nil || limit > maxLimit {
			http.Error(w, "Некорректный limit", http.StatusBadRequest)
			return
		}
		offset, err := intParam(query.Get("offset"), 0)
		if err != nil {
			http.Error(w, "Некорректный offset", http.StatusBadRequest)
			return
		}

		q := service.OrderQuery{
			Role:     roleParam(query.Get("role")),
			Phone:    query.Get("phone"),
			Supplier: query.Get("supplier"),
			OnlyOpen: query.Get("open") == "1" || query.Get("open") == "true",
			Search:   query.Get("q"),
			Limit:    limit,
			Offset:   offset,
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		orders, err := provider.ListOrders(ctx, q)
		if err != nil {
			log.Error("не удалось получить заказы", slog.String("error", err.Error()))
			writeError(w, r, err)
			return
		}
		if orders == nil {
			orders = []market.OrderView{}
		}

		render.JSON(w, r, ResponseOrders{Orders: orders, Limit: limit, Offset: offset})
	}
}

// GetOrder заказ с предложениями. Поставщик видит только своё предложение.
func GetOrder(log *slog.Logger, provider OrdersProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.orders.GetOrder"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "Некорректный номер заказа", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		view, err := provider.GetOrder(ctx, id, roleParam(r.URL.Query().Get("role")), r.URL.Query().Get("supplier"))
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				log.Info("заказ не найден", slog.Int64("id", id))
			} else {
				log.Error("не удалось получить заказ", slog.Int64("id", id), slog.String("error", err.Error()))
			}
			writeError(w, r, err)
			return
		}

		render.JSON(w, r, view)
	}
}

func roleParam(s string) storage.Role {
	if s == "" {
		return storage.RoleAdmin
	}
	return storage.Role(s)
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid number")
	}
	return n, nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, apierr.Status(err))
	render.JSON(w, r, apierr.Response{Error: apierr.Message(err)})
}
