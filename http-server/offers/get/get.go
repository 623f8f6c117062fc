package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"automarket/http-server/apierr"
	"automarket/internal/service/market"
)

type SupplierOffers interface {
	SupplierOffers(ctx context.Context, supplier string) ([]market.OrderView, error)
}

// GetMyOffers заказы, по которым поставщик подал предложения, со статусом его предложения.
func GetMyOffers(log *slog.Logger, offers SupplierOffers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.offers.GetMyOffers"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		supplier := r.URL.Query().Get("supplier")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		views, err := offers.SupplierOffers(ctx, supplier)
		if err != nil {
			log.Error("не удалось получить предложения поставщика",
				slog.String("supplier", supplier),
				slog.String("error", err.Error()),
			)
			render.Status(r, apierr.Status(err))
			render.JSON(w, r, apierr.Response{Error: apierr.Message(err)})
			return
		}
		if views == nil {
			views = []market.OrderView{}
		}

		render.JSON(w, r, views)
	}
}
