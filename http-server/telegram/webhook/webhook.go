package webhook

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

type UpdateHandler interface {
	HandleTelegramUpdate(ctx context.Context, upd tgbotapi.Update) error
}

// Webhook принимает апдейты бота. Telegram повторяет доставку при не-2xx,
// поэтому ошибки обработки только логируются.
func Webhook(log *slog.Logger, secret string, h UpdateHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.telegram.Webhook"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(secret)) != 1 {
			log.Warn("апдейт с неверным секретом")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var upd tgbotapi.Update
		if err := render.DecodeJSON(r.Body, &upd); err != nil {
			log.Error("некорректный апдейт telegram", slog.String("error", err.Error()))
			http.Error(w, "Некорректный JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := h.HandleTelegramUpdate(ctx, upd); err != nil {
			log.Error("ошибка обработки апдейта", slog.Int("update_id", upd.UpdateID), slog.String("error", err.Error()))
		}

		render.JSON(w, r, map[string]string{"status": "telegram_ok"})
	}
}
