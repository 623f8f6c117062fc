package action

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"automarket/http-server/apierr"
	"automarket/internal/service"
	"automarket/internal/service/market"
	"automarket/internal/sheet"
	"automarket/internal/storage"
)

const (
	Version = "6.0.0-mysql"

	// requestTimeout покрывает ожидание блокировки заказа в мутации.
	requestTimeout = 40 * time.Second
	maxBodyBytes   = 1 << 20
)

type Service interface {
	CreateOrder(ctx context.Context, in market.OrderInput, idempotencyKey string) (int64, error)
	CreateOffer(ctx context.Context, in market.OfferInput) (string, error)
	UpdateRank(ctx context.Context, cmd market.RankCommand) error
	FormQuote(ctx context.Context, orderID int64) error
	ConfirmPurchase(ctx context.Context, orderID int64) error
	RefuseOrder(ctx context.Context, orderID int64, source service.RefuseSource, reason string) error
	UpdateWorkflowStatus(ctx context.Context, orderID int64, status string) error
	UpdateItems(ctx context.Context, orderID int64, items []storage.OrderItem, expectedVersion int) error
	CloseOrder(ctx context.Context, orderID int64) error
	Data(ctx context.Context) ([]sheet.Row, error)
	HandleTelegramUpdate(ctx context.Context, upd tgbotapi.Update) error
	LogAction(ctx context.Context, logType, message string, payload any)
}

// Query GET /exec: getData отдаёт плоские строки, остальное отвечает, что сервис жив.
func Query(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.action.Query"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if r.URL.Query().Get("action") != "getData" {
			render.JSON(w, r, Response{Status: "alive", Version: Version})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		rows, err := svc.Data(ctx)
		if err != nil {
			log.Error("не удалось получить данные", slog.String("error", err.Error()))
			render.JSON(w, r, Response{Error: apierr.Message(err)})
			return
		}
		if rows == nil {
			rows = []sheet.Row{}
		}
		render.JSON(w, r, rows)
	}
}

// Exec POST /exec. Старый контракт: всегда 200, результат в status/error.
func Exec(log *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.action.Exec"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil || len(body) == 0 {
			log.Error("пустое тело запроса")
			render.JSON(w, r, Response{Error: "No post data"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		var shape telegramShape
		if err := json.Unmarshal(body, &shape); err != nil {
			log.Error("некорректный JSON", slog.String("error", err.Error()))
			render.JSON(w, r, Response{Error: "Некорректный JSON"})
			return
		}
		if shape.isUpdate() {
			var upd tgbotapi.Update
			if err := json.Unmarshal(body, &upd); err == nil {
				if err := svc.HandleTelegramUpdate(ctx, upd); err != nil {
					log.Error("ошибка обработки апдейта telegram", slog.String("error", err.Error()))
				}
			}
			render.JSON(w, r, Response{Status: "telegram_ok"})
			return
		}

		var req Request
		if err := json.Unmarshal(body, &req); err != nil {
			log.Error("некорректный запрос", slog.String("error", err.Error()))
			render.JSON(w, r, Response{Error: fmt.Sprintf("Некорректный запрос: %v", err)})
			return
		}
		if req.IdempotencyKey == "" {
			req.IdempotencyKey = r.Header.Get("Idempotency-Key")
		}

		svc.LogAction(ctx, storage.LogRequest, req.Action, json.RawMessage(body))

		resp, err := dispatch(ctx, svc, req)
		if err != nil {
			log.Error("ошибка выполнения действия",
				slog.String("action", req.Action),
				slog.String("error", err.Error()),
			)
			svc.LogAction(ctx, storage.LogError, req.Action+": "+err.Error(), json.RawMessage(body))
			render.JSON(w, r, Response{Error: apierr.Message(err)})
			return
		}

		log.Info("действие выполнено", slog.String("action", req.Action))
		render.JSON(w, r, resp)
	}
}

func dispatch(ctx context.Context, svc Service, req Request) (Response, error) {
	ok := Response{Status: "ok"}
	orderID := int64(req.OrderID)

	switch req.Action {
	case ActionCreate:
		return create(ctx, svc, req)
	case ActionFormQuote:
		return ok, svc.FormQuote(ctx, orderID)
	case ActionConfirmPurchase:
		return ok, svc.ConfirmPurchase(ctx, orderID)
	case ActionRefuseOrder:
		return ok, svc.RefuseOrder(ctx, orderID, service.RefuseSource(strings.ToUpper(req.Source)), req.Reason)
	case ActionWorkflowStatus, ActionManualStatus:
		status := req.NewStatus
		if status == "" {
			status = req.Status
		}
		return ok, svc.UpdateWorkflowStatus(ctx, orderID, status)
	case ActionUpdateItems:
		return ok, svc.UpdateItems(ctx, orderID, req.Items, req.Version)
	case ActionUpdateRank:
		return ok, svc.UpdateRank(ctx, req.RankCommand)
	case ActionCloseOrder:
		return ok, svc.CloseOrder(ctx, orderID)
	}
	return Response{}, fmt.Errorf("%w: неизвестное действие %q", market.ErrValidation, req.Action)
}

func create(ctx context.Context, svc Service, req Request) (Response, error) {
	if req.Order == nil {
		return Response{}, fmt.Errorf("%w: нет данных заказа", market.ErrValidation)
	}

	switch strings.ToUpper(req.Order.Type) {
	case TypeOrder, "":
		in, err := req.Order.OrderInput()
		if err != nil {
			return Response{}, err
		}
		id, err := svc.CreateOrder(ctx, in, req.IdempotencyKey)
		if err != nil {
			return Response{}, err
		}
		return Response{Status: "ok", OrderID: strconv.FormatInt(id, 10)}, nil
	case TypeOffer:
		in, err := req.Order.OfferInput()
		if err != nil {
			return Response{}, err
		}
		id, err := svc.CreateOffer(ctx, in)
		if err != nil {
			return Response{}, err
		}
		return Response{Status: "ok", OrderID: id}, nil
	}
	return Response{}, fmt.Errorf("%w: неизвестный тип %q", market.ErrValidation, req.Order.Type)
}
