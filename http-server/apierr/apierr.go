package apierr

import (
	"errors"
	"net/http"

	"automarket/internal/service/market"
	"automarket/internal/storage"
)

type Response struct {
	Error string `json:"error"`
}

// Message текст ошибки для фронта. Внутренние ошибки наружу не отдаются.
func Message(err error) string {
	switch {
	case errors.Is(err, storage.ErrServerBusy):
		return "server busy"
	case errors.Is(err, storage.ErrOrderNotFound):
		return "Заказ не найден"
	case errors.Is(err, storage.ErrOfferNotFound):
		return "Предложение не найдено"
	case errors.Is(err, storage.ErrOrderClosed):
		return "Заказ закрыт"
	case errors.Is(err, storage.ErrVersionConflict):
		return "Заказ изменён другим пользователем, обновите данные"
	case errors.Is(err, storage.ErrInvalidState):
		return "Некорректный статус заказа"
	case errors.Is(err, market.ErrItemNotFound):
		return "Позиция не найдена в предложении"
	case errors.Is(err, market.ErrItemNotOffered):
		return "Поставщик отказался от позиции"
	case errors.Is(err, market.ErrValidation):
		return err.Error()
	}
	return "Внутренняя ошибка"
}

// Status HTTP код для REST ручек.
func Status(err error) int {
	switch {
	case errors.Is(err, storage.ErrServerBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrOrderNotFound), errors.Is(err, storage.ErrOfferNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrVersionConflict), errors.Is(err, storage.ErrOrderClosed):
		return http.StatusConflict
	case errors.Is(err, storage.ErrInvalidState),
		errors.Is(err, market.ErrValidation),
		errors.Is(err, market.ErrItemNotFound),
		errors.Is(err, market.ErrItemNotOffered):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
