package market

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"automarket/internal/storage"
)

var ErrValidation = errors.New("validation failed")

var validate = validator.New()

// validateStruct переводит ошибки валидатора в читаемый вид.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("поле %s: %s", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// ValidateOfferItem позиция либо явно отклонена (0 шт), либо имеет цену, вес и срок поставки.
func ValidateOfferItem(it storage.OfferItem) error {
	if it.OfferedQuantity < 0 {
		return fmt.Errorf("%w: %s: отрицательное количество", ErrValidation, it.Name)
	}
	if it.OfferedQuantity == 0 {
		return nil
	}
	var missing []string
	if !it.SellerPrice.IsPositive() {
		missing = append(missing, "цена")
	}
	if !it.Weight.IsPositive() {
		missing = append(missing, "вес")
	}
	if it.DeliveryWeeks <= 0 {
		missing = append(missing, "срок поставки")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s: не заполнено %s", ErrValidation, it.Name, strings.Join(missing, ", "))
	}
	if it.SellerCurrency != "" && !it.SellerCurrency.Valid() {
		return fmt.Errorf("%w: %s: неизвестная валюта %s", ErrValidation, it.Name, it.SellerCurrency)
	}
	return nil
}

func ValidateOfferItems(items []storage.OfferItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: предложение без позиций", ErrValidation)
	}
	for _, it := range items {
		if err := ValidateOfferItem(it); err != nil {
			return err
		}
	}
	return nil
}

// AllDeclined true, если поставщик отказался от всех позиций.
func AllDeclined(items []storage.OfferItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if it.OfferedQuantity != 0 {
			return false
		}
	}
	return true
}
