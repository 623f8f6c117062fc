package sheet

import (
	"fmt"
	"strconv"
	"strings"
)

// Заголовки листа MarketData. Порядок колонок может отличаться, чтение идёт по именам.
const (
	ColID             = "ID"
	ColParentID       = "Parent ID"
	ColType           = "Тип"
	ColStatus         = "Статус"
	ColVIN            = "VIN"
	ColName           = "Имя"
	ColPhone          = "Телефон"
	ColSummary        = "Сводка"
	ColJSON           = "JSON"
	ColDetails        = "Детали/Цены"
	ColDate           = "Дата"
	ColLocation       = "Локация"
	ColStatusSupplier = "СТАТУС ПОСТАВЩИК"
	ColStatusClient   = "СТАТУС КЛИЕНТ"
	ColStatusAdmin    = "СТАТУС АДМИН"
)

var MarketDataHeaders = []string{
	ColID, ColParentID, ColType, ColStatus, ColVIN, ColName, ColPhone, ColSummary, ColJSON,
	ColDetails, ColDate, ColLocation, ColStatusSupplier, ColStatusClient, ColStatusAdmin,
}

var SubscribersHeaders = []string{"ChatID", "Username", "Date"}

// Columns имя колонки -> номер (с 1).
type Columns map[string]int

func normalizeHeader(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ColumnMap строит карту колонок по строке заголовков.
func ColumnMap(header []any) Columns {
	cols := make(Columns, len(header))
	for i, h := range header {
		name := normalizeHeader(CellString(h))
		if name == "" {
			continue
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i + 1
		}
	}
	return cols
}

// Index 0, если колонки нет.
func (c Columns) Index(name string) int {
	return c[normalizeHeader(name)]
}

func (c Columns) Has(name string) bool {
	return c.Index(name) > 0
}

// Value значение ячейки строки по имени колонки, пустая строка если колонки или ячейки нет.
func (c Columns) Value(row []any, name string) string {
	idx := c.Index(name)
	if idx == 0 || idx > len(row) {
		return ""
	}
	return CellString(row[idx-1])
}

// CellString приводит значение ячейки из API таблиц к строке.
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
