package generate_excel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"automarket/internal/storage"
)

const (
	sheetOrders  = "Заказы"
	sheetLeaders = "Лидеры"

	dateLayout = "02.01.2006 15:04"
)

type ReportStorage interface {
	ListOrders(ctx context.Context, f storage.OrderFilter) ([]storage.Order, error)
}

type ReportFilter struct {
	From     time.Time
	To       time.Time
	OnlyOpen bool
}

type GenerateExcelService struct {
	storage ReportStorage
}

func NewGenerateService(storage ReportStorage) *GenerateExcelService {
	return &GenerateExcelService{storage: storage}
}

// GenerateExcel отчёт по заказам за период: лист заказов и лист выбранных лидеров с суммами.
func (g *GenerateExcelService) GenerateExcel(ctx context.Context, filter ReportFilter) ([]byte, error) {
	const op = "service.generate_excel.GenerateExcel"

	orders, err := g.storage.ListOrders(ctx, storage.OrderFilter{
		Role:     storage.RoleAdmin,
		OnlyOpen: filter.OnlyOpen,
		From:     filter.From,
		To:       filter.To,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: fetch data: %w", op, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetOrders)
	if _, err := f.NewSheet(sheetLeaders); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: style: %w", op, err)
	}

	orderHeaders := []string{"№ Заказа", "Дата", "VIN", "Клиент", "Телефон", "Автомобиль", "Статус админ", "Статус клиент", "Закрыт", "Предложений", "Сводка"}
	leaderHeaders := []string{"№ Заказа", "Позиция", "Кол-во", "Поставщик", "Предложение", "Цена", "Валюта", "Сумма", "Срок, нед", "Комментарий"}

	writeHeader(f, sheetOrders, orderHeaders, headerStyle)
	writeHeader(f, sheetLeaders, leaderHeaders, headerStyle)

	leaderRow := 2
	for i, o := range orders {
		row := i + 2

		closed := "нет"
		if o.Closed {
			closed = "да"
		}
		values := []any{
			o.ID,
			o.CreatedAt.Format(dateLayout),
			o.VIN,
			o.ClientName,
			o.ClientPhone,
			carTitle(o.Car),
			o.State.AdminLabel(),
			o.State.ClientLabel(),
			closed,
			len(o.Offers),
			o.Summary,
		}
		for col, v := range values {
			f.SetCellValue(sheetOrders, cellName(col+1, row), v)
		}

		for _, off := range o.Offers {
			for _, it := range off.Items {
				if !it.IsLeader() {
					continue
				}
				price, cur := it.FinalPrice()
				qty := it.FinalQuantity()
				total := price.Mul(decimal.NewFromInt(int64(qty)))

				values := []any{
					o.ID,
					it.DisplayName(),
					qty,
					off.SupplierName,
					off.ID,
					price.InexactFloat64(),
					string(cur),
					total.InexactFloat64(),
					it.DeliveryWeeks,
					it.AdminComment,
				}
				for col, v := range values {
					f.SetCellValue(sheetLeaders, cellName(col+1, leaderRow), v)
				}
				leaderRow++
			}
		}
	}

	for _, sheet := range []string{sheetOrders, sheetLeaders} {
		f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
		})
		f.SetColWidth(sheet, "A", "K", 15)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: write: %w", op, err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, name := range headers {
		f.SetCellValue(sheet, cellName(i+1, 1), name)
	}
	f.SetCellStyle(sheet, "A1", cellName(len(headers), 1), style)
}

// carTitle марка, модель и год, правки админа важнее данных клиента.
func carTitle(c storage.Car) string {
	model, year := c.Model, c.Year
	if c.AdminModel != "" {
		model = c.AdminModel
	}
	if c.AdminYear != "" {
		year = c.AdminYear
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Brand, model, year} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
