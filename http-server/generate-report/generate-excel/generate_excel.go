package generate_excel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	report "automarket/internal/service/generate-excel"
)

type GenerateExcelHandler interface {
	GenerateExcel(ctx context.Context, filter report.ReportFilter) ([]byte, error)
}

// GenerateReportExcel выгрузка заказов и лидеров в xlsx: ?from=2006-01-02&to=2006-01-02&open=1.
// По умолчанию с начала месяца по сегодня.
func GenerateReportExcel(log *slog.Logger, gen GenerateExcelHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.report.GenerateReportExcel"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		fromStr := r.URL.Query().Get("from")
		toStr := r.URL.Query().Get("to")

		now := time.Now()
		startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

		fDate, err := time.ParseInLocation("2006-01-02", fromStr, now.Location())
		if err != nil && fromStr != "" {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
		if fromStr == "" {
			fDate = startOfMonth
		}

		tDate, err := time.ParseInLocation("2006-01-02", toStr, now.Location())
		if err != nil && toStr != "" {
			http.Error(w, "invalid to date", http.StatusBadRequest)
			return
		}
		if toStr == "" {
			tDate = now
		} else {
			// включительно до конца дня
			tDate = tDate.Add(24*time.Hour - time.Nanosecond)
		}

		if tDate.Before(fDate) {
			http.Error(w, "from after to", http.StatusBadRequest)
			return
		}

		filter := report.ReportFilter{
			From:     fDate,
			To:       tDate,
			OnlyOpen: r.URL.Query().Get("open") == "1",
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		excelBytes, err := gen.GenerateExcel(ctx, filter)
		if err != nil {
			log.Error("failed to generate excel", slog.String("error", err.Error()))
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}

		fileName := fmt.Sprintf("Market_Report_%s.xlsx", now.Format("2006-01-02_150405"))

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
		if _, err := w.Write(excelBytes); err != nil {
			log.Error("failed to write excel", slog.String("error", err.Error()))
		}
	}
}
