package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"automarket/internal/cache"
	"automarket/internal/config"
	"automarket/internal/crm/bitrix"
	"automarket/internal/events"
	"automarket/internal/metrics"
	"automarket/internal/notify"
	"automarket/internal/service"
	report "automarket/internal/service/generate-excel"
	"automarket/internal/sheet"
	"automarket/internal/storage"
	"automarket/internal/storage/mysql"
)

func main() {
	// фронт ждёт цены числами
	decimal.MarshalJSONWithoutQuotes = true

	app := &cli.App{
		Name:  "market",
		Usage: "бэкенд маркетплейса запчастей",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "путь к yaml конфигу",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "запустить HTTP сервер",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "накатить миграции",
				Action: migrate,
			},
			{
				Name:   "sheet-import",
				Usage:  "перенести заказы и подписчиков из Google таблицы в базу",
				Action: sheetImport,
			},
			{
				Name:   "sheet-export",
				Usage:  "выгрузить заказы и подписчиков из базы в Google таблицу",
				Action: sheetExport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap конфиг, логгер и хранилище, общие для всех команд.
func bootstrap(c *cli.Context) (*config.Config, *slog.Logger, *mysql.Storage, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}

	log := setupLogger(cfg.Env, cfg.ErrorLog)

	st, err := mysql.New(*cfg)
	if err != nil {
		log.Error("failed to open db", slog.String("error", err.Error()))
		return nil, nil, nil, err
	}

	if err := st.Migrate(c.Context); err != nil {
		st.Close()
		log.Error("failed to migrate db", slog.String("error", err.Error()))
		return nil, nil, nil, err
	}

	return cfg, log, st, nil
}

func migrate(c *cli.Context) error {
	_, log, st, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer st.Close()

	log.Info("migrations applied")
	return nil
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, st, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	deps := service.Deps{
		Storage:   st,
		Formatter: notify.NewFormatter(cfg.Bitrix.BaseURL),
		Metrics:   m,
	}

	if cfg.Telegram.Token != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Error("telegram bot disabled", slog.String("error", err.Error()))
		} else {
			deps.Notifier = notify.NewBroadcaster(log, bot, st, m, cfg.Telegram.BroadcastLimit)
		}
	}

	if cfg.Bitrix.WebhookURL != "" {
		deps.CRM = bitrix.New(cfg.Bitrix.WebhookURL, cfg.Bitrix.Timeout)
	}

	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, getData без кэша", slog.String("error", err.Error()))
		} else {
			defer rdb.Close()
			deps.Cache = cache.New(rdb, "market:", cfg.Redis.TTL)
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer pub.Close()
		deps.Publisher = pub
	}

	svc := service.NewMarketService(log, deps)
	genService := report.NewGenerateService(st)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      routes(*cfg, log, st, svc, genService, metrics.Handler(reg)),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout + cfg.LockTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("address", cfg.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("failed start server", slog.String("error", err.Error()))
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.String("error", err.Error()))
		return err
	}

	log.Info("server stopped")
	return nil
}

func sheetClient(ctx context.Context, cfg *config.Config) (*sheet.Client, error) {
	if cfg.Sheets.CredentialsFile == "" || cfg.Sheets.SpreadsheetID == "" {
		return nil, errors.New("sheets: не заданы credentials_file и spreadsheet_id")
	}
	return sheet.NewClient(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID)
}

// sheetImport переносит старую таблицу в базу. Уже существующие номера заказов пропускаются,
// поэтому команду можно запускать повторно.
func sheetImport(c *cli.Context) error {
	cfg, log, st, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := sheetClient(c.Context, cfg)
	if err != nil {
		return err
	}

	values, err := client.Read(c.Context, sheet.MarketDataSheet)
	if err != nil {
		return err
	}

	orders, rowErrs := sheet.ToOrders(sheet.DecodeRows(values))
	for _, e := range rowErrs {
		log.Warn("строка таблицы с ошибкой", slog.String("error", e.Error()))
	}

	imported, err := st.ImportOrders(c.Context, orders)
	if err != nil {
		return err
	}

	subsImported := 0
	subValues, err := client.Read(c.Context, sheet.SubscribersSheet)
	if err != nil {
		log.Warn("лист подписчиков не прочитан", slog.String("error", err.Error()))
	} else {
		subsImported, err = st.ImportSubscribers(c.Context, sheet.DecodeSubscribers(subValues))
		if err != nil {
			return err
		}
	}

	log.Info("импорт завершён",
		slog.Int("orders", imported),
		slog.Int("skipped_rows", len(rowErrs)),
		slog.Int("subscribers", subsImported),
	)
	return nil
}

func sheetExport(c *cli.Context) error {
	cfg, log, st, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := sheetClient(c.Context, cfg)
	if err != nil {
		return err
	}

	orders, err := st.ListOrders(c.Context, storage.OrderFilter{Role: storage.RoleAdmin})
	if err != nil {
		return err
	}
	rows, err := sheet.FlattenOrders(orders)
	if err != nil {
		return err
	}
	if err := client.Write(c.Context, sheet.MarketDataSheet, sheet.EncodeRows(rows)); err != nil {
		return err
	}

	subs, err := st.Subscribers(c.Context)
	if err != nil {
		return err
	}
	if err := client.Write(c.Context, sheet.SubscribersSheet, sheet.EncodeSubscribers(subs)); err != nil {
		return err
	}

	log.Info("выгрузка завершена", slog.Int("orders", len(orders)), slog.Int("rows", len(rows)), slog.Int("subscribers", len(subs)))
	return nil
}
