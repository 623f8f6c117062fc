package mysql

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"automarket/internal/config"
	"automarket/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
	errDuplicateEntry  = 1062
)

type Storage struct {
	db       *sqlx.DB
	lockWait time.Duration
}

func DSN(cfg config.DB) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Host + ":" + strconv.Itoa(cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func New(cfg config.Config) (*Storage, error) {
	const op = "storage.mysql.New"

	db, err := sqlx.Connect("mysql", DSN(cfg.DB))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.DB.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.DB.MaxConns)
		db.SetMaxIdleConns(cfg.DB.MaxConns)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewWithDB(db, cfg.LockTimeout), nil
}

func NewWithDB(db *sqlx.DB, lockWait time.Duration) *Storage {
	if lockWait <= 0 {
		lockWait = 30 * time.Second
	}
	return &Storage{db: db, lockWait: lockWait}
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate накатывает встроенные миграции.
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.mysql.Migrate"

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := goose.UpContext(ctx, s.db.DB, "migrations"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// mapErr переводит ошибки блокировок MySQL в storage.ErrServerBusy.
func mapErr(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errLockWaitTimeout, errDeadlock:
			return fmt.Errorf("%w: %v", storage.ErrServerBusy, err)
		}
	}
	return err
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

// beginLocked открывает транзакцию с ограничением ожидания блокировок.
func (s *Storage) beginLocked(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	secs := int(s.lockWait / time.Second)
	if secs < 1 {
		secs = 1
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", secs)); err != nil {
		tx.Rollback()
		return nil, err
	}
	return tx, nil
}
