package mysql

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	// Тестовая БД задаётся через MARKET_TEST_DSN, без неё интеграционные тесты пропускаются
	dsn := os.Getenv("MARKET_TEST_DSN")
	if dsn == "" {
		os.Exit(m.Run())
	}

	var err error
	testDB, err = sqlx.Connect("mysql", dsn)
	if err != nil {
		panic(fmt.Errorf("не удалось подключиться к тестовой БД: %w", err))
	}

	if err := NewWithDB(testDB, 5*time.Second).Migrate(context.Background()); err != nil {
		panic(fmt.Errorf("migrate failed: %w", err))
	}

	code := m.Run()
	testDB.Close()

	os.Exit(code)
}

func testStorage(t *testing.T) *Storage {
	t.Helper()
	if testDB == nil {
		t.Skip("MARKET_TEST_DSN не задан")
	}
	cleanupTestDB(t)
	return NewWithDB(testDB, 2*time.Second)
}

func cleanupTestDB(t *testing.T) {
	tables := []string{"offer_items", "offers", "order_items", "idempotency_keys", "orders", "subscribers", "action_logs"}
	for _, table := range tables {
		if _, err := testDB.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("cleanup %s: %v", table, err)
		}
	}
}
