package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func TestMigrateRunsEveryStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"template", "site", "site_binding"} {
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ` + table + ` \(`).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := Migrate(context.Background(), sqlx.NewDb(db, "mysql")); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrateStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS template`).
		WillReturnError(errors.New("access denied"))

	err = Migrate(context.Background(), sqlx.NewDb(db, "mysql"))
	if err == nil || !strings.Contains(err.Error(), "migrate step 1") {
		t.Fatalf("err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNormalizeDSN(t *testing.T) {
	got, err := normalizeDSN("u:p@tcp(db:3306)/zitefy")
	if err != nil {
		t.Fatalf("normalizeDSN: %v", err)
	}
	for _, want := range []string{"parseTime=true", "clientFoundRows=true"} {
		if !strings.Contains(got, want) {
			t.Fatalf("%q missing %s", got, want)
		}
	}
	if _, err := normalizeDSN("::bad::"); err == nil {
		t.Fatal("expected parse error")
	}
}
