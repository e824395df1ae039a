package testsupport

import (
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

// NewBunDB opens a private in-memory SQLite database wrapped in a bun handle.
// Each call returns an isolated database so tests cannot observe each other.
func NewBunDB() (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite3", "file::memory:")
	if err != nil {
		return nil, err
	}
	// A second pooled connection would see its own empty in-memory database.
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
