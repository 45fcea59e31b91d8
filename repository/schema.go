package repository

import (
	"context"
	"database/sql"

	cancel "github.com/goliatone/go-cancel"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Models lists every table managed by this package
var Models = []any{
	(*cancel.Account)(nil),
	(*NodeModel)(nil),
	(*RevisionModel)(nil),
	(*CommentModel)(nil),
	(*ActivityRecord)(nil),
}

// CreateSchema creates missing tables.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range Models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// OpenSQLite opens a SQLite backed bun.DB. An empty dsn opens a private in
// memory database.
func OpenSQLite(dsn string) (*bun.DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
