package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cognicore/termex/pkg/termex/internalerr"
	"github.com/cognicore/termex/pkg/termex/store"
	"github.com/cognicore/termex/pkg/termex/store/sqlstore"
)

// OpenSQLite opens a SQLite database with WAL mode and foreign keys
// enabled and creates the schema.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	// a single writer avoids SQLITE_BUSY within one process
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	st, err := sqlstore.New(ctx, db, sqlstore.QuestionMark)
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}
