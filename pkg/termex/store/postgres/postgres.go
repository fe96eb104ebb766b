package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/cognicore/termex/pkg/termex/internalerr"
	"github.com/cognicore/termex/pkg/termex/store"
	"github.com/cognicore/termex/pkg/termex/store/sqlstore"
)

// Open connects with a lib/pq DSN, verifies the connection and creates
// the schema.
func Open(ctx context.Context, dsn string) (store.Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %v", internalerr.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", internalerr.ErrStoreUnavailable, err)
	}

	st, err := sqlstore.New(ctx, db, sqlstore.Dollar)
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}
