package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/cognicore/termex/pkg/termex/internalerr"
	"github.com/cognicore/termex/pkg/termex/store/storetest"
)

// TERMEX_TEST_POSTGRES_DSN must point at an empty, disposable database.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TERMEX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TERMEX_TEST_POSTGRES_DSN not set")
	}

	st, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	storetest.Run(t, st)
}

func TestPostgresUnavailable(t *testing.T) {
	_, err := Open(context.Background(), "host=127.0.0.1 port=1 user=nobody dbname=none sslmode=disable connect_timeout=1")
	if !errors.Is(err, internalerr.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}
