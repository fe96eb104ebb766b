package termex

import (
	"context"
	"strings"

	"github.com/cognicore/termex/pkg/termex/internalerr"
	"github.com/cognicore/termex/pkg/termex/store"
	"github.com/cognicore/termex/pkg/termex/store/postgres"
	"github.com/cognicore/termex/pkg/termex/store/sqlite"
)

// OpenStore opens the store named by driver. target is a file path for
// sqlite and a DSN for postgres. The "none" driver returns a nil store.
func OpenStore(ctx context.Context, driver, target string) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "none":
		return nil, nil
	case "sqlite":
		return sqlite.OpenSQLite(ctx, target)
	case "postgres":
		return postgres.Open(ctx, target)
	}
	return nil, internalerr.NewConfigError("store.driver", "unknown driver %q", driver)
}
