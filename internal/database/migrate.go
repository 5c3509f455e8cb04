package database

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-catalog-sync/internal/logger"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// RemoteKeyTables carry a unique, nullable remote_key_id join column.
var RemoteKeyTables = []string{"products", "product_variants", "users", "orders"}

// Migrate provisions remote_key_id on every RemoteKeyTables entry. It is
// best-effort: a statement that fails (column or index already present,
// missing table) is logged and skipped. It returns how many statements applied.
func Migrate(ctx context.Context, db *sqlx.DB, log logger.ZapLogger) int {
	applied := 0
	for _, table := range RemoteKeyTables {
		for _, stmt := range remoteKeyStatements(db.DriverName(), table) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				log.Debug("migration statement skipped",
					zap.String("table", table),
					zap.String("statement", stmt),
					zap.Error(err),
				)
				continue
			}
			applied++
		}
	}
	log.Info("migrations finished", zap.Int("applied", applied))
	return applied
}

func remoteKeyStatements(driver, table string) []string {
	index := table + "_remote_key_id_unique"
	switch driver {
	case "mysql":
		return []string{
			fmt.Sprintf("ALTER TABLE `%s` ADD `remote_key_id` VARCHAR(101) NULL DEFAULT NULL", table),
			fmt.Sprintf("ALTER TABLE `%s` ADD UNIQUE `%s` (`remote_key_id`)", table, index),
		}
	case "pgx", "postgres":
		return []string{
			fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS remote_key_id VARCHAR(101) NULL", table),
			fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (remote_key_id)", index, table),
		}
	default:
		return []string{
			fmt.Sprintf("ALTER TABLE %s ADD COLUMN remote_key_id VARCHAR(101) NULL", table),
			fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (remote_key_id)", index, table),
		}
	}
}
