package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Tables lists every table Bootstrap creates, parents first.
var Tables = []string{"families", "children", "rules", "usage_events"}

// Bootstrap creates the schema if it does not exist. It is safe to call on
// every start. Optional extensions that the server refuses to enable are
// logged and skipped; any table or index failure is returned.
func (db *DB) Bootstrap(ctx context.Context, logger zerolog.Logger) error {
	for _, stmt := range db.Dialect.Extensions() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Warn().Err(err).Str("statement", stmt).Msg("could not enable database extension, continuing")
		}
	}

	for i, stmt := range db.Dialect.SchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}

	logger.Info().Str("dialect", db.Dialect.Name()).Msg("schema ready")
	return nil
}
