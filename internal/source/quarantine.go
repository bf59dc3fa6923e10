package source

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/recordkeeper/internal/metrics"
)

const addCorruptRecordQuery = `insert into corrupt_record (id, model, description)
		 values ($1, $2, $3)
		 on conflict (id) do nothing`

// AddCorruptRecord flags the stored row id of model as corrupt so that
// lookups skip it from now on. Flagging the same id twice is a no-op.
func AddCorruptRecord(ctx context.Context, conn *PgConn, id, model string, cause error) error {
	res, err := conn.ExecContext(ctx, addCorruptRecordQuery, id, model, cause.Error())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		conn.metrics.AddQuarantined(model, metrics.StrategyFlag, int(n))
	}
	conn.logger.Warn(ctx, "quarantined corrupt record", "model", model, "id", id, "cause", cause.Error())
	return nil
}

// NotePurged records that corrupt rows were removed from the live table
// instead of being flagged.
func NotePurged(ctx context.Context, conn *PgConn, model string, ids []string) {
	if len(ids) == 0 {
		return
	}
	conn.metrics.AddQuarantined(model, metrics.StrategyDelete, len(ids))
	conn.logger.Warn(ctx, "purged corrupt records", "model", model, "ids", ids)
}
