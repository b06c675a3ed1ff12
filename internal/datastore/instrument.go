package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/logger"
	"github.com/diana-archive/gazetteer/internal/observability/metrics"
)

// OperationRecorder receives per-statement database metrics.
// *metrics.DatastoreMetrics implements it.
type OperationRecorder interface {
	RecordDbOperation(operation, table, status string)
	RecordDbOperationDuration(operation, table string, duration float64)
	RecordDbOperationError(operation, table, errorType string)
	RecordQueryResultSize(operation, table string, resultSize int)
}

// StatsRecorder receives connection pool and table size snapshots.
type StatsRecorder interface {
	UpdateConnectionMetrics(open, idle, maxConn int)
	UpdateTableRowCount(table string, rowCount int64)
}

const callbackStartKey = "gazetteer:metrics_start"

// RegisterMetricsCallbacks instruments every GORM statement on db.
func RegisterMetricsCallbacks(db *gorm.DB, rec OperationRecorder) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(callbackStartKey, time.Now())
	}

	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			table := tx.Statement.Table
			if table == "" {
				table = metrics.LabelUnknown
			}

			status := metrics.StatusSuccess
			if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
				status = metrics.StatusError
				rec.RecordDbOperationError(operation, table, classifyDBError(tx.Error))
			}
			rec.RecordDbOperation(operation, table, status)

			if v, ok := tx.InstanceGet(callbackStartKey); ok {
				if start, ok := v.(time.Time); ok {
					rec.RecordDbOperationDuration(operation, table, time.Since(start).Seconds())
				}
			}
			if operation == metrics.OpDbQuery && tx.Error == nil {
				rec.RecordQueryResultSize(operation, table, int(tx.RowsAffected))
			}
		}
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("metrics:before_create", before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("metrics:after_create", after(metrics.OpDbInsert)); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("metrics:before_query", before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("metrics:after_query", after(metrics.OpDbQuery)); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("metrics:before_update", before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("metrics:after_update", after(metrics.OpDbUpdate)); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("metrics:before_delete", before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("metrics:after_delete", after(metrics.OpDbDelete)); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("metrics:before_raw", before); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("metrics:after_raw", after(metrics.OpDbRaw)); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("metrics:before_row", before); err != nil {
		return err
	}
	return cb.Row().After("gorm:row").Register("metrics:after_row", after(metrics.OpDbQuery))
}

func classifyDBError(err error) string {
	switch {
	case IsConstraintError(err):
		return "constraint"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "query"
	}
}

// countedTables are the tables whose row counts are exported.
var countedTables = []string{
	entities.TablePlaces,
	entities.TableNames,
	entities.TableInformants,
	entities.TableImageEvidence,
	entities.TableTextEvidence,
	entities.TableDocumentEvidence,
}

// RefreshStats pushes one snapshot of pool statistics and row counts to rec.
func RefreshStats(ctx context.Context, m Manager, rec StatsRecorder) error {
	stats := m.Stats()
	rec.UpdateConnectionMetrics(stats.OpenConnections, stats.Idle, stats.MaxOpenConnections)

	for _, table := range countedTables {
		var n int64
		if err := m.DB().WithContext(ctx).Table(table).Count(&n).Error; err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("operation", "refresh_stats").
				Context("table", table).
				Build()
		}
		rec.UpdateTableRowCount(table, n)
	}
	return nil
}

// MonitorStats calls RefreshStats every interval until ctx is done.
func MonitorStats(ctx context.Context, m Manager, rec StatsRecorder, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := RefreshStats(ctx, m, rec); err != nil && ctx.Err() == nil {
			GetLogger().Warn("failed to refresh database stats", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
