// Package transfer copies a gazetteer between databases, typically from the
// SQLite file used during collection to a shared MySQL server.
//
// Rows keep their primary keys. Tables are copied parents first so foreign
// keys hold at every step, and rows already present in the target are
// skipped, which makes a transfer resumable.
package transfer

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diana-archive/gazetteer/internal/datastore"
	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/logger"
)

// DefaultBatchSize is the number of rows read and written per batch.
const DefaultBatchSize = 1000

// TableStats tracks per-table transfer statistics.
type TableStats struct {
	Name     string
	Copied   int64
	Skipped  int64
	Duration time.Duration
}

// Report summarizes a transfer.
type Report struct {
	Tables   []TableStats
	Duration time.Duration
}

// Copied returns the total number of rows written.
func (r *Report) Copied() int64 {
	var n int64
	for _, t := range r.Tables {
		n += t.Copied
	}
	return n
}

// CountMismatch is one table whose row counts differ after a transfer.
type CountMismatch struct {
	Table          string
	Source, Target int64
}

// Transfer copies every table of source into target.
type Transfer struct {
	source    *gorm.DB
	target    *gorm.DB
	batchSize int
	log       logger.Logger
}

// Option configures a Transfer.
type Option func(*Transfer)

// WithBatchSize sets the rows per batch. Values below 1 keep the default.
func WithBatchSize(n int) Option {
	return func(t *Transfer) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

// New prepares a transfer. The target schema is created or updated first.
func New(source, target datastore.Manager, opts ...Option) (*Transfer, error) {
	if err := target.Initialize(); err != nil {
		return nil, err
	}
	t := &Transfer{
		source:    source.DB(),
		target:    target.DB(),
		batchSize: DefaultBatchSize,
		log:       logger.Global().Module("transfer"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// step copies one table.
type step struct {
	name string
	copy func(ctx context.Context, t *Transfer, name string) (*TableStats, error)
}

// steps lists tables in dependency order: references, places, names,
// evidence, then the join tables.
var steps = []step{
	{entities.TableLanguages, copyModel[entities.Language]},
	{entities.TablePeriods, copyModel[entities.Period]},
	{entities.TablePlaceTypes, copyModel[entities.PlaceType]},
	{entities.TableInformants, copyModel[entities.Informant]},
	{entities.TableAuthors, copyModel[entities.Author]},
	{entities.TablePlaces, copyModel[entities.Place]},
	{entities.TableNames, copyModel[entities.Name]},
	{entities.TableImageEvidence, copyModel[entities.ImageEvidence]},
	{entities.TableTextEvidence, copyModel[entities.TextEvidence]},
	{entities.TableDocumentEvidence, copyModel[entities.DocumentEvidence]},
	{entities.TableNameLanguages, copyJoinTable},
	{entities.TableNameInformants, copyJoinTable},
	{entities.TableImageEvidenceAuthors, copyJoinTable},
	{entities.TableImageEvidenceInformants, copyJoinTable},
	{entities.TableTextEvidenceAuthors, copyJoinTable},
	{entities.TableTextEvidenceInformants, copyJoinTable},
	{entities.TableDocumentEvidenceAuthors, copyJoinTable},
	{entities.TableDocumentEvidenceInformants, copyJoinTable},
}

// Run copies all tables. It stops at the first failing table.
func (t *Transfer) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		stats, err := s.copy(ctx, t, s.name)
		if err != nil {
			return report, errors.New(err).
				Component("transfer").
				Category(errors.CategoryDatabase).
				Context("table", s.name).
				Build()
		}
		report.Tables = append(report.Tables, *stats)
		t.log.Info("table copied",
			logger.String("table", s.name),
			logger.Int64("copied", stats.Copied),
			logger.Int64("skipped", stats.Skipped),
			logger.Duration("elapsed", stats.Duration))
	}

	report.Duration = time.Since(start)
	return report, nil
}

// Verify compares row counts of every table between source and target.
func (t *Transfer) Verify(ctx context.Context) ([]CountMismatch, error) {
	var mismatches []CountMismatch
	for _, s := range steps {
		var src, dst int64
		if err := t.source.WithContext(ctx).Table(s.name).Count(&src).Error; err != nil {
			return nil, fmt.Errorf("failed to count source %s: %w", s.name, err)
		}
		if err := t.target.WithContext(ctx).Table(s.name).Count(&dst).Error; err != nil {
			return nil, fmt.Errorf("failed to count target %s: %w", s.name, err)
		}
		if src != dst {
			mismatches = append(mismatches, CountMismatch{Table: s.name, Source: src, Target: dst})
		}
	}
	return mismatches, nil
}

// copyModel copies a table with a GORM model, batched by primary key.
func copyModel[T any](ctx context.Context, t *Transfer, name string) (*TableStats, error) {
	start := time.Now()
	stats := &TableStats{Name: name}

	var batch []T
	err := t.source.WithContext(ctx).Model(new(T)).FindInBatches(&batch, t.batchSize, func(_ *gorm.DB, _ int) error {
		res := t.target.WithContext(ctx).
			Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&batch)
		if res.Error != nil {
			return res.Error
		}
		stats.Copied += res.RowsAffected
		stats.Skipped += int64(len(batch)) - res.RowsAffected
		return nil
	}).Error

	stats.Duration = time.Since(start)
	return stats, err
}

// copyJoinTable copies a two-column many-to-many table. Join tables have no
// model, so rows are paged by position ordered on both columns.
func copyJoinTable(ctx context.Context, t *Transfer, name string) (*TableStats, error) {
	start := time.Now()
	stats := &TableStats{Name: name}

	for offset := 0; ; offset += t.batchSize {
		var rows []map[string]any
		err := t.source.WithContext(ctx).Table(name).
			Order("1, 2").
			Limit(t.batchSize).
			Offset(offset).
			Find(&rows).Error
		if err != nil {
			return stats, err
		}
		if len(rows) == 0 {
			break
		}

		res := t.target.WithContext(ctx).Table(name).
			Clauses(t.skipDuplicates()).
			Create(&rows)
		if res.Error != nil {
			return stats, res.Error
		}
		stats.Copied += res.RowsAffected
		stats.Skipped += int64(len(rows)) - res.RowsAffected

		if len(rows) < t.batchSize {
			break
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// skipDuplicates returns the insert clause that ignores rows already present.
// Without a model the MySQL dialect cannot express DO NOTHING.
func (t *Transfer) skipDuplicates() clause.Expression {
	if t.target.Dialector.Name() == "mysql" {
		return clause.Insert{Modifier: "IGNORE"}
	}
	return clause.OnConflict{DoNothing: true}
}
