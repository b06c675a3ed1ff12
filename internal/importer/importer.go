// Package importer loads GeoJSON layers into the gazetteer.
//
// Imports are idempotent: places are keyed by source reference, reference
// data by natural key, and running the same import twice changes nothing.
// Files are parsed concurrently and written sequentially, one transaction
// per layer.
package importer

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/conf"
	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/datastore/repository"
	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/logger"
	"github.com/diana-archive/gazetteer/internal/observability/metrics"
)

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the importer package logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("importer")
	})
	return serviceLogger
}

// Metrics receives import instrumentation. *metrics.ImportMetrics implements it.
type Metrics interface {
	RecordImportRun(status string, duration float64)
	RecordImportFeature(placeType, outcome string)
}

// Report summarizes an import run.
type Report struct {
	RunID    string
	Created  int
	Updated  int
	Skipped  int
	ByType   map[string]int // features written per place type
	Duration time.Duration
}

// Changed reports whether the run wrote anything.
func (r *Report) Changed() bool {
	return r.Created+r.Updated > 0
}

// Importer writes seeds and layers to the database.
type Importer struct {
	db         *gorm.DB
	fs         afero.Fs
	settings   conf.ImportSettings
	metrics    Metrics
	invalidate func(context.Context) error
}

// Option configures an Importer.
type Option func(*Importer)

// WithMetrics records import metrics.
func WithMetrics(m Metrics) Option {
	return func(i *Importer) { i.metrics = m }
}

// WithInvalidator registers a callback run after an import that changed
// data, typically the search cache flush.
func WithInvalidator(fn func(context.Context) error) Option {
	return func(i *Importer) { i.invalidate = fn }
}

// New returns an importer reading files from fs.
func New(db *gorm.DB, fs afero.Fs, settings *conf.ImportSettings, opts ...Option) *Importer {
	i := &Importer{db: db, fs: fs, settings: *settings}
	if i.settings.Workers < 1 {
		i.settings.Workers = 1
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run seeds reference data and imports layers.
func (i *Importer) Run(ctx context.Context, seed *Seed, layers []Layer) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), ByType: make(map[string]int)}
	log := GetLogger().With(logger.String("run_id", report.RunID))

	err := i.run(ctx, seed, layers, report, log)
	report.Duration = time.Since(start)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	if i.metrics != nil {
		i.metrics.RecordImportRun(status, report.Duration.Seconds())
	}
	if err != nil {
		log.Error("import failed", logger.Error(err))
		return report, err
	}

	log.Info("import completed",
		logger.Int("created", report.Created),
		logger.Int("updated", report.Updated),
		logger.Int("skipped", report.Skipped),
		logger.Duration("elapsed", report.Duration))
	return report, nil
}

func (i *Importer) run(ctx context.Context, seed *Seed, layers []Layer, report *Report, log logger.Logger) error {
	parsed, err := i.parseAll(ctx, layers)
	if err != nil {
		return err
	}

	refs := repository.NewReferenceRepository(i.db)
	if err := applySeed(ctx, i.db, refs, seed); err != nil {
		return err
	}

	note := i.settings.InformantNote
	informant, err := refs.GetOrCreateInformant(ctx, i.settings.Informant, &note)
	if err != nil {
		return importError(err, "informant")
	}

	languages, err := i.languagesByAbbreviation(ctx, refs)
	if err != nil {
		return err
	}

	for idx, layer := range layers {
		placeType, err := refs.GetOrCreatePlaceType(ctx, layer.PlaceType)
		if err != nil {
			return importError(err, "place_type")
		}

		w := &writer{
			settings:  &i.settings,
			placeType: placeType,
			informant: informant,
			languages: languages,
			metrics:   i.metrics,
		}
		err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return w.writeLayer(ctx, tx, parsed[idx])
		})
		if err != nil {
			return errors.New(err).
				Component("importer").
				Category(errors.CategoryImport).
				Context("operation", "write_layer").
				Context("path", layer.Path).
				Build()
		}

		report.Created += w.created
		report.Updated += w.updated
		report.Skipped += w.skipped
		report.ByType[layer.PlaceType] += w.created + w.updated

		log.Info("layer imported",
			logger.String("place_type", layer.PlaceType),
			logger.String("path", layer.Path),
			logger.Int("features", len(parsed[idx])),
			logger.Int("created", w.created),
			logger.Int("updated", w.updated))
	}

	if report.Changed() && i.invalidate != nil {
		if err := i.invalidate(ctx); err != nil {
			log.Warn("failed to invalidate search cache", logger.Error(err))
		}
	}
	return nil
}

// parseAll parses layer files concurrently. Results keep the layer order.
func (i *Importer) parseAll(ctx context.Context, layers []Layer) ([][]feature, error) {
	parsed := make([][]feature, len(layers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.settings.Workers)
	for idx, layer := range layers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			features, err := parseLayer(i.fs, layer, i.settings.NameKeys)
			if err != nil {
				return err
			}
			parsed[idx] = features
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parsed, nil
}

// languagesByAbbreviation resolves every language the name keys refer to.
func (i *Importer) languagesByAbbreviation(ctx context.Context, refs repository.ReferenceRepository) (map[string]*entities.Language, error) {
	all, err := refs.ListLanguages(ctx)
	if err != nil {
		return nil, importError(err, "languages")
	}
	byAbbr := make(map[string]*entities.Language, len(all))
	for _, l := range all {
		if l.Abbreviation != nil {
			byAbbr[*l.Abbreviation] = l
		}
	}

	for key, abbr := range i.settings.NameKeys {
		if _, ok := byAbbr[abbr]; !ok {
			return nil, errors.Newf("name key %q refers to unknown language %q", key, abbr).
				Component("importer").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}
	return byAbbr, nil
}

// applySeed creates missing reference rows.
func applySeed(ctx context.Context, db *gorm.DB, refs repository.ReferenceRepository, seed *Seed) error {
	if seed == nil {
		seed = DefaultSeed()
	}
	for _, l := range seed.Languages {
		if _, err := refs.GetOrCreateLanguage(ctx, l.Name, l.Abbreviation); err != nil {
			return importError(err, "seed_language")
		}
	}
	for _, p := range seed.Periods {
		period, err := refs.GetOrCreatePeriod(ctx, p.Text)
		if err != nil {
			return importError(err, "seed_period")
		}
		updates := map[string]any{}
		if p.StartYear != nil && period.StartYear == nil {
			updates["start_year"] = *p.StartYear
		}
		if p.EndYear != nil && period.EndYear == nil {
			updates["end_year"] = *p.EndYear
		}
		if len(updates) > 0 {
			if err := db.WithContext(ctx).Model(period).Updates(updates).Error; err != nil {
				return importError(err, "seed_period")
			}
		}
	}
	for _, t := range seed.PlaceTypes {
		if _, err := refs.GetOrCreatePlaceType(ctx, t); err != nil {
			return importError(err, "seed_place_type")
		}
	}
	return nil
}

// writer upserts the features of one layer.
type writer struct {
	settings  *conf.ImportSettings
	placeType *entities.PlaceType
	informant *entities.Informant
	languages map[string]*entities.Language
	metrics   Metrics

	created, updated, skipped int
}

func (w *writer) writeLayer(ctx context.Context, tx *gorm.DB, features []feature) error {
	places := repository.NewPlaceRepository(tx)
	for _, f := range features {
		outcome, err := w.upsert(ctx, tx, places, f)
		if err != nil {
			return fmt.Errorf("feature %s: %w", f.sourceRef, err)
		}
		switch outcome {
		case metrics.LabelCreated:
			w.created++
		case metrics.LabelUpdated:
			w.updated++
		default:
			w.skipped++
		}
		if w.metrics != nil {
			w.metrics.RecordImportFeature(w.placeType.Text, outcome)
		}
	}
	return nil
}

func (w *writer) upsert(ctx context.Context, tx *gorm.DB, places repository.PlaceRepository, f feature) (string, error) {
	existing, err := places.GetBySourceRef(ctx, f.sourceRef)
	if errors.Is(err, repository.ErrPlaceNotFound) {
		ref := f.sourceRef
		comment := w.settings.Comment
		place := &entities.Place{
			Geometry:    entities.NewGeometry(f.geometry),
			PlaceTypeID: w.placeType.ID,
			Comment:     &comment,
			SourceRef:   &ref,
		}
		for _, n := range f.names {
			place.Names = append(place.Names, w.newName(n))
		}
		if err := places.Create(ctx, place); err != nil {
			return "", err
		}
		return metrics.LabelCreated, nil
	}
	if err != nil {
		return "", err
	}

	changed := false
	if !orb.Equal(existing.Geometry.Geometry, f.geometry) || existing.PlaceTypeID != w.placeType.ID {
		existing.Geometry = entities.NewGeometry(f.geometry)
		existing.PlaceTypeID = w.placeType.ID
		if err := places.Update(ctx, existing); err != nil {
			return "", err
		}
		changed = true
	}

	folder := cases.Fold()
	for _, n := range f.names {
		idx := slices.IndexFunc(existing.Names, func(e entities.Name) bool {
			return e.Text != nil && folder.String(*e.Text) == n.folded
		})
		if idx < 0 {
			name := w.newName(n)
			if err := places.AddName(ctx, existing.ID, &name); err != nil {
				return "", err
			}
			changed = true
			continue
		}

		added, err := w.addMissingLanguages(tx, &existing.Names[idx], n.abbreviations)
		if err != nil {
			return "", err
		}
		changed = changed || added
	}

	if changed {
		return metrics.LabelUpdated, nil
	}
	return metrics.LabelSkipped, nil
}

func (w *writer) newName(n featureName) entities.Name {
	text, note := n.text, w.settings.NameNote
	name := entities.Name{
		Text:       &text,
		Note:       &note,
		Informants: []entities.Informant{*w.informant},
	}
	for _, abbr := range n.abbreviations {
		name.Languages = append(name.Languages, *w.languages[abbr])
	}
	return name
}

func (w *writer) addMissingLanguages(tx *gorm.DB, name *entities.Name, abbreviations []string) (bool, error) {
	var missing []entities.Language
	for _, abbr := range abbreviations {
		has := slices.ContainsFunc(name.Languages, func(l entities.Language) bool {
			return l.Abbreviation != nil && *l.Abbreviation == abbr
		})
		if !has {
			missing = append(missing, *w.languages[abbr])
		}
	}
	if len(missing) == 0 {
		return false, nil
	}
	if err := tx.Model(&entities.Name{ID: name.ID}).Association("Languages").Append(missing); err != nil {
		return false, err
	}
	return true, nil
}

func importError(err error, operation string) error {
	return errors.New(err).
		Component("importer").
		Category(errors.CategoryImport).
		Context("operation", operation).
		Build()
}
