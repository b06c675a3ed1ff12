// Package search resolves multi-criteria place queries.
//
// A search combines a base predicate built from criteria (see Parse), an
// optional evidence kind restriction resolved to a set of place ids, an
// optional bounding box and an optional free text match on name texts.
// Every relation is tested with EXISTS subqueries so places are never
// duplicated by join fan-out. The matching ids of a page are computed and
// the places loaded inside one transaction.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/diana-archive/gazetteer/internal/cache"
	"github.com/diana-archive/gazetteer/internal/datastore/entities"
	"github.com/diana-archive/gazetteer/internal/datastore/repository"
	"github.com/diana-archive/gazetteer/internal/errors"
	"github.com/diana-archive/gazetteer/internal/logger"
	"github.com/diana-archive/gazetteer/internal/observability/metrics"
)

// Page size and depth defaults.
const (
	DefaultPageSize    = 20
	MaxPageSize        = 100
	DefaultSearchDepth = repository.DepthFlat
	DefaultDetailDepth = repository.DepthFull
)

// defaultMaxInlineIDs bounds the evidence id set passed as an IN list. Larger
// sets are intersected in Go.
const defaultMaxInlineIDs = 5000

// cacheKeyVersion is bumped whenever the cached payload or key layout changes.
const cacheKeyVersion = "search:v1:"

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the search package logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("search")
	})
	return serviceLogger
}

// Metrics receives search instrumentation. *metrics.SearchMetrics implements it.
type Metrics interface {
	RecordSearchOperation(searchType, status string)
	RecordSearchDuration(searchType string, duration float64)
	RecordSearchResultSize(searchType string, resultSize int)
	RecordSearchComplexity(searchType string, complexity float64)
	RecordSharedSearch(searchType string)
	RecordCacheOperation(backend, operation, result string)
}

// Result is one page of places.
type Result struct {
	Places   []*entities.Place
	Count    int64 // total matches over all pages
	Page     int
	PageSize int
	Pages    int
	Depth    int
	Cached   bool // ids came from the result cache
}

// Service runs searches against the gazetteer database.
type Service struct {
	db      *gorm.DB
	places  repository.PlaceRepository
	cache   cache.Cache
	ttl     time.Duration
	metrics Metrics
	group   singleflight.Group

	defaultSize int
	maxSize     int
	searchDepth int
	detailDepth int

	maxInlineIDs int
}

// Option configures a Service.
type Option func(*Service)

// WithCache caches the matching ids of each page for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.ttl = ttl
	}
}

// WithMetrics records search metrics.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPageSizes sets the default and maximum page size.
func WithPageSizes(defaultSize, maxSize int) Option {
	return func(s *Service) {
		if maxSize > 0 {
			s.maxSize = maxSize
		}
		if defaultSize > 0 {
			s.defaultSize = min(defaultSize, s.maxSize)
		}
	}
}

// WithDepths sets the default expansion depth of searches and of single place lookups.
func WithDepths(searchDepth, detailDepth int) Option {
	return func(s *Service) {
		s.searchDepth = repository.ClampDepth(searchDepth)
		s.detailDepth = repository.ClampDepth(detailDepth)
	}
}

// NewService returns a search service on db.
func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:          db,
		places:      repository.NewPlaceRepository(db),
		cache:       cache.Noop{},
		defaultSize: DefaultPageSize,
		maxSize:     MaxPageSize,
		searchDepth: DefaultSearchDepth,
		detailDepth: DefaultDetailDepth,

		maxInlineIDs: defaultMaxInlineIDs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// query is a validated Request.
type query struct {
	Mode     MatchMode      `json:"mode"`
	Criteria Criteria       `json:"criteria"`
	Kind     EvidenceKind   `json:"kind"`
	Spatial  *SpatialFilter `json:"spatial,omitempty"`
	Text     string         `json:"text,omitempty"`
	Page     int            `json:"page"`
	Size     int            `json:"size"`
	Order    string         `json:"order"`

	depth int
}

func (s *Service) validate(req Request) (*query, error) {
	criteria, err := Parse(req.Criteria)
	if err != nil {
		return nil, err
	}
	kind, err := ParseEvidenceKind(req.Source)
	if err != nil {
		return nil, err
	}

	q := &query{
		Mode:     req.Mode,
		Criteria: criteria,
		Kind:     kind,
		Text:     strings.TrimSpace(req.Text),
	}

	switch {
	case strings.TrimSpace(req.BBox) != "":
		box, err := ParseBBox(req.BBox)
		if err != nil {
			return nil, err
		}
		policy, err := ParseSpatialPolicy(req.BBoxOverlap)
		if err != nil {
			return nil, err
		}
		q.Spatial = &SpatialFilter{Box: box, Policy: policy}
	case strings.TrimSpace(req.BBoxOverlap) != "":
		return nil, missingParameter(ParamBBoxOverlap, "requires "+ParamBBox)
	}

	switch {
	case req.Page < 0:
		return nil, invalidValue(ParamPage, fmt.Sprint(req.Page), "expected a positive integer")
	case req.Page == 0:
		q.Page = 1
	default:
		q.Page = req.Page
	}

	switch {
	case req.Size < 0:
		return nil, invalidValue(ParamSize, fmt.Sprint(req.Size), "expected a positive integer")
	case req.Size == 0:
		q.Size = s.defaultSize
	default:
		q.Size = min(req.Size, s.maxSize)
	}

	q.depth = s.searchDepth
	if req.Depth != nil {
		if *req.Depth < repository.DepthFlat || *req.Depth > repository.DepthFull {
			return nil, invalidValue(ParamDepth, fmt.Sprint(*req.Depth), "expected 0, 1 or 2")
		}
		q.depth = *req.Depth
	}

	if q.Order, err = parseOrdering(req.Ordering); err != nil {
		return nil, err
	}
	return q, nil
}

// complexity counts the active constraints of q.
func (q *query) complexity() int {
	n := q.Criteria.Count()
	if q.Kind != EvidenceNone {
		n++
	}
	if q.Spatial != nil {
		n++
	}
	if q.Text != "" {
		n++
	}
	return n
}

// cacheKey identifies the id page of q. Depth is not part of it since only
// ids are cached.
func (q *query) cacheKey() (string, error) {
	b, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return cacheKeyVersion + hex.EncodeToString(sum[:]), nil
}

// idPage is the cached form of a result page.
type idPage struct {
	IDs   []uint `json:"ids"`
	Count int64  `json:"count"`
}

// Search validates req and returns the requested page.
func (s *Service) Search(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	searchType := searchTypeOf(req.Mode)

	q, err := s.validate(req)
	if err != nil {
		s.recordOutcome(searchType, start, err, 0)
		return nil, err
	}
	s.recordComplexity(searchType, q.complexity())

	key, err := q.cacheKey()
	if err != nil {
		err = errors.New(err).
			Component("search").
			Category(errors.CategorySearch).
			Context("operation", "cache_key").
			Build()
		s.recordOutcome(searchType, start, err, 0)
		return nil, err
	}

	v, err, shared := s.group.Do(fmt.Sprintf("%s:%d", key, q.depth), func() (any, error) {
		return s.run(ctx, q, key)
	})
	if shared {
		s.recordShared(searchType)
	}
	if err != nil {
		s.recordOutcome(searchType, start, err, 0)
		return nil, err
	}

	res := v.(*Result)
	s.recordOutcome(searchType, start, nil, len(res.Places))

	GetLogger().Debug("search completed",
		logger.String("mode", q.Mode.String()),
		logger.Int("criteria", q.complexity()),
		logger.Int64("count", res.Count),
		logger.Int("page", res.Page),
		logger.Bool("cached", res.Cached),
		logger.Duration("elapsed", time.Since(start)))

	return res, nil
}

func (s *Service) run(ctx context.Context, q *query, key string) (*Result, error) {
	page, hit := s.lookup(ctx, key)

	var places []*entities.Place
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !hit {
			p, err := s.resolvePage(ctx, tx, q)
			if err != nil {
				return err
			}
			page = p
		}
		var err error
		places, err = s.expand(ctx, tx, page.IDs, q.depth)
		return err
	})
	if err != nil {
		return nil, storageError(err, "search")
	}

	if !hit {
		s.store(ctx, key, page)
	}

	return &Result{
		Places:   places,
		Count:    page.Count,
		Page:     q.Page,
		PageSize: q.Size,
		Pages:    pageCount(page.Count, q.Size),
		Depth:    q.depth,
		Cached:   hit,
	}, nil
}

// resolvePage computes the ids of the requested page and the total count.
func (s *Service) resolvePage(ctx context.Context, tx *gorm.DB, q *query) (*idPage, error) {
	evidenceIDs, err := ResolverFor(q.Kind).ResolvePlaceIDs(ctx, tx, q.Criteria, q.Mode)
	if err != nil {
		return nil, err
	}
	if evidenceIDs != nil && evidenceIDs.Len() == 0 {
		return &idPage{IDs: []uint{}}, nil
	}

	criteria := q.Criteria
	if q.Kind != EvidenceNone {
		// already applied to the evidence records by the resolver
		criteria = criteria.withoutInformant()
	}

	base := tx.WithContext(ctx).Model(&entities.Place{})
	for _, scope := range BuildScopes(criteria, q.Mode) {
		base = scope(base)
	}
	if q.Text != "" {
		base = FreeTextScope(q.Text)(base)
	}
	if q.Spatial != nil {
		base = q.Spatial.Scope()(base)
	}

	inline := evidenceIDs != nil && evidenceIDs.Len() <= s.maxInlineIDs
	if inline {
		base = base.Where(placeIDColumn+" IN ?", evidenceIDs.Sorted())
	}
	base = base.Session(&gorm.Session{})

	refine := q.Spatial != nil && q.Spatial.NeedsRefinement()
	if !refine && (evidenceIDs == nil || inline) {
		return pageInSQL(base, q)
	}
	return pageInGo(base, q, evidenceIDs, refine)
}

// pageInSQL counts and paginates in the database.
func pageInSQL(base *gorm.DB, q *query) (*idPage, error) {
	var count int64
	if err := base.Count(&count).Error; err != nil {
		return nil, err
	}

	ids := []uint{}
	offset := (q.Page - 1) * q.Size
	if int64(offset) < count {
		if err := base.Order(q.Order).Offset(offset).Limit(q.Size).Pluck(placeIDColumn, &ids).Error; err != nil {
			return nil, err
		}
	}
	return &idPage{IDs: ids, Count: count}, nil
}

type candidate struct {
	ID       uint
	Geometry entities.Geometry
}

// pageInGo loads all candidates in order and applies the exact spatial test
// and large evidence id sets before paginating.
func pageInGo(base *gorm.DB, q *query, evidenceIDs IDSet, refine bool) (*idPage, error) {
	columns := []string{placeIDColumn}
	if refine {
		columns = append(columns, entities.TablePlaces+".geometry")
	}

	var candidates []candidate
	if err := base.Select(columns).Order(q.Order).Find(&candidates).Error; err != nil {
		return nil, err
	}

	matched := make([]uint, 0, len(candidates))
	for _, c := range candidates {
		if evidenceIDs != nil && !evidenceIDs.Has(c.ID) {
			continue
		}
		if refine && !q.Spatial.Matches(c.Geometry.Geometry) {
			continue
		}
		matched = append(matched, c.ID)
	}

	from := min((q.Page-1)*q.Size, len(matched))
	to := min(from+q.Size, len(matched))
	return &idPage{IDs: append([]uint{}, matched[from:to]...), Count: int64(len(matched))}, nil
}

// Get returns a single place expanded to depth, or to the detail depth when
// depth is nil.
func (s *Service) Get(ctx context.Context, id uint, depth *int) (*entities.Place, error) {
	start := time.Now()

	d := s.detailDepth
	if depth != nil {
		if *depth < repository.DepthFlat || *depth > repository.DepthFull {
			err := invalidValue(ParamDepth, fmt.Sprint(*depth), "expected 0, 1 or 2")
			s.recordOutcome(metrics.LabelSearchDetail, start, err, 0)
			return nil, err
		}
		d = *depth
	}

	place, err := s.places.GetByID(ctx, id, d)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			err = storageError(err, "get")
		}
		s.recordOutcome(metrics.LabelSearchDetail, start, err, 0)
		return nil, err
	}
	s.recordOutcome(metrics.LabelSearchDetail, start, nil, 1)
	return place, nil
}

// Invalidate drops all cached result pages. Call it after writes.
func (s *Service) Invalidate(ctx context.Context) error {
	if err := s.cache.Flush(ctx); err != nil {
		return errors.New(err).
			Component("search").
			Category(errors.CategoryCache).
			Context("backend", s.cache.Name()).
			Build()
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, key string) (*idPage, bool) {
	b, found, err := s.cache.Get(ctx, key)
	if err != nil {
		GetLogger().Warn("search cache lookup failed",
			logger.String("backend", s.cache.Name()),
			logger.Error(err))
		s.recordCache(metrics.OpCacheGet, metrics.StatusError)
		return nil, false
	}
	if !found {
		s.recordCache(metrics.OpCacheGet, metrics.LabelMiss)
		return nil, false
	}

	var page idPage
	if err := json.Unmarshal(b, &page); err != nil {
		GetLogger().Warn("discarding undecodable cache entry", logger.Error(err))
		s.recordCache(metrics.OpCacheGet, metrics.StatusError)
		return nil, false
	}
	s.recordCache(metrics.OpCacheGet, metrics.LabelHit)
	return &page, true
}

func (s *Service) store(ctx context.Context, key string, page *idPage) {
	b, err := json.Marshal(page)
	if err == nil {
		err = s.cache.Set(ctx, key, b, s.ttl)
	}
	if err != nil {
		GetLogger().Warn("search cache store failed",
			logger.String("backend", s.cache.Name()),
			logger.Error(err))
		s.recordCache(metrics.OpCacheSet, metrics.StatusError)
		return
	}
	s.recordCache(metrics.OpCacheSet, metrics.StatusSuccess)
}

// storageError marks a database failure, or a spatial one when a stored
// geometry cannot be decoded. The cause stays in the chain.
func storageError(err error, operation string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	category := errors.CategoryDatabase
	if errors.Is(err, entities.ErrInvalidGeometry) {
		category = errors.CategorySpatial
	}
	return errors.New(err).
		Component("search").
		Category(category).
		Context("operation", operation).
		Build()
}

func pageCount(count int64, size int) int {
	if count == 0 || size <= 0 {
		return 0
	}
	return int(math.Ceil(float64(count) / float64(size)))
}

func searchTypeOf(mode MatchMode) string {
	if mode == MatchExact {
		return metrics.LabelSearchExact
	}
	return metrics.LabelSearchList
}

func (s *Service) recordOutcome(searchType string, start time.Time, err error, size int) {
	if s.metrics == nil {
		return
	}
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	s.metrics.RecordSearchOperation(searchType, status)
	s.metrics.RecordSearchDuration(searchType, time.Since(start).Seconds())
	if err == nil {
		s.metrics.RecordSearchResultSize(searchType, size)
	}
}

func (s *Service) recordComplexity(searchType string, n int) {
	if s.metrics != nil {
		s.metrics.RecordSearchComplexity(searchType, float64(n))
	}
}

func (s *Service) recordShared(searchType string) {
	if s.metrics != nil {
		s.metrics.RecordSharedSearch(searchType)
	}
}

func (s *Service) recordCache(operation, result string) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(s.cache.Name(), operation, result)
	}
}
