package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"deal-feed-service/internal/feed"
	"deal-feed-service/internal/models"
	"deal-feed-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// AffinitySource supplies the brands users are interested in, most popular first
type AffinitySource interface {
	GetPopularBrands(ctx context.Context, limit int) ([]string, error)
}

// FeedSource downloads the raw feed text
type FeedSource interface {
	Fetch(ctx context.Context) (string, error)
}

// ProductSink persists products keyed by AwinID
type ProductSink interface {
	UpsertProduct(ctx context.Context, p *models.Product) error
}

// DealPublisher announces persisted deals and finished runs
type DealPublisher interface {
	PublishDeals(ctx context.Context, events []*models.DealUpsertedEvent) error
	PublishRunCompleted(ctx context.Context, event *models.FeedRunCompletedEvent) error
}

// IngestConfig tunes one feed run
type IngestConfig struct {
	MinDiscount         int
	MaxBrands           int
	UpsertWorkers       int
	UpsertRatePerSecond float64
}

// RunReport describes the outcome of one feed run
type RunReport struct {
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration"`
	Brands            int           `json:"brands"`
	BytesFetched      int           `json:"bytes_fetched"`
	FetchError        string        `json:"fetch_error,omitempty"`
	Lines             int           `json:"lines"`
	Parsed            int           `json:"parsed"`
	Malformed         int           `json:"malformed"`
	DroppedBrand      int           `json:"dropped_brand"`
	DroppedDiscount   int           `json:"dropped_discount"`
	TransformFailures int           `json:"transform_failures"`
	Duplicates        int           `json:"duplicates"`
	Accepted          int           `json:"accepted"`
	Persisted         int           `json:"persisted"`
}

// IngestService runs the feed pipeline: brands, fetch, parse, filter, upsert
type IngestService struct {
	affinity  AffinitySource
	source    FeedSource
	sink      ProductSink
	matcher   feed.BrandMatcher
	publisher DealPublisher
	cache     Cache
	cfg       IngestConfig
	logger    *zap.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(
	affinity AffinitySource,
	source FeedSource,
	sink ProductSink,
	matcher feed.BrandMatcher,
	cfg IngestConfig,
) *IngestService {
	if matcher == nil {
		matcher = feed.NewKeywordMatcher()
	}
	if cfg.MaxBrands <= 0 {
		cfg.MaxBrands = 20
	}
	if cfg.UpsertWorkers <= 0 {
		cfg.UpsertWorkers = 1
	}
	return &IngestService{
		affinity: affinity,
		source:   source,
		sink:     sink,
		matcher:  matcher,
		cfg:      cfg,
		logger:   util.GetLogger(),
	}
}

// WithPublisher sets the publisher used for deal and run events
func (s *IngestService) WithPublisher(p DealPublisher) *IngestService {
	s.publisher = p
	return s
}

// WithCache sets the cache whose statistics are invalidated after each run
func (s *IngestService) WithCache(c Cache) *IngestService {
	s.cache = c
	return s
}

// Run executes one complete pipeline pass.
// A failed download yields an empty, successful run; read and persistence errors fail it.
func (s *IngestService) Run(ctx context.Context) (report *RunReport, err error) {
	ctx, span := util.StartSpan(ctx, "IngestService.Run")
	start := time.Now()
	report = &RunReport{StartedAt: start}

	defer func() {
		report.Duration = time.Since(start)
		util.EndSpan(span, err)
		s.publishRunCompleted(report, err)
	}()

	brands, err := s.affinity.GetPopularBrands(ctx, s.cfg.MaxBrands)
	if err != nil {
		return report, fmt.Errorf("failed to load brands of interest: %w", err)
	}
	set := feed.NewAffinitySet(brands)
	report.Brands = set.Len()
	util.AffinityBrands.Set(float64(set.Len()))

	if set.Len() == 0 {
		s.logger.Info("No brands of interest, skipping feed download")
		return report, nil
	}
	s.logger.Info("Filtering feed for brands of interest", zap.Strings("brands", set.Names()))

	raw, fetchErr := s.source.Fetch(ctx)
	if fetchErr != nil {
		util.FeedFetchErrorsTotal.Inc()
		report.FetchError = fetchErr.Error()
		s.logger.Warn("Feed download failed, no products this run", zap.Error(fetchErr))
		return report, nil
	}
	report.BytesFetched = len(raw)
	util.FeedBytesFetched.Add(float64(len(raw)))

	records, parseStats := feed.Parse(raw)
	report.Lines = parseStats.Lines
	report.Parsed = parseStats.Parsed
	report.Malformed = parseStats.Malformed
	util.FeedRowsTotal.WithLabelValues("parsed").Add(float64(parseStats.Parsed))
	util.FeedRowsTotal.WithLabelValues("malformed").Add(float64(parseStats.Malformed))

	products, filterStats := feed.FilterAndTransform(records, set, s.cfg.MinDiscount, s.matcher)
	report.DroppedBrand = filterStats.DroppedBrand
	report.DroppedDiscount = filterStats.DroppedDiscount
	report.TransformFailures = filterStats.TransformFailures
	util.FeedRecordsDroppedTotal.WithLabelValues("brand").Add(float64(filterStats.DroppedBrand))
	util.FeedRecordsDroppedTotal.WithLabelValues("discount").Add(float64(filterStats.DroppedDiscount))
	util.FeedRecordsDroppedTotal.WithLabelValues("transform").Add(float64(filterStats.TransformFailures))

	products, duplicates := dedupeByAwinID(products)
	report.Duplicates = duplicates
	report.Accepted = len(products)
	util.ProductsAcceptedTotal.Add(float64(len(products)))

	persisted, err := s.persist(ctx, products)
	report.Persisted = persisted
	if persisted > 0 {
		// rows already written change the stats even if the run fails
		s.invalidateStats(ctx)
	}
	if err != nil {
		return report, fmt.Errorf("failed to persist products: %w", err)
	}

	s.publishDeals(ctx, products)

	return report, nil
}

// persist upserts products on a bounded, rate limited worker pool.
// The first failed upsert cancels the rest.
func (s *IngestService) persist(ctx context.Context, products []models.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	limit := rate.Inf
	if s.cfg.UpsertRatePerSecond > 0 {
		limit = rate.Limit(s.cfg.UpsertRatePerSecond)
	}
	limiter := rate.NewLimiter(limit, s.cfg.UpsertWorkers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.UpsertWorkers)

	var persisted atomic.Int64
	var waitErr error
	for i := range products {
		p := &products[i]
		if err := limiter.Wait(gctx); err != nil {
			waitErr = err
			break
		}
		g.Go(func() error {
			start := time.Now()
			err := s.sink.UpsertProduct(gctx, p)
			util.ProductUpsertLatency.Observe(time.Since(start).Seconds())
			if err != nil {
				util.ProductUpsertFailuresTotal.Inc()
				return err
			}
			util.ProductsUpsertedTotal.Inc()
			persisted.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(persisted.Load()), err
	}
	return int(persisted.Load()), waitErr
}

// dedupeByAwinID keeps the last product seen for each AwinID
func dedupeByAwinID(products []models.Product) ([]models.Product, int) {
	index := make(map[int64]int, len(products))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if i, ok := index[p.AwinID]; ok {
			out[i] = p
			continue
		}
		index[p.AwinID] = len(out)
		out = append(out, p)
	}
	return out, len(products) - len(out)
}

func (s *IngestService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, StatsCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate cached stats", zap.Error(err))
	}
}

func (s *IngestService) publishDeals(ctx context.Context, products []models.Product) {
	if s.publisher == nil || len(products) == 0 {
		return
	}

	now := time.Now()
	events := make([]*models.DealUpsertedEvent, 0, len(products))
	for _, p := range products {
		events = append(events, &models.DealUpsertedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeDealUpserted,
				Timestamp: now,
			},
			AwinID:   p.AwinID,
			Brand:    p.Brand,
			Name:     p.Name,
			Retailer: p.Retailer,
			Price:    p.Price,
			Discount: p.Discount,
			URL:      p.URL,
		})
	}

	if err := s.publisher.PublishDeals(ctx, events); err != nil {
		s.logger.Error("Failed to publish DealUpserted events", zap.Int("count", len(events)), zap.Error(err))
	}
}

func (s *IngestService) publishRunCompleted(report *RunReport, runErr error) {
	if s.publisher == nil {
		return
	}

	event := &models.FeedRunCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeFeedRunCompleted,
			Timestamp: time.Now(),
		},
		Status:     models.RunStatusSucceeded,
		Brands:     report.Brands,
		Parsed:     report.Parsed,
		Malformed:  report.Malformed,
		Accepted:   report.Accepted,
		Persisted:  report.Persisted,
		FetchError: report.FetchError,
		DurationMs: report.Duration.Milliseconds(),
	}
	if runErr != nil {
		event.Status = models.RunStatusFailed
		event.Error = runErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.publisher.PublishRunCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish FeedRunCompleted event", zap.Error(err))
	}
}
