package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"afasrapport/internal/backend"
	"afasrapport/internal/cache"
	"afasrapport/internal/core"
	"afasrapport/internal/finview"
	"afasrapport/internal/log"
)

const recordsKeyPrefix = "records:"

// ReportService loads ledger records through the cache and builds financial views.
type ReportService struct {
	records  backend.RecordReader
	mappings backend.MappingStore
	cache    cache.Backend
	ttl      time.Duration
	logger   *log.Logger

	group singleflight.Group
}

// NewReportService wires a report service. cacheBackend may be nil.
func NewReportService(records backend.RecordReader, mappings backend.MappingStore, cacheBackend cache.Backend, ttl time.Duration, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportService{
		records:  records,
		mappings: mappings,
		cache:    cacheBackend,
		ttl:      ttl,
		logger:   logger.WithComponent(log.ComponentReport),
	}
}

func recordsKey(startYear, endYear int) string {
	return fmt.Sprintf("%s%d-%d", recordsKeyPrefix, startYear, endYear)
}

// Records returns the stored records of every year the range touches.
// Concurrent calls for the same span share one store read.
func (s *ReportService) Records(ctx context.Context, rng core.PeriodRange) ([]core.RawTransaction, error) {
	key := recordsKey(rng.StartYear, rng.EndYear)

	if s.cache != nil {
		var cached []core.RawTransaction
		err := cache.GetJSON(ctx, s.cache, key, &cached)
		switch {
		case err == nil:
			s.logger.DebugContext(ctx, "Records served from cache", log.FieldCacheKey, key, log.FieldRecords, len(cached))
			return cached, nil
		case !errors.Is(err, cache.ErrMiss):
			s.logger.WarnContext(ctx, "Cache read failed, using record store", log.FieldCacheKey, key, log.FieldError, err)
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		records, err := s.records.ListRecords(ctx, rng.StartYear, rng.EndYear)
		if err != nil {
			return nil, fmt.Errorf("list records %d-%d: %w", rng.StartYear, rng.EndYear, err)
		}
		if s.cache != nil {
			if err := cache.SetJSON(ctx, s.cache, key, records, s.ttl); err != nil {
				s.logger.WarnContext(ctx, "Cache write failed", log.FieldCacheKey, key, log.FieldError, err)
			}
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.RawTransaction), nil
}

// View builds the financial view for rng, running the consistency checks when asked.
func (s *ReportService) View(ctx context.Context, rng core.PeriodRange, withChecks bool) (*core.FinancialView, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	records, err := s.Records(ctx, rng)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	view := finview.Build(records, rng)
	if withChecks {
		view.FinancialChecks = finview.RunChecks(view)
	}
	s.logger.InfoContext(ctx, "Financial view built",
		log.FieldRange, rng.String(),
		log.FieldRecords, view.Summary.TotalRecords,
		log.FieldMonths, view.Summary.MonthsWithData,
		log.FieldDuration, time.Since(start).Milliseconds())
	return view, nil
}

// Results returns the per-month profit-and-loss lines for rng.
func (s *ReportService) Results(ctx context.Context, rng core.PeriodRange) ([]core.MonthResult, error) {
	view, err := s.View(ctx, rng, false)
	if err != nil {
		return nil, err
	}
	return finview.Results(view), nil
}

// ReportGroups folds the view's categories into the configured report groups.
func (s *ReportService) ReportGroups(ctx context.Context, rng core.PeriodRange) ([]finview.GroupTotal, error) {
	view, err := s.View(ctx, rng, false)
	if err != nil {
		return nil, err
	}
	mappings, err := s.mappings.ListCategoryMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list category mappings: %w", err)
	}
	return finview.GroupTotals(view, mappings), nil
}

// UnmappedCategories lists the categories in rng that have no report group yet.
func (s *ReportService) UnmappedCategories(ctx context.Context, rng core.PeriodRange) ([]string, error) {
	view, err := s.View(ctx, rng, false)
	if err != nil {
		return nil, err
	}
	mappings, err := s.mappings.ListCategoryMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list category mappings: %w", err)
	}
	return finview.UnmappedCategories(view, mappings), nil
}

// Mappings returns all stored category mappings.
func (s *ReportService) Mappings(ctx context.Context) ([]core.CategoryMapping, error) {
	return s.mappings.ListCategoryMappings(ctx)
}

// SaveMappings validates and stores mappings.
func (s *ReportService) SaveMappings(ctx context.Context, mappings []core.CategoryMapping) error {
	for i, m := range mappings {
		if m.Category == "" || m.ReportGroup == "" {
			return fmt.Errorf("%w: mapping %d: category and reportGroup are required", core.ErrInvalidRecord, i)
		}
	}
	for _, m := range mappings {
		if err := s.mappings.UpsertCategoryMapping(ctx, m); err != nil {
			return fmt.Errorf("save mapping %q: %w", m.Category, err)
		}
	}
	return nil
}

// Invalidate drops every cached record span.
func (s *ReportService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.DeletePrefix(ctx, recordsKeyPrefix); err != nil {
		return fmt.Errorf("invalidate record cache: %w", err)
	}
	return nil
}
