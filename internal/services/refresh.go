package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"afasrapport/internal/amqp"
	"afasrapport/internal/backend"
	"afasrapport/internal/core"
	"afasrapport/internal/log"
)

// MaxRefreshYears bounds a single refresh request.
const MaxRefreshYears = 10

var ErrAFASNotConfigured = errors.New("AFAS connector is not configured")

// Fetcher loads one fiscal year of ledger records from the source system.
type Fetcher interface {
	FetchYear(ctx context.Context, year int) ([]core.RawTransaction, error)
}

// Publisher queues refresh requests for a worker.
type Publisher interface {
	PublishRefreshRequest(ctx context.Context, msg *amqp.RefreshRequestMessage) error
}

// Invalidator drops cached data after the record store changed.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// YearRefresh reports what one year's refresh stored.
type YearRefresh struct {
	Year    int `json:"year"`
	Records int `json:"records"`
}

// RefreshOutcome is returned by RequestRefresh.
type RefreshOutcome struct {
	Queued    bool          `json:"queued"`
	MessageID string        `json:"messageId,omitempty"`
	Years     []YearRefresh `json:"years,omitempty"`
}

// RefreshService pulls AFAS data into the record store.
type RefreshService struct {
	fetcher     Fetcher
	store       backend.RecordWriter
	invalidator Invalidator
	publisher   Publisher
	logger      *log.Logger
}

// NewRefreshService wires a refresh service. fetcher, invalidator and
// publisher may be nil.
func NewRefreshService(fetcher Fetcher, store backend.RecordWriter, invalidator Invalidator, publisher Publisher, logger *log.Logger) *RefreshService {
	if logger == nil {
		logger = log.Discard()
	}
	return &RefreshService{
		fetcher:     fetcher,
		store:       store,
		invalidator: invalidator,
		publisher:   publisher,
		logger:      logger.WithComponent(log.ComponentRefresh),
	}
}

func validateYears(startYear, endYear int) error {
	if startYear > endYear {
		return fmt.Errorf("%w: start year %d is after end year %d", core.ErrInvalidRange, startYear, endYear)
	}
	if endYear-startYear+1 > MaxRefreshYears {
		return fmt.Errorf("%w: at most %d years per refresh", core.ErrInvalidRange, MaxRefreshYears)
	}
	return nil
}

// Refresh fetches every year in [startYear, endYear] and replaces it in the store.
// Years already stored stay replaced when a later year fails.
func (s *RefreshService) Refresh(ctx context.Context, startYear, endYear int) ([]YearRefresh, error) {
	if err := validateYears(startYear, endYear); err != nil {
		return nil, err
	}
	if s.fetcher == nil {
		return nil, ErrAFASNotConfigured
	}

	start := time.Now()
	done := make([]YearRefresh, 0, endYear-startYear+1)
	defer func() {
		if len(done) > 0 {
			s.invalidate(ctx)
		}
	}()

	for year := startYear; year <= endYear; year++ {
		records, err := s.fetcher.FetchYear(ctx, year)
		if err != nil {
			return done, fmt.Errorf("fetch year %d: %w", year, err)
		}
		n, err := s.store.ReplaceYear(ctx, year, records)
		if err != nil {
			return done, fmt.Errorf("store year %d: %w", year, err)
		}
		s.logger.InfoContext(ctx, "Year refreshed", log.FieldYear, year, log.FieldRecords, n)
		done = append(done, YearRefresh{Year: year, Records: n})
	}

	s.logger.InfoContext(ctx, "Refresh completed",
		log.FieldStartYear, startYear,
		log.FieldEndYear, endYear,
		log.FieldDuration, time.Since(start).Milliseconds())
	return done, nil
}

func (s *RefreshService) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	// The store already changed; a stale cache expires on its own TTL.
	if err := s.invalidator.Invalidate(context.WithoutCancel(ctx)); err != nil {
		s.logger.WarnContext(ctx, "Cache invalidation failed", log.FieldError, err)
	}
}

// RequestRefresh queues a refresh on the message broker, or runs it inline
// when no broker is configured or publishing fails.
func (s *RefreshService) RequestRefresh(ctx context.Context, startYear, endYear int, reason string) (RefreshOutcome, error) {
	if err := validateYears(startYear, endYear); err != nil {
		return RefreshOutcome{}, err
	}

	if s.publisher != nil {
		msg := amqp.NewRefreshRequestMessage(startYear, endYear, reason)
		err := s.publisher.PublishRefreshRequest(ctx, msg)
		if err == nil {
			s.logger.InfoContext(ctx, "Refresh request queued",
				log.FieldMessageID, msg.ID,
				log.FieldStartYear, startYear,
				log.FieldEndYear, endYear)
			return RefreshOutcome{Queued: true, MessageID: msg.ID}, nil
		}
		s.logger.ErrorContext(ctx, "Failed to publish refresh request, refreshing inline", log.FieldError, err)
	} else {
		s.logger.WarnContext(ctx, "AMQP client not available, refreshing inline")
	}

	years, err := s.Refresh(ctx, startYear, endYear)
	if err != nil {
		return RefreshOutcome{Years: years}, err
	}
	return RefreshOutcome{Years: years}, nil
}

// HandleRefreshMessage adapts Refresh to the AMQP consumer.
func (s *RefreshService) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshRequestMessage) error {
	s.logger.InfoContext(ctx, "Processing refresh request",
		log.FieldMessageID, msg.ID,
		log.FieldStartYear, msg.StartYear,
		log.FieldEndYear, msg.EndYear)
	_, err := s.Refresh(ctx, msg.StartYear, msg.EndYear)
	return err
}
