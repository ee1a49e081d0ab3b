// Package afas fetches ledger rows from an AFAS Profit GetConnector.
package afas

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"afasrapport/internal/core"
	"afasrapport/internal/log"
)

const (
	maxAttempts   = 3
	baseBackoff   = 500 * time.Millisecond
	maxErrorBytes = 512
)

// Options configures a Client.
type Options struct {
	BaseURL     string // e.g. https://12345.rest.afas.online/ProfitRestServices
	Token       string // raw <token>...</token> XML
	Connector   string
	PageSize    int
	Concurrency int
	Timeout     time.Duration
}

type Client struct {
	baseURL     string
	auth        string
	connector   string
	pageSize    int
	concurrency int
	http        *http.Client
	logger      *log.Logger
	backoff     func(attempt int) time.Duration
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("afas: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed when repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type connectorResponse struct {
	Skip int             `json:"skip"`
	Take int             `json:"take"`
	Rows json.RawMessage `json:"rows"`
}

func NewClient(opts Options, logger *log.Logger) (*Client, error) {
	if opts.BaseURL == "" || opts.Token == "" {
		return nil, errors.New("afas: base URL and token are required")
	}
	if opts.Connector == "" {
		return nil, errors.New("afas: connector name is required")
	}
	if opts.PageSize < 1 {
		opts.PageSize = 1000
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:     opts.BaseURL,
		auth:        "AfasToken " + base64.StdEncoding.EncodeToString([]byte(opts.Token)),
		connector:   opts.Connector,
		pageSize:    opts.PageSize,
		concurrency: opts.Concurrency,
		http:        &http.Client{Timeout: opts.Timeout},
		logger:      logger.WithComponent(log.ComponentAFAS),
		backoff:     exponentialBackoff,
	}, nil
}

// FetchYear returns every connector row with Jaar == year.
//
// Pages are requested in waves of Concurrency parallel requests. The first
// page shorter than PageSize marks the end of the data set.
func (c *Client) FetchYear(ctx context.Context, year int) ([]core.RawTransaction, error) {
	start := time.Now()
	var all []core.RawTransaction

	for wave := 0; ; wave++ {
		pages := make([][]core.RawTransaction, c.concurrency)

		g, gctx := errgroup.WithContext(ctx)
		for i := range pages {
			page := wave*c.concurrency + i
			g.Go(func() error {
				rows, err := c.fetchPageWithRetry(gctx, year, page)
				if err != nil {
					return fmt.Errorf("page %d: %w", page, err)
				}
				pages[i] = rows
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("fetch %s year %d: %w", c.connector, year, err)
		}

		for _, rows := range pages {
			all = append(all, rows...)
			if len(rows) < c.pageSize {
				c.logger.InfoContext(ctx, "AFAS year fetched",
					log.FieldConnector, c.connector,
					log.FieldYear, year,
					log.FieldRecords, len(all),
					log.FieldDuration, time.Since(start).Milliseconds())
				return all, nil
			}
		}
	}
}

func (c *Client) fetchPageWithRetry(ctx context.Context, year, page int) ([]core.RawTransaction, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		rows, err := c.fetchPage(ctx, year, page)
		if err == nil {
			return rows, nil
		}
		lastErr = err
		// The caller gave up; per-request timeouts are retried below.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable(err) {
			return nil, err
		}
		c.logger.WarnContext(ctx, "AFAS page request failed, retrying",
			log.FieldPage, page, log.FieldAttempt, attempt+1, log.FieldError, err)
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) fetchPage(ctx context.Context, year, page int) ([]core.RawTransaction, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(page*c.pageSize))
	q.Set("take", strconv.Itoa(c.pageSize))
	q.Set("filterfieldids", core.FieldJaar)
	q.Set("filtervalues", strconv.Itoa(year))
	q.Set("operatortypes", "1")

	endpoint := fmt.Sprintf("%s/connectors/%s?%s", c.baseURL, url.PathEscape(c.connector), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload connectorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	records, err := core.ParseRecords(payload.Rows)
	if err != nil {
		return nil, fmt.Errorf("parse rows: %w", err)
	}
	return records, nil
}

// retryable classifies a page error once the caller's context is known to
// be live.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	// Transport failures: connection reset, client timeouts, DNS.
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	// Client.Timeout can also fire while the body is being decoded.
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func exponentialBackoff(attempt int) time.Duration {
	return baseBackoff << (attempt - 1)
}
