package afas

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"afasrapport/internal/log"
)

// fakeConnector serves total rows for the requested year.
func fakeConnector(t *testing.T, total int, hook func(w http.ResponseWriter, r *http.Request) bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hook != nil && hook(w, r) {
			return
		}
		want := "AfasToken " + base64.StdEncoding.EncodeToString([]byte("<token>abc</token>"))
		if r.Header.Get("Authorization") != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/connectors/Financiele_mutaties" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		q := r.URL.Query()
		year, _ := strconv.Atoi(q.Get("filtervalues"))
		skip, _ := strconv.Atoi(q.Get("skip"))
		take, _ := strconv.Atoi(q.Get("take"))
		assert.Equal(t, "Jaar", q.Get("filterfieldids"))
		assert.Equal(t, "1", q.Get("operatortypes"))

		rows := []map[string]any{}
		for i := skip; i < total && i < skip+take; i++ {
			rows = append(rows, map[string]any{
				"Jaar":          year,
				"Periode":       i%12 + 1,
				"Bedrag_credit": fmt.Sprintf("%d,50", i),
				"Volgnummer":    i,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"skip": skip, "take": take, "rows": rows})
	}))
}

func newTestClient(t *testing.T, baseURL string, pageSize, concurrency int) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:     baseURL,
		Token:       "<token>abc</token>",
		Connector:   "Financiele_mutaties",
		PageSize:    pageSize,
		Concurrency: concurrency,
		Timeout:     5 * time.Second,
	}, log.Discard())
	require.NoError(t, err)
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestFetchYearPaginates(t *testing.T) {
	tests := []struct {
		name        string
		total       int
		pageSize    int
		concurrency int
	}{
		{"single short page", 3, 10, 1},
		{"exact multiple of page size", 20, 10, 2},
		{"several waves", 47, 5, 3},
		{"empty year", 0, 10, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeConnector(t, tt.total, nil)
			defer srv.Close()

			rows, err := newTestClient(t, srv.URL, tt.pageSize, tt.concurrency).FetchYear(context.Background(), 2024)
			require.NoError(t, err)
			require.Len(t, rows, tt.total)
			for i, r := range rows {
				assert.Equal(t, 2024, r.Jaar)
				assert.Equal(t, float64(i)+0.5, r.BedragCredit)
				assert.JSONEq(t, strconv.Itoa(i), string(r.Extra["Volgnummer"]), "rows stay in order")
			}
		})
	}
}

func TestFetchYearRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := fakeConnector(t, 2, func(w http.ResponseWriter, r *http.Request) bool {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return true
		}
		return false
	})
	defer srv.Close()

	rows, err := newTestClient(t, srv.URL, 10, 1).FetchYear(context.Background(), 2024)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchYearGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := fakeConnector(t, 2, func(w http.ResponseWriter, r *http.Request) bool {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		return true
	})
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 10, 1).FetchYear(context.Background(), 2024)
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestFetchYearRetriesRequestTimeouts(t *testing.T) {
	var calls atomic.Int32
	srv := fakeConnector(t, 2, func(w http.ResponseWriter, r *http.Request) bool {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(300 * time.Millisecond):
			}
			return true
		}
		return false
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL, 10, 1)
	c.http.Timeout = 100 * time.Millisecond

	rows, err := c.FetchYear(context.Background(), 2024)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchYearStopsWhenCallerCancels(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	srv := fakeConnector(t, 2, func(w http.ResponseWriter, r *http.Request) bool {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusBadGateway)
		return true
	})
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 10, 1).FetchYear(ctx, 2024)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&StatusError{StatusCode: http.StatusBadGateway}))
	assert.False(t, retryable(&StatusError{StatusCode: http.StatusUnauthorized}))
	assert.True(t, retryable(&url.Error{Op: "Get", URL: "http://afas", Err: context.DeadlineExceeded}))
	assert.False(t, retryable(fmt.Errorf("parse rows: %w", errors.New("bad row"))))
}

func TestFetchYearDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := fakeConnector(t, 2, func(w http.ResponseWriter, r *http.Request) bool {
		calls.Add(1)
		return false
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL, 10, 1)
	c.auth = "AfasToken wrong"

	_, err := c.FetchYear(context.Background(), 2024)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchYearRejectsMalformedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"skip":0,"take":10,"rows":[{"Jaar":"twintig"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 10, 1)
	_, err := c.FetchYear(context.Background(), 2024)
	assert.Error(t, err)
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Options{Connector: "x"}, log.Discard())
	assert.Error(t, err)
	_, err = NewClient(Options{BaseURL: "http://x", Token: "t"}, log.Discard())
	assert.Error(t, err)
}

func TestExponentialBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, exponentialBackoff(1))
	assert.Equal(t, time.Second, exponentialBackoff(2))
	assert.Equal(t, 2*time.Second, exponentialBackoff(3))
}
