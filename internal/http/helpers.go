package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"afasrapport/internal/core"
	"afasrapport/internal/log"
	"afasrapport/internal/services"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

// parseRange reads startYear, startMonth, endYear and endMonth from the query.
// Missing years default to the other year, or to the current calendar year;
// missing months span the full year.
func parseRange(r *http.Request, now time.Time) (core.PeriodRange, error) {
	q := r.URL.Query()
	get := func(name string) (int, bool, error) {
		v := strings.TrimSpace(q.Get(name))
		if v == "" {
			return 0, false, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %s must be a whole number, got %q", core.ErrInvalidRange, name, v)
		}
		return n, true, nil
	}

	startYear, hasStart, err := get("startYear")
	if err != nil {
		return core.PeriodRange{}, err
	}
	endYear, hasEnd, err := get("endYear")
	if err != nil {
		return core.PeriodRange{}, err
	}
	switch {
	case !hasStart && !hasEnd:
		startYear, endYear = now.Year(), now.Year()
	case !hasStart:
		startYear = endYear
	case !hasEnd:
		endYear = startYear
	}

	rng := core.PeriodRange{StartYear: startYear, StartMonth: 1, EndYear: endYear, EndMonth: 12}
	if m, ok, err := get("startMonth"); err != nil {
		return core.PeriodRange{}, err
	} else if ok {
		rng.StartMonth = m
	}
	if m, ok, err := get("endMonth"); err != nil {
		return core.PeriodRange{}, err
	} else if ok {
		rng.EndMonth = m
	}

	if err := rng.Validate(); err != nil {
		return core.PeriodRange{}, err
	}
	return rng, nil
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotArray), errors.Is(err, core.ErrInvalidRecord):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrAFASNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail logs server-side failures and writes the matching JSON error. Internal
// error details are not sent to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= 500 {
		log.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, op, nil)
		if status == http.StatusInternalServerError {
			writeError(w, status, "internal error")
			return
		}
	}
	writeError(w, status, err.Error())
}
