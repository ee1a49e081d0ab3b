package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"afasrapport/internal/core"
	ports "afasrapport/internal/sheets"
)

var _ ports.ViewExporter = (*Store)(nil)

// Store keeps exported sheets in memory, for development without Google credentials.
type Store struct {
	mu      sync.Mutex
	sheet   string
	rows    [][]any
	exports int
}

func New(sheet string) *Store {
	if sheet == "" {
		sheet = "Overzicht"
	}
	return &Store{sheet: sheet}
}

// ExportView replaces the stored sheet with the view's monthly overview.
func (s *Store) ExportView(_ context.Context, view *core.FinancialView) (string, error) {
	if view == nil {
		return "", errors.New("nil financial view")
	}
	rows := ports.MonthlyRows(view)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	s.exports++
	return fmt.Sprintf("%s!A1:H%d", s.sheet, len(rows)), nil
}

// Rows returns a copy of the last exported sheet.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

// Exports counts successful exports.
func (s *Store) Exports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exports
}
