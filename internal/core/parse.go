// Package core provides the ledger record model and its boundary parsing.
//
// AFAS connectors deliver loosely typed JSON: amounts may arrive as numbers
// or as strings with a Dutch decimal comma, optional tags may be missing or
// null. This file turns that into a strict RawTransaction once, so the
// aggregation code never has to look at absent values again.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseRecords decodes a JSON array of AFAS rows.
// A payload whose top level is not an array yields ErrNotArray.
func ParseRecords(data []byte) ([]RawTransaction, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	records := make([]RawTransaction, len(rows))
	for i, row := range rows {
		if err := records[i].UnmarshalJSON(row); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return records, nil
}

// ParseAmount converts an amount string to a float64.
//
// Both "1234.56" and the Dutch "1.234,56" are accepted; when both separators
// appear the right-most one is the decimal separator. An empty string is 0.
//
// Examples:
//
//	ParseAmount("12,50")     -> 12.5
//	ParseAmount("1.234,56")  -> 1234.56
//	ParseAmount("1,234.56")  -> 1234.56
//	ParseAmount("1.234.567") -> 1234567
//
// A single separator is always read as the decimal point, so "1.234" is
// 1.234 and not one thousand two hundred thirty-four. AFAS writes amounts
// with decimals; a bare thousands separator cannot be told apart.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, " ", "")

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot > lastComma && lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case strings.Count(s, ",") > 1:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalidRecord, s)
	}
	return d.InexactFloat64(), nil
}

// ParseYearMonth parses "2024-03" into its parts.
func ParseYearMonth(s string) (year, month int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q is not YYYY-MM", ErrInvalidRange, s)
	}
	if year, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("%w: year %q", ErrInvalidRange, parts[0])
	}
	if month, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("%w: month %q", ErrInvalidRange, parts[1])
	}
	return year, month, nil
}

func (t *RawTransaction) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if fields == nil {
		return fmt.Errorf("%w: null record", ErrInvalidRecord)
	}

	var (
		out RawTransaction
		err error
	)
	if out.Jaar, err = intField(fields, FieldJaar); err != nil {
		return err
	}
	if out.Periode, err = intField(fields, FieldPeriode); err != nil {
		return err
	}
	if out.BedragDebet, err = amountField(fields, FieldBedragDebet); err != nil {
		return err
	}
	if out.BedragCredit, err = amountField(fields, FieldBedragCredit); err != nil {
		return err
	}
	out.Omschrijving3 = stringField(fields, FieldOmschrijving3)
	out.KenmerkRekening = stringField(fields, FieldKenmerkRekening)
	out.TypeRekening = stringField(fields, FieldTypeRekening)

	for _, known := range []string{
		FieldJaar, FieldPeriode, FieldBedragDebet, FieldBedragCredit,
		FieldOmschrijving3, FieldKenmerkRekening, FieldTypeRekening,
	} {
		delete(fields, known)
	}
	if len(fields) > 0 {
		out.Extra = fields
	}

	*t = out
	return nil
}

func (t RawTransaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.fieldMap())
}

func (t RawTransaction) fieldMap() map[string]any {
	m := make(map[string]any, len(t.Extra)+7)
	for k, v := range t.Extra {
		m[k] = v
	}
	m[FieldJaar] = t.Jaar
	m[FieldPeriode] = t.Periode
	m[FieldBedragDebet] = t.BedragDebet
	m[FieldBedragCredit] = t.BedragCredit
	if t.Omschrijving3 != "" {
		m[FieldOmschrijving3] = t.Omschrijving3
	}
	if t.KenmerkRekening != "" {
		m[FieldKenmerkRekening] = t.KenmerkRekening
	}
	if t.TypeRekening != "" {
		m[FieldTypeRekening] = t.TypeRekening
	}
	return m
}

func (r Record) MarshalJSON() ([]byte, error) {
	m := r.RawTransaction.fieldMap()
	m[FieldCategorie] = r.Categorie
	m[FieldAccountTypeName] = r.AccountTypeName
	return json.Marshal(m)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw RawTransaction
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}
	out := Record{RawTransaction: raw}
	out.Categorie = stringField(raw.Extra, FieldCategorie)
	out.AccountTypeName = stringField(raw.Extra, FieldAccountTypeName)
	delete(out.Extra, FieldCategorie)
	delete(out.Extra, FieldAccountTypeName)
	if len(out.Extra) == 0 {
		out.Extra = nil
	}
	*r = out
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func amountField(fields map[string]json.RawMessage, name string) (float64, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, name, err)
		}
		v, err := ParseAmount(s)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, name, err)
	}
	return v, nil
}

func intField(fields map[string]json.RawMessage, name string) (int, error) {
	v, err := amountField(fields, name)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s must be a whole number, got %v", ErrInvalidRecord, name, v)
	}
	return int(v), nil
}

// stringField returns a tag's text untrimmed. Numbers keep their literal
// text; null or missing values become "".
func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
