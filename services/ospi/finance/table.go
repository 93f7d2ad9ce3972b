// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package finance reads the F-196 financial reporting tables.
//
// Two CSV files supplement the remote datasets: per-district per-pupil
// expenditures (one column set per school year, using the two-digit
// "YY-YY" year convention) and expenditures broken down by program
// category. Spending data exists only at the district grain.
//
// The accessor fails open like the remote gateway: a missing file or
// absent year column yields empty results and a logged warning, never
// an error surfaced to data consumers.
package finance

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Table is a small column-addressed CSV table.
//
// F-196 extracts are a few hundred rows, so everything loads eagerly
// into memory.
type Table struct {
	headers []string
	rows    []map[string]string
}

// LoadTable reads a CSV file into a Table.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse table %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, row)
	}
	return &Table{headers: headers, rows: rows}, nil
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.rows) == 0
}

// Headers returns the column names.
func (t *Table) Headers() []string {
	if t == nil {
		return nil
	}
	return t.headers
}

// Rows returns all data rows.
func (t *Table) Rows() []map[string]string {
	if t == nil {
		return nil
	}
	return t.rows
}

// FindRow returns the first row whose column equals value, or nil.
func (t *Table) FindRow(column, value string) map[string]string {
	if t == nil {
		return nil
	}
	for _, row := range t.rows {
		if row[column] == value {
			return row
		}
	}
	return nil
}

// parseFloat converts a cell to a float, nil on empty or non-numeric.
func parseFloat(cell string) *float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseInt converts a cell to an int, truncating toward zero.
func parseInt(cell string) *int {
	f := parseFloat(cell)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}
