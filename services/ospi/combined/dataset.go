// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package combined assembles state-wide comparison datasets: every
// district (or school) as one row with metrics merged in from the
// assessment, enrollment, graduation, staffing, and F-196 sources.
//
// The merge is a left join on entity code against a base source.
// Entities missing from a secondary source keep their row with that
// metric absent; sparse data is the normal state, not an error.
package combined

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Entity grain of a dataset.
const (
	LevelDistrict = "District"
	LevelSchool   = "School"
)

// Row is one entity in a combined dataset. A key absent from Metrics
// means the value is unavailable (suppressed, entity missing from the
// source, or the source was down at build time).
type Row struct {
	Code    string             `json:"code"`
	Name    string             `json:"name"`
	Metrics map[string]float64 `json:"metrics"`
}

// Metric returns a row's value for key, nil when absent.
func (r Row) Metric(key string) *float64 {
	v, ok := r.Metrics[key]
	if !ok {
		return nil
	}
	return &v
}

// SetMetric records a value; nil is a no-op so loaders can pass
// normalizer output straight through.
func (r Row) SetMetric(key string, value *float64) {
	if value != nil {
		r.Metrics[key] = *value
	}
}

// Dataset is one grain's combined table for one school year.
type Dataset struct {
	Level      string `json:"level"`
	SchoolYear string `json:"school_year"`
	Rows       []Row  `json:"rows"`
}

// Empty reports whether the dataset holds no rows.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Rows) == 0
}

// RowByCode finds an entity row, nil on miss.
func (d *Dataset) RowByCode(code string) *Row {
	if d == nil {
		return nil
	}
	for i := range d.Rows {
		if d.Rows[i].Code == code {
			return &d.Rows[i]
		}
	}
	return nil
}

// metricRegistry picks the column registry for the dataset's grain.
func (d *Dataset) metricRegistry() []Metric {
	if d.Level == LevelSchool {
		return SchoolMetrics
	}
	return DistrictMetrics
}

// Columns returns the metric keys present in registry order.
func (d *Dataset) Columns() []string {
	keys := make([]string, 0, len(d.metricRegistry()))
	for _, m := range d.metricRegistry() {
		keys = append(keys, m.Key)
	}
	return keys
}

// SortByName orders rows alphabetically for stable presentation.
func (d *Dataset) SortByName() {
	sort.Slice(d.Rows, func(i, j int) bool {
		return d.Rows[i].Name < d.Rows[j].Name
	})
}

// WriteCSV renders the dataset as CSV: code, name, then one column per
// registry metric. Absent values render as empty cells.
func (d *Dataset) WriteCSV(w io.Writer) error {
	columns := d.Columns()

	header := append([]string{"code", "name"}, columns...)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range d.Rows {
		record[0] = row.Code
		record[1] = row.Name
		for i, key := range columns {
			if v, ok := row.Metrics[key]; ok {
				record[i+2] = strconv.FormatFloat(v, 'f', -1, 64)
			} else {
				record[i+2] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", row.Code, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
