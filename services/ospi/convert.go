// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import (
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// Field Converters
// =============================================================================
//
// Raw rows arrive as loosely-typed maps with string-encoded numbers,
// missing fields, and two different percentage scales. These converters
// are total over their input domain: bad input yields nil, never a
// panic or an error, and never drops the surrounding record.

// ToFloat parses a numeric-like value to a float.
//
// Returns nil for null, empty, or non-numeric input.
func ToFloat(v any) *float64 {
	switch value := v.(type) {
	case nil:
		return nil
	case float64:
		return &value
	case float32:
		f := float64(value)
		return &f
	case int:
		f := float64(value)
		return &f
	case int64:
		f := float64(value)
		return &f
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// ToInt parses a numeric-like value to an int, truncating toward zero.
//
// "100.5" parses to 100. Returns nil on failure.
func ToInt(v any) *int {
	f := ToFloat(v)
	if f == nil {
		return nil
	}
	i := int(math.Trunc(*f))
	return &i
}

// ToPercent parses a percent-like value, normalizing to the 0-100 range.
//
// The sources encode percentages two ways: as fractions (0.52 meaning
// 52%) and as whole percentages (52.0). Values within [0, 1] are scaled
// by 100; everything else passes through. 0.5 parses to 50.0 and 1.0
// parses to 100.0. Returns nil on failure.
func ToPercent(v any) *float64 {
	f := ToFloat(v)
	if f == nil {
		return nil
	}
	value := *f
	if value >= 0 && value <= 1 {
		value *= 100
	}
	return &value
}

// =============================================================================
// Suppression Predicates
// =============================================================================
//
// The assessment and graduation datasets mark privacy-suppressed rows
// with different conventions. The two predicates stay separate; the
// divergence is real upstream behavior.

// IsSuppressed reports whether an assessment suppression marker
// indicates a withheld row: any non-empty marker other than the
// literal "None" placeholder.
func IsSuppressed(marker string) bool {
	return marker != "" && marker != "None"
}

// IsSmallCohortSuppressed reports whether a graduation suppression
// marker indicates a withheld row: the marker must contain the
// small-sample sentinel, not merely be non-empty.
func IsSmallCohortSuppressed(marker string) bool {
	return strings.Contains(marker, "N<10")
}

// percentOf returns count/total*100, or nil when total is unusable.
func percentOf(count int, total *int) *float64 {
	if total == nil || *total <= 0 {
		return nil
	}
	pct := float64(count) / float64(*total) * 100
	return &pct
}

// round1 rounds to one decimal place.
func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
