// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// School-Year Helpers
// =============================================================================
//
// Assessment, enrollment, and staffing data use four-digit school years
// ("2024-25"). The F-196 financial tables use a two-digit convention
// ("24-25"). ShortYear is the boundary transform and must be applied at
// every district-spending call site.

// ShortYear converts "2024-25" to "24-25".
//
// A year already in short form passes through unchanged.
func ShortYear(schoolYear string) string {
	parts := strings.SplitN(schoolYear, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 {
		return schoolYear
	}
	return parts[0][2:] + "-" + parts[1]
}

// startYearOf parses the leading calendar year of a school-year string,
// returning 0 when the string is not in YYYY-YY form.
func startYearOf(schoolYear string) int {
	parts := strings.SplitN(schoolYear, "-", 2)
	if len(parts) != 2 {
		return 0
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	return year
}

// SchoolYearRange returns the inclusive chronological sequence of
// school years from start to end, e.g. ("2021-22", "2023-24") yields
// ["2021-22", "2022-23", "2023-24"]. Returns nil for unparsable bounds
// or an inverted range.
func SchoolYearRange(start, end string) []string {
	first := startYearOf(start)
	last := startYearOf(end)
	if first == 0 || last == 0 || first > last {
		return nil
	}

	years := make([]string, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, fmt.Sprintf("%d-%02d", y, (y+1)%100))
	}
	return years
}
