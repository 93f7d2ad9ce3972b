// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import (
	"fmt"
	"strings"
)

// =============================================================================
// SoQL Filter Builders
// =============================================================================
//
// The datasets are filtered with SoQL, a SQL-like predicate language.
// The service only ever composes equality tests, case-insensitive
// substring matches, and AND/OR conjunctions, so those are the only
// builders provided.

// soqlQuote escapes a string literal for a SoQL expression.
//
// Single quotes double per SQL convention. Values reaching here include
// user-typed search text, so this must run on every literal.
func soqlQuote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// soqlEq builds a field='value' predicate.
func soqlEq(field, value string) string {
	return field + "=" + soqlQuote(value)
}

// soqlLike builds a case-insensitive substring match predicate.
func soqlLike(field, substring string) string {
	return fmt.Sprintf("upper(%s) like upper(%s)", field, soqlQuote("%"+substring+"%"))
}

// soqlAnd joins predicates with AND, skipping empties.
func soqlAnd(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " AND ")
}

// soqlOr joins predicates with OR, parenthesized.
func soqlOr(parts ...string) string {
	return "(" + strings.Join(parts, " OR ") + ")"
}
