// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFloat(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  *float64
	}{
		{"nil", nil, nil},
		{"empty string", "", nil},
		{"whitespace", "   ", nil},
		{"non-numeric", "N/A", nil},
		{"none placeholder", "None", nil},
		{"integer string", "42", ptr(42.0)},
		{"decimal string", "0.52", ptr(0.52)},
		{"padded string", " 12.5 ", ptr(12.5)},
		{"negative", "-3.5", ptr(-3.5)},
		{"native float", 7.25, ptr(7.25)},
		{"native int", 7, ptr(7.0)},
		{"bool rejected", true, nil},
		{"map rejected", map[string]any{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToFloat(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestToInt_TruncatesTowardZero(t *testing.T) {
	tests := []struct {
		input any
		want  *int
	}{
		{"100.5", ptrInt(100)},
		{"100.9", ptrInt(100)},
		{"-100.9", ptrInt(-100)},
		{"250", ptrInt(250)},
		{250.0, ptrInt(250)},
		{"", nil},
		{nil, nil},
		{"abc", nil},
	}

	for _, tt := range tests {
		got := ToInt(tt.input)
		if tt.want == nil {
			assert.Nil(t, got, "input %v", tt.input)
			continue
		}
		require.NotNil(t, got, "input %v", tt.input)
		assert.Equal(t, *tt.want, *got, "input %v", tt.input)
	}
}

func TestToPercent(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  *float64
	}{
		{"fraction scales", "0.52", ptr(52.0)},
		{"half scales", "0.5", ptr(50.0)},
		{"one scales to hundred", "1.0", ptr(100.0)},
		{"zero stays zero", "0", ptr(0.0)},
		{"already percent passes through", "52.0", ptr(52.0)},
		{"boundary above one", "1.1", ptr(1.1)},
		{"hundred", "100", ptr(100.0)},
		{"negative passes through", "-0.5", ptr(-0.5)},
		{"non-numeric", "suppressed", nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToPercent(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestSuppressionPredicates_StayDistinct(t *testing.T) {
	// Assessment convention: any non-empty marker except "None".
	assert.False(t, IsSuppressed(""))
	assert.False(t, IsSuppressed("None"))
	assert.True(t, IsSuppressed("N<10"))
	assert.True(t, IsSuppressed("Suppressed: state policy"))

	// Graduation convention: the marker must carry the small-sample
	// sentinel; non-empty alone does not suppress.
	assert.False(t, IsSmallCohortSuppressed(""))
	assert.False(t, IsSmallCohortSuppressed("Suppressed: state policy"))
	assert.True(t, IsSmallCohortSuppressed("N<10"))
	assert.True(t, IsSmallCohortSuppressed("suppressed N<10 cohort"))
}

func TestPercentOf_GuardsZeroDivision(t *testing.T) {
	assert.Nil(t, percentOf(50, nil))
	assert.Nil(t, percentOf(50, ptrInt(0)))
	assert.Nil(t, percentOf(50, ptrInt(-5)))

	got := percentOf(250, ptrInt(1000))
	require.NotNil(t, got)
	assert.Equal(t, 25.0, *got)
}

func ptr(f float64) *float64 { return &f }
func ptrInt(i int) *int      { return &i }
