// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package combined

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/schoolscope/services/ospi"
	"github.com/AleutianAI/schoolscope/services/ospi/config"
)

const spendingCSV = `district_code,district_name,per_pupil_24-25,enrollment_24-25,expenditure_24-25
27400,Peninsula School District,12500,8900,111250000
17001,Olympia School District,13600,9500,129200000
34003,Tiny District,9800,120,1176000
`

const programsCSV = `district_code,category,amount
27400,Basic Education,60000000
27400,Special Education,20000000
27400,Transportation,20000000
`

// fixture is the bulk-source fake plus everything built around it.
type fixture struct {
	service  *Service
	settings config.Settings
	calls    atomic.Int64
}

// newFixture stands up CSV files, a fake dataset service, and a
// combined Service over them. Handlers may be nil for "dataset down".
func newFixture(t *testing.T, handlers map[string]func(where string) []ospi.Row) *fixture {
	t.Helper()

	f := &fixture{settings: config.Default()}
	f.settings.DataDir = t.TempDir()
	f.settings.RequestTimeout = 5 * time.Second
	require.NoError(t, os.MkdirAll(filepath.Dir(f.settings.SpendingCSV()), 0755))
	require.NoError(t, os.WriteFile(f.settings.SpendingCSV(), []byte(spendingCSV), 0644))
	require.NoError(t, os.WriteFile(f.settings.ProgramsCSV(), []byte(programsCSV), 0644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/resource/"), ".json")
		handler, ok := handlers[id]
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		rows := handler(r.URL.Query().Get("$where"))
		if rows == nil {
			rows = []ospi.Row{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rows)
	}))
	t.Cleanup(server.Close)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := ospi.NewClient(f.settings,
		ospi.WithBaseURL(server.URL),
		ospi.WithHTTPClient(server.Client()),
		ospi.WithLogger(quiet))
	f.service = NewService(client, f.settings, quiet)
	return f
}

// healthyHandlers serves every bulk source with plausible rows.
// Olympia (17001) is deliberately absent from assessment to exercise
// the left join.
func healthyHandlers(settings config.Settings) map[string]func(string) []ospi.Row {
	return map[string]func(string) []ospi.Row{
		settings.Datasets.AssessmentSince25: func(string) []ospi.Row {
			return []ospi.Row{
				{"districtcode": "27400", "testsubject": "ELA", "percentmetstandard": "0.52"},
				{"districtcode": "27400", "testsubject": "ELA", "percentmetstandard": "0.99"}, // dup, first wins
				{"districtcode": "27400", "testsubject": "Math", "percentlevel3": "0.30", "percentlevel4": "0.15"},
				{"districtcode": "34003", "testsubject": "Science", "percentmetstandard": "0.41"},
			}
		},
		settings.Datasets.GraduationSince25: func(string) []ospi.Row {
			return nil // bulk year unpublished, falls back
		},
		settings.Datasets.Graduation: func(where string) []ospi.Row {
			return []ospi.Row{
				{"districtcode": "27400", "graduationrate": "0.9"},
				{"districtcode": "17001", "graduationrate": "92.5"},
			}
		},
		settings.Datasets.Enrollment: func(string) []ospi.Row {
			return []ospi.Row{
				{"districtcode": "27400", "all_students": "8900", "low_income": "2670",
					"english_language_learners": "534", "students_with_disabilities": "1157"},
			}
		},
		settings.Datasets.Teachers: func(string) []ospi.Row {
			return []ospi.Row{
				{"leacode": "27400", "teachercount": "445", "avgyearsexperience": "12.4", "ma_percent": "0.68"},
			}
		},
	}
}

func TestAllDistrictData_MergesSourcesOntoSpendingBase(t *testing.T) {
	f := newFixture(t, healthyHandlers(config.Default()))

	ds := f.service.AllDistrictData(context.Background())

	require.NotNil(t, ds)
	assert.Equal(t, LevelDistrict, ds.Level)
	require.Len(t, ds.Rows, 3, "every spending district keeps a row")

	// Sorted by name: Olympia, Peninsula, Tiny.
	assert.Equal(t, "17001", ds.Rows[0].Code)
	assert.Equal(t, "27400", ds.Rows[1].Code)
	assert.Equal(t, "34003", ds.Rows[2].Code)

	peninsula := ds.RowByCode("27400")
	require.NotNil(t, peninsula)
	assert.Equal(t, 12500.0, peninsula.Metrics["per_pupil_expenditure"])
	assert.Equal(t, 8900.0, peninsula.Metrics["enrollment"])
	assert.InDelta(t, 52.0, peninsula.Metrics["ela_proficiency"], 1e-9, "first duplicate wins")
	assert.InDelta(t, 45.0, peninsula.Metrics["math_proficiency"], 1e-9, "level 3 + level 4 fallback")
	assert.InDelta(t, 90.0, peninsula.Metrics["graduation_rate"], 1e-9, "legacy-year fallback, scaled")
	assert.InDelta(t, 30.0, peninsula.Metrics["pct_low_income"], 0.1)
	assert.InDelta(t, 68.0, peninsula.Metrics["pct_teachers_masters"], 1e-9)
	assert.InDelta(t, 20.0, peninsula.Metrics["student_teacher_ratio"], 1e-9, "8900 / 445")
	assert.InDelta(t, 60.0, peninsula.Metrics["pct_spending_basic_ed"], 0.1)

	// Olympia: in spending and graduation only; joined metrics absent.
	olympia := ds.RowByCode("17001")
	require.NotNil(t, olympia)
	assert.Equal(t, 13600.0, olympia.Metrics["per_pupil_expenditure"])
	assert.InDelta(t, 92.5, olympia.Metrics["graduation_rate"], 1e-9, "already-scaled rate passes through")
	assert.Nil(t, olympia.Metric("ela_proficiency"))
	assert.Nil(t, olympia.Metric("student_teacher_ratio"))
}

func TestAllDistrictData_SecondCallServedFromCache(t *testing.T) {
	f := newFixture(t, healthyHandlers(config.Default()))

	first := f.service.AllDistrictData(context.Background())
	after := f.calls.Load()
	second := f.service.AllDistrictData(context.Background())

	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, after, f.calls.Load(), "no new requests on the cached call")
}

func TestAllDistrictData_AllSourcesDownIsNotCached(t *testing.T) {
	f := newFixture(t, nil) // every dataset 503s

	ds := f.service.AllDistrictData(context.Background())
	require.NotNil(t, ds)
	assert.Empty(t, ds.Rows)

	before := f.calls.Load()
	f.service.AllDistrictData(context.Background())
	assert.Greater(t, f.calls.Load(), before, "the failure result must not be memoized")
}

func TestAllDistrictData_SingleSourceDownKeepsSiblings(t *testing.T) {
	handlers := healthyHandlers(config.Default())
	delete(handlers, config.Default().Datasets.Teachers)
	f := newFixture(t, handlers)

	ds := f.service.AllDistrictData(context.Background())

	require.Len(t, ds.Rows, 3)
	peninsula := ds.RowByCode("27400")
	assert.Nil(t, peninsula.Metric("teacher_count"))
	assert.Nil(t, peninsula.Metric("student_teacher_ratio"))
	assert.NotNil(t, peninsula.Metric("ela_proficiency"), "other sources still merge")
}

func TestAllSchoolData(t *testing.T) {
	settings := config.Default()
	handlers := map[string]func(string) []ospi.Row{
		settings.Datasets.AssessmentSince25: func(where string) []ospi.Row {
			if !strings.Contains(where, "organizationlevel='School'") {
				return nil
			}
			return []ospi.Row{
				{"schoolcode": "3456", "schoolname": "Gig Harbor High School",
					"testsubject": "ELA", "percentmetstandard": "0.61"},
				{"schoolcode": "3456", "schoolname": "Gig Harbor High School",
					"testsubject": "Math", "percentmetstandard": "0.48"},
				{"schoolcode": "2800", "schoolname": "Artondale Elementary",
					"testsubject": "ELA", "percentmetstandard": "0.55"},
			}
		},
		settings.Datasets.Enrollment: func(string) []ospi.Row {
			return []ospi.Row{
				{"schoolcode": "3456", "all_students": "1600", "low_income": "320",
					"english_language_learners": "80", "students_with_disabilities": "192"},
			}
		},
		settings.Datasets.Teachers: func(string) []ospi.Row {
			return []ospi.Row{
				{"schoolcode": "3456", "teachercount": "80", "avgyearsexperience": "11.0", "ma_percent": "0.7"},
			}
		},
	}
	f := newFixture(t, handlers)

	ds := f.service.AllSchoolData(context.Background())

	require.Len(t, ds.Rows, 2)
	assert.Equal(t, LevelSchool, ds.Level)

	gigHarbor := ds.RowByCode("3456")
	require.NotNil(t, gigHarbor)
	assert.Equal(t, "Gig Harbor High School", gigHarbor.Name)
	assert.InDelta(t, 61.0, gigHarbor.Metrics["ela_proficiency"], 1e-9)
	assert.Equal(t, 1600.0, gigHarbor.Metrics["enrollment"])
	assert.InDelta(t, 20.0, gigHarbor.Metrics["pct_low_income"], 0.1)
	assert.InDelta(t, 20.0, gigHarbor.Metrics["student_teacher_ratio"], 1e-9, "1600 / 80")

	// Artondale is absent from enrollment and staffing: row survives,
	// join metrics stay absent.
	artondale := ds.RowByCode("2800")
	require.NotNil(t, artondale)
	assert.Nil(t, artondale.Metric("enrollment"))
	assert.Nil(t, artondale.Metric("student_teacher_ratio"))
}

func TestWriteCSV(t *testing.T) {
	ds := &Dataset{
		Level: LevelDistrict,
		Rows: []Row{
			{Code: "27400", Name: "Peninsula School District",
				Metrics: map[string]float64{"per_pupil_expenditure": 12500, "graduation_rate": 90.5}},
			{Code: "17001", Name: "Olympia School District",
				Metrics: map[string]float64{}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ds.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "code,name,per_pupil_expenditure,"))
	assert.True(t, strings.HasPrefix(lines[1], `27400,Peninsula School District,12500,`))
	assert.Contains(t, lines[1], ",90.5,")
	assert.True(t, strings.HasPrefix(lines[2], "17001,Olympia School District,,"), "absent metrics render empty")
}

func TestFormatMetricValue(t *testing.T) {
	v := 12500.0
	assert.Equal(t, "$12500", FormatMetricValue(DistrictMetrics, "per_pupil_expenditure", &v))

	pct := 52.34
	assert.Equal(t, "52.3%", FormatMetricValue(DistrictMetrics, "ela_proficiency", &pct))

	assert.Equal(t, "N/A", FormatMetricValue(DistrictMetrics, "ela_proficiency", nil))

	unknown := 7.0
	assert.Equal(t, "7.0", FormatMetricValue(DistrictMetrics, "unknown_key", &unknown))
}

func TestMetricLabel(t *testing.T) {
	assert.Equal(t, "Per-Pupil Expenditure", MetricLabel(DistrictMetrics, "per_pupil_expenditure"))
	assert.Equal(t, "mystery", MetricLabel(DistrictMetrics, "mystery"))
}
