// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config holds runtime settings for the data service.
//
// Settings come from three layers, later layers winning:
//
//  1. Built-in defaults (the public data.wa.gov dataset registry)
//  2. An optional YAML dataset registry file
//  3. Environment variables
//
// The resulting Settings struct is validated once at load time and
// passed to constructors by value. Nothing in this package is global.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by Load.
const (
	EnvAppToken = "SOCRATA_APP_TOKEN"
	EnvDomain   = "SOCRATA_DOMAIN"
	EnvCacheTTL = "SCHOOLSCOPE_CACHE_TTL_SECONDS"
	EnvDataDir  = "SCHOOLSCOPE_DATA_DIR"
	EnvCacheDir = "SCHOOLSCOPE_CACHE_DIR"
)

// Datasets maps logical dataset names to data.wa.gov dataset IDs.
//
// Assessment and graduation data each split across two datasets: a
// legacy one covering school years through 2023-24 and a current one
// from 2024-25 on.
type Datasets struct {
	Assessment        string `yaml:"assessment" validate:"required"`
	AssessmentSince25 string `yaml:"assessment_2024_25" validate:"required"`
	Enrollment        string `yaml:"enrollment" validate:"required"`
	Graduation        string `yaml:"graduation" validate:"required"`
	GraduationSince25 string `yaml:"graduation_2024_25" validate:"required"`
	Teachers          string `yaml:"teachers" validate:"required"`
}

// All returns the registry as name → dataset ID, for health probing.
func (d Datasets) All() map[string]string {
	return map[string]string{
		"assessment":         d.Assessment,
		"assessment_2024_25": d.AssessmentSince25,
		"enrollment":         d.Enrollment,
		"graduation":         d.Graduation,
		"graduation_2024_25": d.GraduationSince25,
		"teachers":           d.Teachers,
	}
}

// Settings is the full runtime configuration.
type Settings struct {
	// Domain is the Socrata host serving the datasets.
	Domain string `validate:"required,hostname"`

	// AppToken raises Socrata rate limits when present. Optional.
	AppToken string

	// Datasets is the dataset-ID registry.
	Datasets Datasets `validate:"required"`

	// RequestTimeout bounds each upstream HTTP request.
	RequestTimeout time.Duration `validate:"gt=0"`

	// CacheTTL is the memo-cache entry lifetime.
	CacheTTL time.Duration `validate:"gt=0"`

	// DataDir holds the F-196 financial CSV files.
	DataDir string `validate:"required"`

	// CacheDir, when non-empty, enables the persistent Badger cache
	// store instead of the in-memory one.
	CacheDir string

	// DefaultYear is the school year used when a caller passes none.
	DefaultYear string `validate:"required"`

	// BulkYear is the school year the statewide loaders target.
	BulkYear string `validate:"required"`

	// MaxSearchResults caps directory search responses.
	MaxSearchResults int `validate:"gt=0"`

	// ProfileWorkers bounds the single-entity fan-out.
	ProfileWorkers int `validate:"gt=0"`

	// BulkWorkers bounds the statewide loader fan-out.
	BulkWorkers int `validate:"gt=0"`
}

// SpendingCSV returns the path of the per-pupil expenditure table.
func (s Settings) SpendingCSV() string {
	return s.DataDir + "/f196/per_pupil_expenditure.csv"
}

// ProgramsCSV returns the path of the expenditures-by-program table.
func (s Settings) ProgramsCSV() string {
	return s.DataDir + "/f196/expenditures_by_program.csv"
}

// HasAppToken reports whether a Socrata app token is configured.
func (s Settings) HasAppToken() bool {
	return s.AppToken != ""
}

// Default returns the built-in configuration.
func Default() Settings {
	return Settings{
		Domain: "data.wa.gov",
		Datasets: Datasets{
			Assessment:        "x73g-mrqp",
			AssessmentSince25: "h5d9-vgwi",
			Enrollment:        "2rwv-gs2e",
			Graduation:        "76iv-8ed4",
			GraduationSince25: "isxb-523t",
			Teachers:          "yp28-ks6d",
		},
		RequestTimeout:   30 * time.Second,
		CacheTTL:         24 * time.Hour,
		DataDir:          "data",
		DefaultYear:      "2023-24",
		BulkYear:         "2024-25",
		MaxSearchResults: 20,
		ProfileWorkers:   6,
		BulkWorkers:      6,
	}
}

// Load builds Settings from defaults, an optional YAML dataset registry,
// and environment variables.
//
// # Inputs
//
//	datasetsPath - Path to a YAML dataset registry, or "" to skip.
//	A missing file at a non-empty path is an error; the registry
//	pins which upstream datasets the whole service reads.
//
// # Outputs
//
//	Settings - Validated configuration.
//	error - Non-nil on unreadable registry file or invalid settings.
func Load(datasetsPath string) (Settings, error) {
	s := Default()

	if datasetsPath != "" {
		raw, err := os.ReadFile(datasetsPath)
		if err != nil {
			return Settings{}, fmt.Errorf("read dataset registry: %w", err)
		}
		// The registry replaces the defaults wholesale; a partial
		// file is a configuration error caught by Validate.
		var registry Datasets
		if err := yaml.Unmarshal(raw, &registry); err != nil {
			return Settings{}, fmt.Errorf("parse dataset registry: %w", err)
		}
		s.Datasets = registry
	}

	if v := os.Getenv(EnvAppToken); v != "" {
		s.AppToken = v
	}
	if v := os.Getenv(EnvDomain); v != "" {
		s.Domain = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		s.DataDir = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		s.CacheDir = v
	}
	if v := os.Getenv(EnvCacheTTL); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return Settings{}, fmt.Errorf("invalid %s: %q", EnvCacheTTL, v)
		}
		s.CacheTTL = time.Duration(seconds) * time.Second
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings against their struct tags.
func (s Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}
