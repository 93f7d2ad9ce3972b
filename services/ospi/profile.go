// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/schoolscope/services/ospi/finance"
)

// EntityProfile is the full multi-category picture of one school or
// district for one school year.
//
// Spending fields are populated only for districts; the source grain
// is district-only, so for schools they stay empty by contract.
// An empty category means "no data" — one source being down never
// empties the others.
type EntityProfile struct {
	OrgID      string `json:"org_id"`
	OrgLevel   string `json:"org_level"`
	SchoolYear string `json:"school_year"`

	Assessment   []AssessmentRecord  `json:"assessment"`
	Demographics []DemographicRecord `json:"demographics"`
	Graduation   []GraduationRecord  `json:"graduation"`
	Staffing     []StaffingRecord    `json:"staffing"`

	Spending           *finance.SpendingRecord    `json:"spending,omitempty"`
	SpendingTrend      map[string]float64         `json:"spending_trend,omitempty"`
	SpendingCategories []finance.SpendingCategory `json:"spending_categories,omitempty"`
}

// EntityProfile assembles every data category for one organization.
//
// # Description
//
//	Category fetches run concurrently on a bounded pool, each writing
//	its own result slot, with a barrier join before returning. Each
//	category already fails open inside its fetch, so a failing source
//	yields an empty slot and never aborts its siblings.
//
// # Inputs
//
//	orgID - District or school code.
//	orgLevel - LevelDistrict or LevelSchool; defaults to district.
//	schoolYear - Four-digit school year; defaults from settings.
func (c *Client) EntityProfile(ctx context.Context, orgID, orgLevel, schoolYear string) *EntityProfile {
	if orgLevel == "" {
		orgLevel = LevelDistrict
	}
	if schoolYear == "" {
		schoolYear = c.settings.DefaultYear
	}

	profile := &EntityProfile{
		OrgID:      orgID,
		OrgLevel:   orgLevel,
		SchoolYear: schoolYear,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(c.settings.ProfileWorkers)

	group.Go(func() error {
		profile.Assessment = c.AssessmentResults(ctx, AssessmentQuery{
			OrgID:      orgID,
			OrgLevel:   orgLevel,
			SchoolYear: schoolYear,
		})
		return nil
	})
	group.Go(func() error {
		profile.Demographics = c.Demographics(ctx, orgID, orgLevel, schoolYear)
		return nil
	})
	group.Go(func() error {
		profile.Graduation = c.GraduationRates(ctx, orgID, orgLevel, schoolYear, AllStudents)
		return nil
	})
	group.Go(func() error {
		profile.Staffing = c.Staffing(ctx, orgID, orgLevel, schoolYear)
		return nil
	})

	if orgLevel == LevelDistrict {
		shortYear := ShortYear(schoolYear)
		group.Go(func() error {
			profile.Spending = c.spending.Spending(orgID, shortYear)
			return nil
		})
		group.Go(func() error {
			profile.SpendingTrend = c.spending.Trend(orgID)
			return nil
		})
		group.Go(func() error {
			profile.SpendingCategories = c.spending.Categories(orgID)
			return nil
		})
	}

	// Barrier join; the goroutines never return errors.
	_ = group.Wait()
	return profile
}

// SpendingData returns one district's spending for a four-digit year.
//
// The financial tables use the short-year convention internally; the
// conversion is applied here so callers stay in the four-digit world.
func (c *Client) SpendingData(districtCode, schoolYear string) *finance.SpendingRecord {
	return c.spending.Spending(districtCode, ShortYear(schoolYear))
}

// SpendingTrend returns a district's per-pupil trend across all years
// present in the financial table (short-year keys).
func (c *Client) SpendingTrend(districtCode string) map[string]float64 {
	return c.spending.Trend(districtCode)
}

// SpendingCategories returns a district's program spending breakdown.
func (c *Client) SpendingCategories(districtCode string) []finance.SpendingCategory {
	return c.spending.Categories(districtCode)
}
