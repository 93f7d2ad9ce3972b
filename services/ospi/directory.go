// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import "context"

// =============================================================================
// Organization Directory
// =============================================================================
//
// The assessment dataset doubles as the organization directory: it
// carries every school and district with codes, names, county, and ESD.
// A name can appear on many grade-level rows, so results deduplicate by
// code after the DISTINCT select.

const (
	schoolDirectoryFields   = "DISTINCT schoolcode, schoolname, districtcode, districtname, county, esdname"
	districtDirectoryFields = "DISTINCT districtcode, districtname, county, esdname"
)

// SearchSchools finds schools whose name contains the query text,
// case-insensitive, ordered by name, capped at limit.
func (c *Client) SearchSchools(ctx context.Context, query string, limit int) []School {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var schools []School
	err := c.cache.Do(ctx, "ospi.search_schools", []any{query, limit}, &schools, c.settings.CacheTTL,
		func(ctx context.Context) (any, error) {
			rows, err := c.queryRows(ctx, c.settings.Datasets.Assessment, QueryOptions{
				Select: schoolDirectoryFields,
				Where:  soqlAnd(soqlLike("schoolname", query), soqlEq("organizationlevel", LevelSchool)),
				Order:  "schoolname",
				Limit:  limit,
			})
			if err != nil {
				return nil, err
			}
			return schoolsFromRows(rows), nil
		})
	if err != nil {
		c.logger.Warn("school search failed", "query", query, "error", err)
		return nil
	}
	return schools
}

// SearchDistricts finds districts whose name contains the query text.
func (c *Client) SearchDistricts(ctx context.Context, query string, limit int) []District {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var districts []District
	err := c.cache.Do(ctx, "ospi.search_districts", []any{query, limit}, &districts, c.settings.CacheTTL,
		func(ctx context.Context) (any, error) {
			rows, err := c.queryRows(ctx, c.settings.Datasets.Assessment, QueryOptions{
				Select: districtDirectoryFields,
				Where:  soqlAnd(soqlLike("districtname", query), soqlEq("organizationlevel", LevelDistrict)),
				Order:  "districtname",
				Limit:  limit,
			})
			if err != nil {
				return nil, err
			}
			return districtsFromRows(rows), nil
		})
	if err != nil {
		c.logger.Warn("district search failed", "query", query, "error", err)
		return nil
	}
	return districts
}

// AllDistricts returns every district in the state, ordered by name.
func (c *Client) AllDistricts(ctx context.Context) []District {
	var districts []District
	err := c.cache.Do(ctx, "ospi.all_districts", nil, &districts, c.settings.CacheTTL,
		func(ctx context.Context) (any, error) {
			rows, err := c.queryRows(ctx, c.settings.Datasets.Assessment, QueryOptions{
				Select: districtDirectoryFields,
				Where:  soqlEq("organizationlevel", LevelDistrict),
				Order:  "districtname",
				Limit:  allDistrictsLimit,
			})
			if err != nil {
				return nil, err
			}
			return districtsFromRows(rows), nil
		})
	if err != nil {
		c.logger.Warn("all-districts load failed", "error", err)
		return nil
	}
	return districts
}

// DistrictByCode resolves a district code to its record.
//
// A miss returns nil, not an error: stale deep-link codes are a normal
// input, not an exceptional state.
func (c *Client) DistrictByCode(ctx context.Context, code string) *District {
	var district *District
	err := c.cache.Do(ctx, "ospi.district_by_code", []any{code}, &district, c.settings.CacheTTL,
		func(ctx context.Context) (any, error) {
			rows, err := c.queryRows(ctx, c.settings.Datasets.Assessment, QueryOptions{
				Select: districtDirectoryFields,
				Where:  soqlAnd(soqlEq("districtcode", code), soqlEq("organizationlevel", LevelDistrict)),
				Limit:  1,
			})
			if err != nil {
				return nil, err
			}
			districts := districtsFromRows(rows)
			if len(districts) == 0 {
				return (*District)(nil), nil
			}
			return &districts[0], nil
		})
	if err != nil {
		c.logger.Warn("district lookup failed", "code", code, "error", err)
		return nil
	}
	return district
}

// SchoolByCode resolves a school code to its record, nil on miss.
func (c *Client) SchoolByCode(ctx context.Context, code string) *School {
	var school *School
	err := c.cache.Do(ctx, "ospi.school_by_code", []any{code}, &school, c.settings.CacheTTL,
		func(ctx context.Context) (any, error) {
			rows, err := c.queryRows(ctx, c.settings.Datasets.Assessment, QueryOptions{
				Select: schoolDirectoryFields,
				Where:  soqlAnd(soqlEq("schoolcode", code), soqlEq("organizationlevel", LevelSchool)),
				Limit:  1,
			})
			if err != nil {
				return nil, err
			}
			schools := schoolsFromRows(rows)
			if len(schools) == 0 {
				return (*School)(nil), nil
			}
			return &schools[0], nil
		})
	if err != nil {
		c.logger.Warn("school lookup failed", "code", code, "error", err)
		return nil
	}
	return school
}

// schoolsFromRows builds School records, deduplicated by school code.
func schoolsFromRows(rows []Row) []School {
	schools := make([]School, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		code := r.Str("schoolcode")
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		schools = append(schools, School{
			SchoolCode:   code,
			SchoolName:   r.Str("schoolname"),
			DistrictCode: r.Str("districtcode"),
			DistrictName: r.Str("districtname"),
			County:       r.Str("county"),
			ESDName:      r.Str("esdname"),
		})
	}
	return schools
}

// districtsFromRows builds District records, deduplicated by code.
func districtsFromRows(rows []Row) []District {
	districts := make([]District, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		code := r.Str("districtcode")
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		districts = append(districts, District{
			DistrictCode: code,
			DistrictName: r.Str("districtname"),
			County:       r.Str("county"),
			ESDName:      r.Str("esdname"),
		})
	}
	return districts
}
