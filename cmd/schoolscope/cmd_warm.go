// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/schoolscope/services/ospi/combined"
)

// runWarm pre-builds the combined datasets so the first dashboard
// request is served from a populated cache. Only useful with a
// persistent cache directory; an in-memory cache dies with the process.
func runWarm(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Close()

	settings := loadSettings(logger)
	if settings.CacheDir == "" {
		logger.Warn("SCHOOLSCOPE_CACHE_DIR is not set, warmed data will not outlive this process")
	}

	client := newClient(settings, logger)
	analytics := combined.NewService(client, settings, logger.Slog())

	districts := analytics.AllDistrictData(context.Background())
	schools := analytics.AllSchoolData(context.Background())

	fmt.Printf("districts: %d rows\n", len(districts.Rows))
	fmt.Printf("schools:   %d rows\n", len(schools.Rows))
}
