// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import "context"

// ValidateDatasets probes every configured dataset with a minimal
// one-row query and reports reachability per dataset name.
//
// Used for a non-fatal warning banner, not gating: a false entry means
// that dataset's features will render empty, nothing more. Results are
// deliberately not memoized so the banner reflects current health.
func (c *Client) ValidateDatasets(ctx context.Context) map[string]bool {
	status := make(map[string]bool)
	for name, datasetID := range c.settings.Datasets.All() {
		_, err := c.queryRows(ctx, datasetID, QueryOptions{Limit: 1})
		if err != nil {
			c.logger.Warn("dataset probe failed", "dataset", name, "id", datasetID, "error", err)
		}
		status[name] = err == nil
	}
	return status
}
