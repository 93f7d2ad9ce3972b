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
	"os"
	"sort"

	"github.com/spf13/cobra"
)

func runValidate(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Close()

	settings := loadSettings(logger)
	client := newClient(settings, logger)

	status := client.ValidateDatasets(context.Background())

	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	sort.Strings(names)

	failures := 0
	for _, name := range names {
		state := "ok"
		if !status[name] {
			state = "UNREACHABLE"
			failures++
		}
		fmt.Printf("%-20s %s\n", name, state)
	}

	if failures > 0 {
		fmt.Printf("\n%d of %d datasets unreachable\n", failures, len(status))
		os.Exit(1)
	}
	fmt.Printf("\nall %d datasets reachable\n", len(status))
}
