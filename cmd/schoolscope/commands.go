// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	datasetsPath string
	port         string
	logDir       string
	verbose      bool
	skipWarm     bool

	rootCmd = &cobra.Command{
		Use:   "schoolscope",
		Short: "Washington public-school data aggregation service",
		Long: `SchoolScope aggregates Washington state public-school data:
assessment, enrollment, graduation, staffing, and F-196 financial
tables, normalized and served over a dashboard API.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		Run:   runServe, // Defined in cmd_serve.go
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Probe every configured dataset and report reachability",
		Run:   runValidate, // Defined in cmd_validate.go
	}

	warmCmd = &cobra.Command{
		Use:   "warm",
		Short: "Pre-build the combined comparison datasets and exit",
		Run:   runWarm, // Defined in cmd_warm.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&datasetsPath, "datasets", "",
		"path to a dataset registry YAML overriding the built-in IDs")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"directory for log files (stdout only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")

	serveCmd.Flags().StringVar(&port, "port", "8080", "listen port")
	serveCmd.Flags().BoolVar(&skipWarm, "skip-warm", false,
		"skip the background dataset warm-up at startup")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(warmCmd)
}
