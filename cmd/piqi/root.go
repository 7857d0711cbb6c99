//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "piqi",
	Short: "PIQI data quality evaluation engine",
	Long: `piqi evaluates electronic patient messages against configurable
quality rubrics and produces scorecards.

Reference data (entity models, code systems, value sets, SAM
descriptors and rubrics) is loaded from a bundle directory. The serve
command exposes the engine over HTTP; the evaluate command scores a
single message file.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./piqi.yaml)")

	// Reference data flags
	rootCmd.PersistentFlags().String("refdata-dir", "", "reference data bundle directory")
	rootCmd.PersistentFlags().String("refdata-pattern", "**/*.json", "bundle document glob, doublestar syntax")
	rootCmd.PersistentFlags().String("rubric", "", "active rubric mnemonic (default: first rubric of the bundle)")

	// Collaborator flags
	rootCmd.PersistentFlags().String("fhir-endpoint", "", "FHIR terminology server base URL")
	rootCmd.PersistentFlags().String("knowledge-endpoint", "", "clinical knowledge service base URL")

	// Engine flags
	rootCmd.PersistentFlags().Int("parallelism", 0, "criterion workers per message (0 = one per criterion)")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, fatal)")

	_ = viper.BindPFlag("refdata.dir", rootCmd.PersistentFlags().Lookup("refdata-dir"))
	_ = viper.BindPFlag("refdata.pattern", rootCmd.PersistentFlags().Lookup("refdata-pattern"))
	_ = viper.BindPFlag("refdata.rubric", rootCmd.PersistentFlags().Lookup("rubric"))
	_ = viper.BindPFlag("terminology.endpoint", rootCmd.PersistentFlags().Lookup("fhir-endpoint"))
	_ = viper.BindPFlag("knowledge.endpoint", rootCmd.PersistentFlags().Lookup("knowledge-endpoint"))
	_ = viper.BindPFlag("evaluation.parallelism", rootCmd.PersistentFlags().Lookup("parallelism"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}
