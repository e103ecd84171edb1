//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package cli implements the textbook-rag command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/zakiabashir/physical-ai-robotics-textbook/config"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

var (
	configPath string
	logLevel   string

	// cfg is loaded before every command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "textbook-rag",
	Short: "Retrieval-augmented tutor for the Physical AI textbook",
	Long: `textbook-rag ingests textbook lessons into a vector index and answers
learner questions with retrieval-augmented generation.

Settings are read from textbook-rag.yaml and TEXTBOOK_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log.SetFormat(c.Log.Format)
		log.SetLevel(c.Log.Level)
		if logLevel != "" {
			log.SetLevel(logLevel)
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
