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

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge"
)

var (
	ingestRecreate bool
	ingestProgress bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.jsonl]",
	Short: "Chunk, embed and store textbook documents",
	Long: `Reads one JSON document per line (id, text, source, title, url) and
loads the chunks into the configured vector index. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestRecreate, "recreate", false, "drop the collection before loading")
	ingestCmd.Flags().BoolVar(&ingestProgress, "progress", true, "log progress while storing chunks")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open documents: %w", err)
		}
		defer f.Close()
		r = f
	}
	docs, err := knowledge.ReadDocuments(r)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newKnowledgeApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.kb.Load(ctx, docs,
		knowledge.WithRecreate(ingestRecreate),
		knowledge.WithShowProgress(ingestProgress),
		knowledge.WithConcurrency(cfg.Ingestion.Concurrency),
		knowledge.WithBatchSize(cfg.Ingestion.BatchSize),
	)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
