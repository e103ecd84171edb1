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

	"github.com/spf13/cobra"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/retriever"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

var (
	searchLimit     int
	searchThreshold float64
	searchJSON      bool
	searchLesson    string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the textbook index",
	Long: `Runs the retrieval pipeline (query expansion, embedding, vector search)
without calling the generative model.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", -1, "minimum similarity (default from config)")
	searchCmd.Flags().StringVar(&searchLesson, "lesson", "", "lesson the learner is reading")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newKnowledgeApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	req := &knowledge.SearchRequest{
		Query:        args[0],
		MaxResults:   cfg.Retrieval.Limit,
		MinScore:     cfg.Retrieval.ScoreThreshold,
		UseExpansion: cfg.Retrieval.UseExpansion,
	}
	if searchLimit > 0 {
		req.MaxResults = searchLimit
	}
	if searchThreshold >= 0 {
		req.MinScore = searchThreshold
	}
	if searchLesson != "" {
		req.Context = &query.PageContext{LessonID: searchLesson}
	}
	results, err := a.kb.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	log.Debugf("cli: %d result(s) for %q", len(results), log.Truncate(args[0], 50))

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printResults(cmd, results)
	return nil
}

func printResults(cmd *cobra.Command, results []*retriever.RelevantDocument) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}
	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		title := r.Document.Title
		if title == "" {
			title = r.Document.ID
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, r.Score)
		if r.Document.Source != "" {
			cmd.Printf("      Source: %s\n", r.Document.Source)
		}
		cmd.Printf("      %s\n", log.Truncate(r.Document.Text, 160))
		cmd.Println()
	}
}
