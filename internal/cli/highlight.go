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
	"strings"

	"github.com/spf13/cobra"

	"github.com/zakiabashir/physical-ai-robotics-textbook/chat"
)

var (
	highlightLesson  string
	highlightSection string
	highlightJSON    bool
)

var highlightCmd = &cobra.Command{
	Use:   "explain [selected text]",
	Short: "Explain a passage selected in a lesson",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHighlight,
}

func init() {
	highlightCmd.Flags().StringVar(&highlightLesson, "lesson", "", "lesson the passage comes from")
	highlightCmd.Flags().StringVar(&highlightSection, "section", "", "section title of the passage")
	highlightCmd.Flags().BoolVar(&highlightJSON, "json", false, "output the response as JSON")
	_ = highlightCmd.MarkFlagRequired("lesson")
	rootCmd.AddCommand(highlightCmd)
}

func runHighlight(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newChatApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.bot.AskAboutHighlight(ctx, strings.Join(args, " "), highlightLesson, highlightSection)
	if err != nil {
		return err
	}
	if highlightJSON {
		return printJSON(cmd, resp)
	}
	cmd.Println(resp.Response)
	if len(resp.RelatedContent) > 0 {
		cmd.Println()
		cmd.Println("Related:")
		printSources(cmd, resp.RelatedContent)
	}
	cmd.Println()
	cmd.Println("Suggestions:")
	for _, s := range chat.LessonSuggestions(highlightLesson) {
		cmd.Printf("  - %s\n", s)
	}
	return nil
}
