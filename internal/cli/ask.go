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
	"strings"

	"github.com/spf13/cobra"

	"github.com/zakiabashir/physical-ai-robotics-textbook/chat"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
)

var (
	askConversation string
	askUser         string
	askLesson       string
	askChapter      string
	askSection      string
	askSelected     string
	askJSON         bool
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask the tutor a question",
	Long: `Answers one question with textbook context. Page flags describe what the
learner is reading and steer retrieval toward that lesson.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	f := askCmd.Flags()
	f.StringVar(&askConversation, "conversation", "", "continue an existing conversation")
	f.StringVar(&askUser, "user", "", "learner identifier")
	f.StringVar(&askLesson, "lesson", "", "lesson being read")
	f.StringVar(&askChapter, "chapter", "", "chapter being read")
	f.StringVar(&askSection, "section", "", "section title being read")
	f.StringVar(&askSelected, "selected", "", "text the learner selected")
	f.BoolVar(&askJSON, "json", false, "output the full response as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newChatApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	req := &chat.Request{
		Message:        strings.Join(args, " "),
		ConversationID: askConversation,
		UserID:         askUser,
	}
	if askLesson != "" || askChapter != "" || askSection != "" || askSelected != "" {
		req.Context = &query.PageContext{
			LessonID:     askLesson,
			ChapterID:    askChapter,
			SectionTitle: askSection,
			SelectedText: askSelected,
		}
	}
	resp, err := a.bot.ProcessMessage(ctx, req)
	if err != nil && resp == nil {
		return err
	}
	if askJSON {
		if werr := printJSON(cmd, resp); werr != nil {
			return werr
		}
		return err
	}
	printResponse(cmd, resp)
	return err
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printResponse(cmd *cobra.Command, resp *chat.Response) {
	cmd.Println(resp.Message)
	if resp.UsedFallback {
		cmd.Println()
		cmd.Println("(textbook search unavailable, answered from general knowledge)")
	}
	if len(resp.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		printSources(cmd, resp.Sources)
	}
	if len(resp.Suggestions) > 0 {
		cmd.Println()
		cmd.Println("Next steps:")
		for _, s := range resp.Suggestions {
			cmd.Printf("  - %s\n", s)
		}
	}
	cmd.Printf("\nconversation %s, query %s, %s\n", resp.ConversationID, resp.QueryID, resp.ResponseTime.Round(1e6))
}

func printSources(cmd *cobra.Command, sources []chat.Source) {
	for i, s := range sources {
		label := s.Source
		if s.Title != "" {
			label += " - " + s.Title
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, label, s.Score)
		if s.URL != "" {
			cmd.Printf("      %s\n", s.URL)
		}
	}
}
