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
	"bufio"
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zakiabashir/physical-ai-robotics-textbook/chat"
	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
	"github.com/zakiabashir/physical-ai-robotics-textbook/log"
)

const chatHelp = `Commands:
  /lesson <id>        set the lesson being read
  /feedback <1-5> [comment]
                      rate the last answer
  /open <n>           record a click on source n of the last answer
  /history            show the conversation so far
  /stats [days]       print the analytics dashboard
  /export             print every recorded query as JSON
  /quit               leave`

var (
	chatUser         string
	chatDashboard    bool
	chatDashDays     int
	chatConversation string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive tutoring session",
	Long: `Reads questions from stdin, one per line, inside a single conversation.
Lines starting with "/" are commands; type /help to list them.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "", "learner identifier")
	chatCmd.Flags().StringVar(&chatConversation, "conversation", "", "resume an existing conversation")
	chatCmd.Flags().BoolVar(&chatDashboard, "dashboard", false, "print the analytics dashboard on exit")
	chatCmd.Flags().IntVar(&chatDashDays, "days", 7, "days covered by the dashboard")
	rootCmd.AddCommand(chatCmd)
}

// session is the state of one interactive chat.
type session struct {
	bot            *chat.Bot
	userID         string
	conversationID string
	lessonID       string
	last           *chat.Response
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newChatApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	s := &session{bot: a.bot, userID: chatUser, conversationID: chatConversation}
	sc := bufio.NewScanner(cmd.InOrStdin())
	cmd.Println(`Ask a question, or /help for commands.`)
	for {
		cmd.Print("> ")
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := s.command(cmd, line)
			if err != nil {
				cmd.PrintErrln("error:", err)
			}
			if quit {
				break
			}
			continue
		}
		s.ask(cmd, line)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if chatDashboard {
		return printJSON(cmd, a.bot.Recorder().Dashboard(chatDashDays))
	}
	return nil
}

func (s *session) ask(cmd *cobra.Command, message string) {
	req := &chat.Request{Message: message, ConversationID: s.conversationID, UserID: s.userID}
	if s.lessonID != "" {
		req.Context = &query.PageContext{LessonID: s.lessonID}
	}
	resp, err := s.bot.ProcessMessage(cmd.Context(), req)
	if err != nil {
		log.Warnf("cli: %v", err)
	}
	if resp == nil {
		cmd.PrintErrln("error:", err)
		return
	}
	s.conversationID = resp.ConversationID
	s.last = resp
	printResponse(cmd, resp)
}

func (s *session) command(cmd *cobra.Command, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	ctx := cmd.Context()
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		cmd.Println(chatHelp)
	case "/lesson":
		if len(fields) < 2 {
			s.lessonID = ""
			return false, nil
		}
		s.lessonID = fields[1]
	case "/feedback":
		if s.last == nil {
			return false, errors.New("nothing to rate yet")
		}
		if len(fields) < 2 {
			return false, errors.New("usage: /feedback <1-5> [comment]")
		}
		rating, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, err
		}
		return false, s.bot.SubmitFeedback(ctx, chat.Feedback{
			ConversationID: s.conversationID,
			QueryID:        s.last.QueryID,
			Rating:         rating,
			Comment:        strings.Join(fields[2:], " "),
		})
	case "/open":
		if s.last == nil || len(fields) < 2 {
			return false, errors.New("usage: /open <n>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > len(s.last.Sources) {
			return false, errors.New("no such source")
		}
		src := s.last.Sources[n-1]
		s.bot.TrackSourceClick(s.last.QueryID, src.URL)
		cmd.Println(src.URL)
	case "/history":
		if s.conversationID == "" {
			return false, nil
		}
		msgs, err := s.bot.ConversationHistory(ctx, s.conversationID, 0)
		if err != nil {
			return false, err
		}
		for _, m := range msgs {
			cmd.Printf("%s: %s\n", m.Role, m.Content)
		}
	case "/stats":
		days := chatDashDays
		if len(fields) > 1 {
			if days, err = strconv.Atoi(fields[1]); err != nil {
				return false, err
			}
		}
		return false, printJSON(cmd, s.bot.Recorder().Dashboard(days))
	case "/export":
		data, err := s.bot.Recorder().Export()
		if err != nil {
			return false, err
		}
		cmd.Println(string(data))
	default:
		return false, errors.New("unknown command, try /help")
	}
	return false, nil
}
