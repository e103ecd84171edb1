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

package chat

import (
	"strings"

	"github.com/zakiabashir/physical-ai-robotics-textbook/knowledge/query"
	"github.com/zakiabashir/physical-ai-robotics-textbook/model"
)

const systemPrompt = `You are an AI tutor for the Physical AI & Humanoid Robotics textbook.
Your role is to help students learn about Physical AI and humanoid robotics.

IMPORTANT: Use only the information provided in the retrieved context to answer questions.
If the context doesn't contain enough information to answer the question, say:
"I don't have enough information in the textbook to answer that question."

Guidelines:
- Always base your answers on the retrieved textbook content
- Explain concepts clearly and at an appropriate level
- Provide examples when available in the context
- Be encouraging and supportive
- Ask follow-up questions to check understanding
- Cite sources from the textbook when possible`

const fallbackPrompt = `You are an AI tutor for Physical AI & Humanoid Robotics.
The retrieval system is currently unavailable.

Guidelines:
- Provide general knowledge about Physical AI and robotics
- Be transparent about limitations
- Suggest checking the textbook for specific information
- Encourage students to try again later
- Do not make up specific textbook content`

const (
	fallbackContext = "The textbook search system is currently unavailable."
	apologyMessage  = "I apologize, but I encountered an error processing your message. Please try again."

	textbookContextPrefix = "Textbook Context:\n"
	currentContextPrefix  = "Current Context: "
	selectedTextRunes     = 100
)

// buildMessages assembles the prompt: system prompt, textbook context,
// optional page context, history, then the learner message.
func buildMessages(useFallback bool, textbook string, pc *query.PageContext, history []model.Message, message string) []model.Message {
	prompt := systemPrompt
	if useFallback {
		prompt = fallbackPrompt
	}
	messages := make([]model.Message, 0, len(history)+4)
	messages = append(messages,
		model.NewSystemMessage(prompt),
		model.NewSystemMessage(textbookContextPrefix+textbook),
	)
	if line := currentContext(pc); line != "" {
		messages = append(messages, model.NewSystemMessage(currentContextPrefix+line))
	}
	messages = append(messages, history...)
	return append(messages, model.NewUserMessage(message))
}

// currentContext describes where the learner is in the textbook.
func currentContext(pc *query.PageContext) string {
	if pc.IsZero() {
		return ""
	}
	var parts []string
	if pc.LessonID != "" {
		parts = append(parts, "Currently viewing lesson: "+pc.LessonID)
	}
	if pc.SectionTitle != "" {
		parts = append(parts, "Reading section: "+pc.SectionTitle)
	}
	if pc.SelectedText != "" {
		selected := []rune(pc.SelectedText)
		if len(selected) > selectedTextRunes {
			selected = selected[:selectedTextRunes]
		}
		parts = append(parts, "Selected text: "+string(selected)+"...")
	}
	return strings.Join(parts, " | ")
}
