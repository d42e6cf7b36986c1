package rag

import (
	"fmt"
	"strings"

	"pdfchat-ai/internal/llm"
	"pdfchat-ai/internal/segmenter"
	"pdfchat-ai/internal/storage"
)

// systemPrompt instructs the model to answer from the uploaded documents
// and to quote their exact wording, which is what makes span highlighting
// possible downstream.
const systemPrompt = "You are a highly capable AI assistant analyzing the PDF documents uploaded to this chat.\n" +
	"IMPORTANT: NEVER say phrases like 'I don't have access' or similar disclaimers. You DO have complete access to all uploaded documents.\n" +
	"If you can't find specific information in the documents, say 'Based on the documents provided, I couldn't find specific information about X' instead.\n" +
	"Always refer to the documents directly as if you've carefully analyzed them. Be specific about what you found in them.\n" +
	"Respond with well-formatted markdown. Use headings, bullet points, and emojis where it enhances clarity.\n" +
	"Be precise and concise. Extract only the most important ideas and summarize them clearly.\n" +
	"When citing evidence, use exact quotes from the documents and refer to specific sections.\n" +
	"Answer multiple questions separately with headings and dividers (---) for clarity.\n" +
	"Use exact terminology from the documents to allow for proper highlighting.\n" +
	"Be selective with citations - only refer to sources when directly quoting or paraphrasing specific content.\n" +
	"End with a brief, helpful conclusion. Avoid generic advice unless specifically requested.\n"

// buildMessages assembles the full model conversation: the system
// instruction, the prior turns, and the new question with the retrieved
// chunks inlined as grounding context.
func buildMessages(history []storage.MessageRecord, question string, chunks []segmenter.Chunk) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})

	for _, msg := range history {
		role := "user"
		if msg.Role == storage.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}

	messages = append(messages, llm.Message{
		Role:    "user",
		Content: formatQuestion(question, chunks),
	})
	return messages
}

// formatQuestion appends the grounding context to the question. With no
// retrieved chunks the question goes through bare, so the model answers
// from conversation history alone.
func formatQuestion(question string, chunks []segmenter.Chunk) string {
	if len(chunks) == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString(question)
	b.WriteString("\n\n--- Context from documents ---\n\n")
	for _, chunk := range chunks {
		fmt.Fprintf(&b, "[Document: %s, page %d]\n%s\n\n", chunk.DocumentName, chunk.PageNumber, chunk.Text)
	}
	b.WriteString("--- End Context ---")
	return b.String()
}
