package service

import (
	"fmt"
	"strings"

	"docchat/internal/domain"
)

// ragSystemPrompt constrains answers to the retrieved context.
const ragSystemPrompt = `You are a helpful assistant that answers questions based on the provided context from an uploaded document.
You should only answer questions using information from the provided context. If the context doesn't contain enough information to answer a question,
you should say "I don't have enough information in the provided context to answer that question."
Do not make up or hallucinate information that isn't in the context.`

// ragMessages assembles the fixed message structure for a retrieval-backed
// question: retrieved chunk texts joined by a blank line in descending-score
// order, followed by the question.
func ragMessages(results []domain.SearchResult, question string) []domain.Message {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	user := fmt.Sprintf("Context from the document:\n%s\n\nUser question: %s",
		strings.Join(texts, "\n\n"), question)
	return []domain.Message{
		{Role: domain.RoleSystem, Content: ragSystemPrompt},
		{Role: domain.RoleUser, Content: user},
	}
}
