package llm

import (
	"context"
	"fmt"
	"strings"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"
	"pipeline_server/pkg/apperr"
)

// maxReplyBody caps how much of the email body goes into the prompt.
const maxReplyBody = 3000

// ReplyGenerator implements out.GenerationService on the chat API.
type ReplyGenerator struct {
	client *Client
}

// NewReplyGenerator creates an LLM-backed reply generator.
func NewReplyGenerator(client *Client) *ReplyGenerator {
	return &ReplyGenerator{client: client}
}

// GenerateReply drafts a reply in the tenant's voice. The style
// profile and business context are embedded in the system prompt; the
// email itself is the user message.
func (g *ReplyGenerator) GenerateReply(ctx context.Context, email *domain.Email, category domain.EmailCategory, profile *domain.StyleProfile, businessContext map[string]string) (string, error) {
	systemPrompt := buildReplyPrompt(category, profile, businessContext)
	userPrompt := fmt.Sprintf("From: %s\nSubject: %s\n\n%s",
		email.From, email.Subject, truncate(email.Body, maxReplyBody))

	text, err := g.client.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.ExternalError("llm", fmt.Errorf("empty reply"))
	}
	return text, nil
}

// buildReplyPrompt embeds tone, formality, signature phrases, vocabulary
// preferences and preferred length into the system prompt.
func buildReplyPrompt(category domain.EmailCategory, profile *domain.StyleProfile, businessContext map[string]string) string {
	var b strings.Builder
	b.WriteString("You draft replies to inbound business emails on behalf of the business owner.\n")
	fmt.Fprintf(&b, "The email was classified as: %s.\n", category)
	b.WriteString("Write only the reply body. No subject line, no signature block.\n")

	if profile != nil {
		b.WriteString("\nMatch the owner's writing style:\n")
		if profile.Tone != "" {
			fmt.Fprintf(&b, "- Tone: %s\n", profile.Tone)
		}
		if profile.Formality != "" {
			fmt.Fprintf(&b, "- Formality: %s\n", profile.Formality)
		}
		if phrases := profile.TopSignaturePhrases(5); len(phrases) > 0 {
			fmt.Fprintf(&b, "- Phrases they often use: %s\n", strings.Join(phrases, "; "))
		}
		if len(profile.VocabularyPatterns) > 0 {
			fmt.Fprintf(&b, "- Preferred vocabulary: %s\n", strings.Join(profile.VocabularyPatterns, "; "))
		}
		if profile.AvgEmailLength > 0 {
			fmt.Fprintf(&b, "- Typical reply length: about %d characters\n", profile.AvgEmailLength)
		}
	}

	if len(businessContext) > 0 {
		b.WriteString("\nBusiness details you may reference:\n")
		for key, value := range businessContext {
			fmt.Fprintf(&b, "- %s: %s\n", key, value)
		}
	}

	return b.String()
}

// Compile-time interface check
var _ out.GenerationService = (*ReplyGenerator)(nil)
