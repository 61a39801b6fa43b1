package llm

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"
	"pipeline_server/pkg/apperr"
)

const classifySystemPrompt = `You classify inbound business emails. Respond with only a JSON object, no prose:
{
  "category": "urgent|appointment|complaint|inquiry|followup|general",
  "urgency": "low|normal|high|critical",
  "sentiment": "positive|neutral|negative",
  "confidence": 0-100,
  "keywords": ["..."],
  "reasoning": "one short sentence"
}`

// maxClassifyBody caps how much of the email body goes into the
// prompt.
const maxClassifyBody = 2000

// Classifier implements out.ClassificationService on the chat API.
type Classifier struct {
	client *Client
}

// NewClassifier creates an LLM-backed classifier.
func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// classifyResponse mirrors the JSON shape the model is instructed to
// produce.
type classifyResponse struct {
	Category   string   `json:"category"`
	Urgency    string   `json:"urgency"`
	Sentiment  string   `json:"sentiment"`
	Confidence int      `json:"confidence"`
	Keywords   []string `json:"keywords"`
	Reasoning  string   `json:"reasoning"`
}

// Classify asks the model for a structured classification. Unparsable
// output is an error; the caller falls back to rule-based scoring.
func (c *Classifier) Classify(ctx context.Context, email *domain.Email) (*domain.Classification, error) {
	userPrompt := fmt.Sprintf("From: %s\nSubject: %s\n\n%s",
		email.From, email.Subject, truncate(email.Body, maxClassifyBody))

	raw, err := c.client.CompleteJSON(ctx, classifySystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var parsed classifyResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return nil, apperr.ExternalError("llm", fmt.Errorf("unparsable classification: %w", err))
	}

	return &domain.Classification{
		Category:   domain.ParseCategory(parsed.Category),
		Urgency:    domain.ParseUrgency(parsed.Urgency),
		Sentiment:  domain.ParseSentiment(parsed.Sentiment),
		Confidence: parsed.Confidence,
		Keywords:   parsed.Keywords,
		Reasoning:  parsed.Reasoning,
		Method:     domain.MethodAI,
	}, nil
}

// Compile-time interface check
var _ out.ClassificationService = (*Classifier)(nil)
