package classification

import (
	"context"
	"errors"
	"testing"
	"time"

	"pipeline_server/core/domain"

	"github.com/rs/zerolog"
)

func testEmail(subject, body string) *domain.Email {
	return &domain.Email{
		ID:         "em-test",
		From:       "customer@example.com",
		To:         "ops@business.example",
		Subject:    subject,
		Body:       body,
		ReceivedAt: time.Now(),
	}
}

// failingService always errors, simulating an unreachable AI provider.
type failingService struct{}

func (f *failingService) Classify(ctx context.Context, email *domain.Email) (*domain.Classification, error) {
	return nil, errors.New("connection refused")
}

// cannedService returns a fixed classification.
type cannedService struct {
	result *domain.Classification
}

func (c *cannedService) Classify(ctx context.Context, email *domain.Email) (*domain.Classification, error) {
	return c.result, nil
}

func TestKeywordStrategyCategories(t *testing.T) {
	strategy := NewKeywordStrategy()

	tests := []struct {
		name         string
		subject      string
		body         string
		wantCategory domain.EmailCategory
		wantUrgency  domain.Urgency
	}{
		{
			name:         "urgent plumbing emergency",
			subject:      "URGENT: pipe burst",
			body:         "water everywhere, need help now",
			wantCategory: domain.CategoryUrgent,
			wantUrgency:  domain.UrgencyCritical,
		},
		{
			name:         "pricing inquiry",
			subject:      "Question about pricing",
			body:         "what is your hourly rate?",
			wantCategory: domain.CategoryInquiry,
			wantUrgency:  domain.UrgencyNormal,
		},
		{
			name:         "appointment request",
			subject:      "Schedule a visit",
			body:         "are you available next Tuesday? I'd like to book a time slot",
			wantCategory: domain.CategoryAppointment,
			wantUrgency:  domain.UrgencyNormal,
		},
		{
			name:         "complaint is high urgency",
			subject:      "Very disappointed",
			body:         "this is unacceptable, the repair was wrong and I want a refund",
			wantCategory: domain.CategoryComplaint,
			wantUrgency:  domain.UrgencyHigh,
		},
		{
			name:         "followup",
			subject:      "Following up",
			body:         "just checking in, any update on my request?",
			wantCategory: domain.CategoryFollowup,
			wantUrgency:  domain.UrgencyNormal,
		},
		{
			name:         "single urgent keyword is high",
			subject:      "Please respond asap",
			body:         "the sink drains slowly",
			wantCategory: domain.CategoryUrgent,
			wantUrgency:  domain.UrgencyCritical, // category urgent forces critical
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := strategy.Classify(context.Background(), testEmail(tt.subject, tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Category != tt.wantCategory {
				t.Errorf("category = %v, want %v", result.Category, tt.wantCategory)
			}
			if result.Urgency != tt.wantUrgency {
				t.Errorf("urgency = %v, want %v", result.Urgency, tt.wantUrgency)
			}
			if result.Confidence <= 0 || result.Confidence > 100 {
				t.Errorf("confidence = %d, want within (0, 100]", result.Confidence)
			}
		})
	}
}

func TestKeywordStrategyEmptyEmailDefaults(t *testing.T) {
	strategy := NewKeywordStrategy()

	result, err := strategy.Classify(context.Background(), testEmail("", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Category != domain.CategoryGeneral {
		t.Errorf("category = %v, want general", result.Category)
	}
	if result.Confidence != 25 {
		t.Errorf("confidence = %d, want 25", result.Confidence)
	}
	if result.Method != domain.MethodDefault {
		t.Errorf("method = %v, want default", result.Method)
	}
}

func TestKeywordStrategyTwoUrgentKeywordsIsCritical(t *testing.T) {
	strategy := NewKeywordStrategy()

	// Two distinct urgent patterns, framed inside an appointment request.
	email := testEmail("Need an emergency visit", "please schedule someone immediately, this is an emergency")
	result, err := strategy.Classify(context.Background(), email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Urgency != domain.UrgencyCritical {
		t.Errorf("urgency = %v, want critical for >=2 urgent hits", result.Urgency)
	}
}

func TestKeywordStrategySentiment(t *testing.T) {
	strategy := NewKeywordStrategy()

	tests := []struct {
		name string
		body string
		want domain.Sentiment
	}{
		{"positive", "thanks so much, the service was excellent, question about pricing", domain.SentimentPositive},
		{"negative", "I am frustrated and angry, question about my bill", domain.SentimentNegative},
		{"neutral", "question about pricing for next month", domain.SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _ := strategy.Classify(context.Background(), testEmail("hello", tt.body))
			if result.Sentiment != tt.want {
				t.Errorf("sentiment = %v, want %v", result.Sentiment, tt.want)
			}
		})
	}
}

func TestClassifierFallsBackToKeywords(t *testing.T) {
	classifier := NewClassifier(zerolog.Nop(),
		NewAIStrategy(&failingService{}),
		NewKeywordStrategy(),
	)

	result := classifier.Classify(context.Background(), testEmail("Question about pricing", "what is your hourly rate?"))
	if result.Category != domain.CategoryInquiry {
		t.Errorf("category = %v, want inquiry via keyword fallback", result.Category)
	}
	if result.Method != domain.MethodRules {
		t.Errorf("method = %v, want rules", result.Method)
	}
}

func TestClassifierNormalizesAIOutput(t *testing.T) {
	// The provider returns an unknown category and out-of-range confidence.
	svc := &cannedService{result: &domain.Classification{
		Category:   "spam-or-something",
		Urgency:    "very-high",
		Confidence: 250,
		Sentiment:  "mixed",
	}}
	classifier := NewClassifier(zerolog.Nop(), NewAIStrategy(svc), NewKeywordStrategy())

	result := classifier.Classify(context.Background(), testEmail("hello", "world"))
	if result.Category != domain.CategoryGeneral {
		t.Errorf("category = %v, want general for unknown value", result.Category)
	}
	if result.Urgency != domain.UrgencyNormal {
		t.Errorf("urgency = %v, want normal for unknown value", result.Urgency)
	}
	if result.Confidence != 100 {
		t.Errorf("confidence = %d, want clamped to 100", result.Confidence)
	}
	if result.Sentiment != domain.SentimentNeutral {
		t.Errorf("sentiment = %v, want neutral for unknown value", result.Sentiment)
	}
	if result.Method != domain.MethodAI {
		t.Errorf("method = %v, want ai", result.Method)
	}
}

func TestClassifierNoStrategiesReturnsDefault(t *testing.T) {
	classifier := NewClassifier(zerolog.Nop())

	result := classifier.Classify(context.Background(), testEmail("anything", "at all"))
	if result.Category != domain.CategoryGeneral || result.Confidence != 25 {
		t.Errorf("got %+v, want default classification", result)
	}
}

func TestRequiresResponsePolicy(t *testing.T) {
	tests := []struct {
		name string
		c    domain.Classification
		want bool
	}{
		{"critical urgency", domain.Classification{Category: domain.CategoryGeneral, Urgency: domain.UrgencyCritical}, true},
		{"high urgency", domain.Classification{Category: domain.CategoryGeneral, Urgency: domain.UrgencyHigh}, true},
		{"complaint", domain.Classification{Category: domain.CategoryComplaint, Urgency: domain.UrgencyNormal}, true},
		{"inquiry", domain.Classification{Category: domain.CategoryInquiry, Urgency: domain.UrgencyNormal}, true},
		{"appointment", domain.Classification{Category: domain.CategoryAppointment, Urgency: domain.UrgencyLow}, true},
		{"general normal", domain.Classification{Category: domain.CategoryGeneral, Urgency: domain.UrgencyNormal}, false},
		{"followup low", domain.Classification{Category: domain.CategoryFollowup, Urgency: domain.UrgencyLow}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := requiresResponse(&tt.c); got != tt.want {
				t.Errorf("requiresResponse = %v, want %v", got, tt.want)
			}
		})
	}
}
