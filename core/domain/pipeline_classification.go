package domain

// EmailCategory is the fixed intent taxonomy for inbound business email.
type EmailCategory string

const (
	CategoryUrgent      EmailCategory = "urgent"
	CategoryAppointment EmailCategory = "appointment"
	CategoryComplaint   EmailCategory = "complaint"
	CategoryInquiry     EmailCategory = "inquiry"
	CategoryFollowup    EmailCategory = "followup"
	CategoryGeneral     EmailCategory = "general"
)

// IsValidCategory reports whether s is a known category.
func IsValidCategory(s string) bool {
	switch EmailCategory(s) {
	case CategoryUrgent, CategoryAppointment, CategoryComplaint,
		CategoryInquiry, CategoryFollowup, CategoryGeneral:
		return true
	}
	return false
}

// ParseCategory maps a raw string to a category, defaulting to general.
func ParseCategory(s string) EmailCategory {
	if IsValidCategory(s) {
		return EmailCategory(s)
	}
	return CategoryGeneral
}

// Urgency levels, lowest to highest.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ParseUrgency maps a raw string to an urgency, defaulting to normal.
func ParseUrgency(s string) Urgency {
	switch Urgency(s) {
	case UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyCritical:
		return Urgency(s)
	}
	return UrgencyNormal
}

// Sentiment of the sender.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment maps a raw string to a sentiment, defaulting to neutral.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return Sentiment(s)
	}
	return SentimentNeutral
}

// ClassifyMethod records which strategy produced a classification.
type ClassifyMethod string

const (
	MethodAI      ClassifyMethod = "ai"
	MethodRules   ClassifyMethod = "rules"
	MethodDefault ClassifyMethod = "default"
)

// Classification is the structured result of classifying one email.
// Confidence is an opaque 0-100 score used for threshold comparisons
// only; it is not a calibrated probability.
type Classification struct {
	Category         EmailCategory  `json:"category"`
	Urgency          Urgency        `json:"urgency"`
	Confidence       int            `json:"confidence"`
	Sentiment        Sentiment      `json:"sentiment"`
	Keywords         []string       `json:"keywords,omitempty"`
	Method           ClassifyMethod `json:"method"`
	Reasoning        string         `json:"reasoning,omitempty"`
	RequiresResponse bool           `json:"requires_response"`
}

// DefaultClassification is returned when every classification strategy
// fails. It keeps the pipeline's "always produce an outcome" guarantee.
func DefaultClassification() *Classification {
	return &Classification{
		Category:   CategoryGeneral,
		Urgency:    UrgencyNormal,
		Confidence: 25,
		Sentiment:  SentimentNeutral,
		Method:     MethodDefault,
		Reasoning:  "classification unavailable, default applied",
	}
}
