package llm

import (
	"strings"
	"testing"

	"pipeline_server/core/domain"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  {\"a\":1}  ", "{\"a\":1}"},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	got := truncate(strings.Repeat("x", 20), 10)
	if got != strings.Repeat("x", 10)+"..." {
		t.Errorf("got %q", got)
	}
}

func TestBuildReplyPrompt_EmbedsProfile(t *testing.T) {
	profile := &domain.StyleProfile{
		Tone:             "friendly",
		Formality:        "casual",
		SignaturePhrases: []string{"happy to help", "cheers", "talk soon", "no worries", "anytime", "sixth phrase"},
		AvgEmailLength:   150,
	}
	prompt := buildReplyPrompt(domain.CategoryInquiry, profile, map[string]string{"business_name": "Acme"})

	for _, want := range []string{"inquiry", "friendly", "casual", "happy to help", "150", "business_name: Acme"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	// only the top 5 signature phrases are embedded
	if strings.Contains(prompt, "sixth phrase") {
		t.Error("prompt must cap signature phrases at 5")
	}
}

func TestBuildReplyPrompt_NoProfile(t *testing.T) {
	prompt := buildReplyPrompt(domain.CategoryGeneral, nil, nil)
	if strings.Contains(prompt, "writing style") {
		t.Error("style section must be omitted without a profile")
	}
	if !strings.Contains(prompt, "general") {
		t.Error("category must be embedded")
	}
}
