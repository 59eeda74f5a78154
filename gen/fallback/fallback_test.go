package fallback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateAdCopy(t *testing.T) {
	got := Generate("Write some ad copy for my new running shoes")
	assert.Contains(t, got, "Ad Copy Structure")
}

func TestGenerateEmail(t *testing.T) {
	got := Generate("I need email subject lines for a launch")
	assert.Contains(t, strings.ToLower(got), "subject lines")
}

func TestGenerateStrategy(t *testing.T) {
	got := Generate("help me build a marketing strategy")
	assert.Contains(t, got, "Marketing Plan")
}

func TestGenerateGeneric(t *testing.T) {
	got := Generate("hello there")
	assert.Contains(t, got, "What I Do Best")
}

func TestGenerateCaseInsensitive(t *testing.T) {
	assert.Equal(t, Generate("EMAIL SUBJECT LINES"), Generate("email subject lines"))
}

func TestGenerateDeterministic(t *testing.T) {
	prompt := "give me a campaign plan"
	assert.Equal(t, Generate(prompt), Generate(prompt))
}

func TestGenerateBucketOrder(t *testing.T) {
	// "ad" outranks "email" when both match.
	got := Generate("ad copy for an email campaign")
	assert.Contains(t, got, "Ad Copy Structure")
}

func TestBucketNames(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"write ad copy", "ad-copy"},
		{"email subject ideas", "email"},
		{"quarterly strategy", "strategy"},
		{"hi", "generic"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bucket(tt.prompt), tt.prompt)
	}
}
