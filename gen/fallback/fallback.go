// Package fallback produces deterministic, topic-matched guidance text when
// every remote channel has failed, so a conversational flow never shows the
// user a dead end. Classification is a data-driven lookup table: the
// lowercased prompt is matched against ordered keyword buckets and the first
// matching bucket wins. This is a deliberate simplification, not a ranking.
package fallback

import "strings"

// bucket pairs a keyword set with its canned response.
type bucket struct {
	name     string
	keywords []string
	response string
}

// Bucket order matters: ad/copy before email before strategy.
var buckets = []bucket{
	{
		name:     "ad-copy",
		keywords: []string{"ad", "copy"},
		response: "Here's a compelling ad framework for you:\n\n" +
			"**Ad Copy Structure:**\n\n" +
			"**Hook:** Grab attention in the first line\n" +
			"**Problem:** Address the pain point\n" +
			"**Solution:** Present your offer\n" +
			"**Proof:** Add social proof or benefits\n" +
			"**CTA:** Clear call to action\n\n" +
			"Want me to write specific copy? Tell me about your product!",
	},
	{
		name:     "email",
		keywords: []string{"email", "subject"},
		response: "Here are 5 high-converting email subject lines:\n\n" +
			"1. [Benefit] in just [Timeframe]\n" +
			"2. Don't miss: [Offer] ends tonight\n" +
			"3. Quick question about [Topic]...\n" +
			"4. You're invited: [Event/Offer]\n" +
			"5. The #1 mistake in [Industry]\n\n" +
			"Which style fits your campaign?",
	},
	{
		name:     "strategy",
		keywords: []string{"strategy", "plan"},
		response: "Here's a marketing strategy framework:\n\n" +
			"**Marketing Plan:**\n\n" +
			"**1. Define Goals**\n- Revenue targets\n- Lead generation\n- Brand awareness\n\n" +
			"**2. Know Your Audience**\n- Demographics\n- Pain points\n- Buying behavior\n\n" +
			"**3. Choose Channels**\n- Paid ads\n- Content marketing\n- Social media\n- Email\n\n" +
			"**4. Create Content**\n- Value-driven\n- Consistent brand\n- Clear CTAs\n\n" +
			"Want me to dive deeper into any area?",
	},
}

// generic is returned when no bucket matches.
const generic = "Great question! As your AI marketing assistant, I can help you with:\n\n" +
	"**What I Do Best:**\n" +
	"- Write compelling ad copy\n" +
	"- Create marketing strategies\n" +
	"- Generate email campaigns\n" +
	"- Optimize for conversions\n" +
	"- Social media content\n\n" +
	"What specific marketing challenge can I help you solve today?"

// Generate classifies promptText into a topic bucket and returns that
// bucket's guidance. It is pure and deterministic: identical prompts always
// yield identical text, and it never fails.
func Generate(promptText string) string {
	lower := strings.ToLower(promptText)
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				return b.response
			}
		}
	}
	return generic
}

// Bucket reports which bucket Generate would use for promptText. Exposed for
// observability; "generic" when no keyword matches.
func Bucket(promptText string) string {
	lower := strings.ToLower(promptText)
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				return b.name
			}
		}
	}
	return "generic"
}
