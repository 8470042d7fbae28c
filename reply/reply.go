package reply

import "strings"

// Fallback is returned when no rule matches.
const Fallback = "I’m sorry, I didn’t catch that. Could you repeat?"

// Rule maps a keyword to a canned reply.
type Rule struct {
	Keyword string
	Reply   string
}

// Rules is evaluated in order; the first rule whose keyword occurs in the
// transcript wins.
type Rules []Rule

// Default is the scripted rule table. Order matters.
var Default = Rules{
	{Keyword: "hello", Reply: "Hello! How can I help you today?"},
	{Keyword: "price", Reply: "Our prices vary depending on the product. Can you specify what you’re looking for?"},
	{Keyword: "support", Reply: "I’ll connect you with our support team. Please hold on."},
}

// Lookup returns the reply for a transcript, matching case-insensitively.
func (r Rules) Lookup(transcript string) string {
	text := strings.ToLower(transcript)
	for _, rule := range r {
		if strings.Contains(text, strings.ToLower(rule.Keyword)) {
			return rule.Reply
		}
	}
	return Fallback
}

// Lookup uses the Default rules.
func Lookup(transcript string) string {
	return Default.Lookup(transcript)
}
