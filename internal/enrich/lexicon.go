package enrich

// Word lists backing the lexical scorers. Strong words carry weight 2,
// ordinary words weight 1. Matching is case-insensitive substring on the
// customer-side text.

var positiveWords = map[string]float64{
	"good":      1,
	"great":     1,
	"happy":     1,
	"pleased":   1,
	"satisfied": 1,
	"helpful":   1,
	"thank":     1,
	"thanks":    1,
	"excellent": 2,
	"amazing":   2,
	"wonderful": 2,
	"fantastic": 2,
	"love":      2,
	"perfect":   2,
}

var negativeWords = map[string]float64{
	"bad":          1,
	"unhappy":      1,
	"upset":        1,
	"problem":      1,
	"issue":        1,
	"disappointed": 1,
	"frustrated":   1,
	"angry":        1,
	"complaint":    1,
	"terrible":     2,
	"awful":        2,
	"horrible":     2,
	"worst":        2,
	"hate":         2,
	"dissatisfied": 2,
}

// Courtesy phrases that raise the quality score.
var positiveIndicators = []string{
	"thank you", "please", "help", "understand", "sorry", "apologize",
	"certainly", "absolutely", "of course", "glad to help",
}

// Phrases that drag the quality score down.
var negativeIndicators = []string{
	"rude", "unprofessional", "hang up", "transfer", "manager",
	"escalate", "frustrated", "angry", "upset",
}

// Script elements an agent is expected to hit, in call order.
var scriptElements = []struct {
	name    string
	phrases []string
}{
	{"greeting", []string{"thank you for calling", "feel good spas", "how can i help", "this is"}},
	{"identification", []string{"my name is", "this is", "speaking"}},
	{"acknowledgment", []string{"understand", "i see", "i hear", "let me help"}},
	{"solution", []string{"i can help", "let me", "what i can do", "here's what"}},
	{"follow_up", []string{"anything else", "is there anything", "follow up", "contact us"}},
	{"closing", []string{"thank you", "have a great", "wonderful day", "goodbye"}},
}

// Closed topic set. Anything that matches nothing is labelled "other".
var topicOrder = []string{
	"appointment_scheduling",
	"service_inquiry",
	"billing_payment",
	"complaint",
	"compliment",
	"cancellation",
	"technical_support",
	"product_inquiry",
	"location_hours",
}

var topicKeywords = map[string][]string{
	"appointment_scheduling": {"appointment", "schedule", "booking", "book", "reserve", "availability"},
	"service_inquiry":        {"service", "treatment", "massage", "facial", "spa", "therapy", "package"},
	"billing_payment":        {"billing", "payment", "charge", "invoice", "refund", "credit", "cost", "price"},
	"complaint":              {"complaint", "problem", "issue", "unhappy", "dissatisfied", "disappointed", "terrible"},
	"compliment":             {"great", "excellent", "amazing", "wonderful", "fantastic", "love", "satisfied"},
	"cancellation":           {"cancel", "cancellation", "reschedule", "change", "modify"},
	"technical_support":      {"website", "app", "technical", "login", "password", "system"},
	"product_inquiry":        {"product", "gift card", "membership", "package", "voucher"},
	"location_hours":         {"hours", "location", "address", "directions", "parking", "open", "closed"},
}

// Outcome keywords are matched against the final utterances only.
var resolvedKeywords = []string{
	"resolved", "fixed", "solved", "helped", "booked", "scheduled", "all set",
}

var escalatedKeywords = []string{
	"escalate", "manager", "supervisor", "transfer", "call back", "follow up",
}

var highUrgencyKeywords = []string{
	"urgent", "emergency", "asap", "immediately", "crisis", "critical",
}

var mediumUrgencyKeywords = []string{
	"soon", "today", "this week", "important", "need help",
}
