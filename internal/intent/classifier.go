// Package intent assigns a coarse category to a user query by keyword
// matching. The category tunes retrieval breadth (top-K) and the prompt
// style hint; no model call is involved.
package intent

import "strings"

type Intent string

const (
	FactualQuestion Intent = "factual_question"
	Summarization   Intent = "summarization"
	Comparison      Intent = "comparison"
	GeneralChat     Intent = "general_chat"
	Clarification   Intent = "clarification"
)

const defaultTopK = 5

// topKByIntent widens retrieval for intents that need broader context.
var topKByIntent = map[Intent]int{
	Summarization: 10,
	Comparison:    8,
}

var keywordsByIntent = []struct {
	intent   Intent
	keywords []string
}{
	{Clarification, []string{
		"what do you mean", "clarify", "can you explain that", "your previous answer",
		"you said", "elaborate", "rephrase", "i don't understand", "what does that mean",
	}},
	{Summarization, []string{
		"summarize", "summarise", "summary", "overview", "main points", "key points",
		"tl;dr", "tldr", "gist", "in short", "briefly describe",
	}},
	{Comparison, []string{
		"compare", "comparison", "difference between", "differences", "versus", " vs ",
		" vs.", "contrast", "differ", "similarities",
	}},
	{GeneralChat, []string{
		"hello", "hi there", "hey", "how are you", "good morning", "good afternoon",
		"good evening", "thank you", "thanks", "who are you", "what can you do",
	}},
}

// Classify matches the query against the keyword tables in priority
// order and falls back to FactualQuestion.
func Classify(query string) Intent {
	q := " " + strings.ToLower(strings.TrimSpace(query)) + " "
	for _, entry := range keywordsByIntent {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				return entry.intent
			}
		}
	}
	return FactualQuestion
}

// TopK returns the retrieval width for the intent.
func (i Intent) TopK() int {
	return i.TopKOr(defaultTopK)
}

// TopKOr returns the intent's dedicated width, or def for intents
// without one. A non-positive def falls back to the package default.
func (i Intent) TopKOr(def int) int {
	if k, ok := topKByIntent[i]; ok {
		return k
	}
	if def > 0 {
		return def
	}
	return defaultTopK
}

// StyleHint is appended to the prompt so the model adjusts its answer
// shape to the detected intent.
func (i Intent) StyleHint() string {
	switch i {
	case Summarization:
		return "The user wants a summary. Condense the context into its main points."
	case Comparison:
		return "The user wants a comparison. Lay out the differences and similarities explicitly."
	case Clarification:
		return "The user is asking about a previous answer. Re-explain it more plainly."
	case GeneralChat:
		return "The user is making conversation. Respond briefly and steer back to the documents."
	default:
		return "The user wants specific information. Answer precisely from the context."
	}
}

func (i Intent) String() string { return string(i) }
