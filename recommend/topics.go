package recommend

import (
	"strings"

	"github.com/totodo/allpassagent/core"
)

// maxTopics bounds how many topics feed the question generators.
const maxTopics = 5

// topicKeywords maps a named topic to the keywords that signal it.
// Table-driven so deployments can be tuned without touching the generators.
var topicKeywords = map[string][]string{
	"architecture": {"architecture", "design", "structure", "component", "module"},
	"deployment":   {"deploy", "deployment", "release", "rollout", "environment"},
	"performance":  {"performance", "latency", "throughput", "slow", "optimize"},
	"security":     {"security", "auth", "authentication", "permission", "encryption"},
	"testing":      {"test", "testing", "coverage", "regression", "mock"},
	"data":         {"data", "database", "storage", "schema", "index"},
	"workflow":     {"workflow", "process", "pipeline", "queue", "task"},
}

// ExtractTopics derives conversation topics from the current message and
// history: named topics from the keyword table first, then the most
// frequent free keywords to fill up the list.
func ExtractTopics(convo core.ConversationContext) []string {
	var text strings.Builder
	text.WriteString(convo.Message)
	for _, turn := range convo.History {
		text.WriteByte(' ')
		text.WriteString(turn.Content)
	}

	words := tokenizeAndFilter(text.String())
	wordSet := make(map[string]bool, len(words))
	for _, word := range words {
		wordSet[word] = true
	}

	topics := make([]string, 0, maxTopics)
	seen := make(map[string]bool)
	// Iterate the table in a fixed order for deterministic output.
	for _, topic := range []string{"architecture", "deployment", "performance", "security", "testing", "data", "workflow"} {
		for _, keyword := range topicKeywords[topic] {
			if wordSet[keyword] {
				topics = append(topics, topic)
				seen[topic] = true
				break
			}
		}
	}

	for _, keyword := range topKeywords(convo.Message, maxTopics) {
		if len(topics) >= maxTopics {
			break
		}
		if !seen[keyword] {
			topics = append(topics, keyword)
			seen[keyword] = true
		}
	}

	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}
