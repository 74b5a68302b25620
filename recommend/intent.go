package recommend

import (
	"strings"

	"github.com/totodo/allpassagent/core"
)

var intentMarkers = []struct {
	intent  core.Intent
	markers []string
}{
	{core.IntentProblemSolving, []string{"error", "fix", "fail", "broken", "issue", "problem", "debug", "not working"}},
	{core.IntentComparison, []string{" vs ", "versus", "difference", "compare", "better than", "instead of"}},
	{core.IntentLearning, []string{"what is", "explain", "understand", "learn", "how does", "mean"}},
}

// ClassifyIntent buckets the user's message into one of the closed set of
// intents. The first matching marker wins; anything else is general.
func ClassifyIntent(message string) core.Intent {
	lower := strings.ToLower(message)
	for _, group := range intentMarkers {
		for _, marker := range group.markers {
			if strings.Contains(lower, marker) {
				return group.intent
			}
		}
	}
	return core.IntentGeneral
}
