package retrieval

import "github.com/totodo/allpassagent/core"

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results during retrieval.
type Monitor interface {
	Start(query string)
	AfterQueryEnrichment(enriched string)
	AfterPrimarySearch(matches []core.SearchMatch)
	AfterSecondarySearch(matches []core.SearchMatch)
	AfterFusion(results []core.RerankResult)
	Finish(results []core.RerankResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                            {}
func (n *noopMonitor) AfterQueryEnrichment(_ string)             {}
func (n *noopMonitor) AfterPrimarySearch(_ []core.SearchMatch)   {}
func (n *noopMonitor) AfterSecondarySearch(_ []core.SearchMatch) {}
func (n *noopMonitor) AfterFusion(_ []core.RerankResult)         {}
func (n *noopMonitor) Finish(_ []core.RerankResult)              {}
