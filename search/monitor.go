package search

import "github.com/poiesic/vidsearch/core"

// SearchMonitor provides hooks to observe a keyword search.
// Implement this interface to trace cache behavior and filtering.
type SearchMonitor interface {
	Start(query string)
	CacheHit(query string, results []core.SearchResult)
	AfterIndexSearch(query string, results []core.SearchResult)
	Finish(threshold float32, results []core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                   {}
func (n *noopMonitor) CacheHit(_ string, _ []core.SearchResult)         {}
func (n *noopMonitor) AfterIndexSearch(_ string, _ []core.SearchResult) {}
func (n *noopMonitor) Finish(_ float32, _ []core.SearchResult)          {}
