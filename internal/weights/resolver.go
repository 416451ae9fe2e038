// Package weights computes the effective retrieval weight triple for a query.
package weights

import "github.com/contextprime/crawlprime/internal/rag"

// Resolve turns declared weights plus live graph reachability into the
// normalized triple applied to one query. When the graph backend is
// unreachable its mass moves to the remaining components in proportion to
// their declared magnitudes. The result always sums to 1.0.
//
// Reachability can change between calls, so callers resolve per query and
// never cache the result.
func Resolve(declared rag.RetrievalWeights, graphReachable bool) rag.RetrievalWeights {
	w := clampNonNegative(declared)
	if !graphReachable {
		w.Graph = 0
	}
	total := w.Sum()
	if total == 0 {
		// Nothing declared (or everything forced off): degrade to pure
		// vector retrieval rather than returning an unusable zero triple.
		return rag.RetrievalWeights{Vector: 1}
	}
	return rag.RetrievalWeights{
		Vector:  w.Vector / total,
		Graph:   w.Graph / total,
		Lexical: w.Lexical / total,
	}
}

func clampNonNegative(w rag.RetrievalWeights) rag.RetrievalWeights {
	if w.Vector < 0 {
		w.Vector = 0
	}
	if w.Graph < 0 {
		w.Graph = 0
	}
	if w.Lexical < 0 {
		w.Lexical = 0
	}
	return w
}
