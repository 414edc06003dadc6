// Package ranker orders per-source search results before their packages are
// merged.
package ranker

import (
	"cmp"
	"slices"

	"github.com/ralt/spksearch/internal/models"
)

// CompareSearchResult orders two results: sources that returned packages
// come first, by configured index. A result compares equal only to itself;
// two empty results always rank a before b.
func CompareSearchResult(a, b *models.SearchResult) int {
	if a == b {
		return 0
	}

	aEmpty := a.PackagesFoundCount == 0
	bEmpty := b.PackagesFoundCount == 0
	switch {
	case aEmpty && bEmpty:
		return -1
	case aEmpty:
		return 1
	case bEmpty:
		return -1
	}

	return cmp.Compare(a.URLIndex, b.URLIndex)
}

// Rank returns results sorted for merging. Results with packages are ordered
// by URLIndex and empty results follow in their input order.
func Rank(results []models.SearchResult) []models.SearchResult {
	ranked := slices.Clone(results)
	slices.SortStableFunc(ranked, compareForSort)
	return ranked
}

// compareForSort is CompareSearchResult made symmetric for empty results so
// the sort keeps their order
func compareForSort(a, b models.SearchResult) int {
	if a.PackagesFoundCount == 0 && b.PackagesFoundCount == 0 {
		return 0
	}
	return CompareSearchResult(&a, &b)
}
