// Package filter narrows a package list down to a keyword.
package filter

import (
	"strings"

	"github.com/ralt/spksearch/internal/models"
)

// Filter matches keywords against package names and descriptions
type Filter struct {
	// CaseSensitive disables case folding
	CaseSensitive bool
}

// FilterResults returns the packages whose name or description contains
// keyword. Matching ignores case, unlike Filter{CaseSensitive: true}, so
// "test" matches "ThisIsTest". It returns nil when there is nothing to filter.
func FilterResults(packages []models.Package, keyword string) []models.Package {
	return Filter{}.Apply(packages, keyword)
}

// Apply returns the packages matching keyword in their original order.
// A nil or empty input gives nil; otherwise the result is never nil.
func (f Filter) Apply(packages []models.Package, keyword string) []models.Package {
	if len(packages) == 0 {
		return nil
	}

	needle := keyword
	if !f.CaseSensitive {
		needle = strings.ToLower(keyword)
	}

	matched := make([]models.Package, 0, len(packages))
	for _, pkg := range packages {
		if f.matches(pkg.Name, needle) || f.matches(pkg.Description, needle) {
			matched = append(matched, pkg)
		}
	}
	return matched
}

func (f Filter) matches(field, needle string) bool {
	if !f.CaseSensitive {
		field = strings.ToLower(field)
	}
	return strings.Contains(field, needle)
}
