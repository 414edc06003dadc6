package search

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/ralt/spksearch/internal/models"
	"github.com/ralt/spksearch/internal/utils"
)

// taggedPackage remembers the ranked position of the source a package came
// from
type taggedPackage struct {
	pkg  models.Package
	rank int
}

// dedupe keeps one package per identity. A package from a higher ranked
// source wins; within one source the higher version wins. The position of the
// first occurrence is kept.
func dedupe(tagged []taggedPackage) []models.Package {
	index := make(map[string]int, len(tagged))
	kept := make([]taggedPackage, 0, len(tagged))

	for _, t := range tagged {
		id := utils.PackageIdentity(t.pkg)
		i, seen := index[id]
		if !seen {
			index[id] = len(kept)
			kept = append(kept, t)
			continue
		}
		if kept[i].rank == t.rank && compareVersions(t.pkg.Version, kept[i].pkg.Version) > 0 {
			kept[i] = t
		}
	}

	out := make([]models.Package, len(kept))
	for i, t := range kept {
		out[i] = t.pkg
	}
	return out
}

// compareVersions compares DSM package versions such as 2.94-14: the part
// before the last hyphen as semver, then the build number. Versions semver
// cannot read are compared as strings.
func compareVersions(a, b string) int {
	aBase, aBuild := splitBuild(a)
	bBase, bBuild := splitBuild(b)

	av, aErr := semver.NewVersion(aBase)
	bv, bErr := semver.NewVersion(bBase)
	if aErr != nil || bErr != nil {
		return strings.Compare(a, b)
	}

	if c := av.Compare(bv); c != 0 {
		return c
	}
	switch {
	case aBuild < bBuild:
		return -1
	case aBuild > bBuild:
		return 1
	}
	return 0
}

func splitBuild(v string) (string, int) {
	i := strings.LastIndex(v, "-")
	if i < 0 {
		return v, 0
	}
	build, err := strconv.Atoi(v[i+1:])
	if err != nil {
		return v, 0
	}
	return v[:i], build
}
