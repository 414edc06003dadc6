package utils

import (
	"strings"

	"github.com/ralt/spksearch/internal/models"
)

// PackageIdentity returns the key used to detect the same package published
// twice. The package id is preferred; feeds that omit it fall back to the
// display name.
func PackageIdentity(pkg models.Package) string {
	if pkg.ID != "" {
		return "id:" + strings.ToLower(pkg.ID)
	}
	return "name:" + strings.ToLower(pkg.Name)
}
