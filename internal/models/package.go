package models

// Package represents one discoverable package as published by a source
type Package struct {
	// Core metadata
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Link        string `json:"link,omitempty"`

	// Icon is either a remote URL or inline bytes decoded from the feed
	IconURL    string   `json:"icon_url,omitempty"`
	IconData   []byte   `json:"icon_data,omitempty"`
	Thumbnails []string `json:"thumbnails,omitempty"`

	// Feed specific metadata
	Maintainer    string `json:"maintainer,omitempty"`
	MaintainerURL string `json:"maintainer_url,omitempty"`
	Changelog     string `json:"changelog,omitempty"`
	Beta          bool   `json:"beta,omitempty"`
	Size          int64  `json:"size,omitempty"`
	MD5           string `json:"md5,omitempty"`

	// SourceURL is the URL of the source the package came from
	SourceURL string `json:"source_url"`
}

// Valid reports whether the package satisfies the normalization invariant
func (p *Package) Valid() bool {
	return p.Name != "" && p.Version != ""
}
