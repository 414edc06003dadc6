package models

import "time"

// Channel names understood by package servers
const (
	ChannelStable = "stable"
	ChannelBeta   = "beta"
)

// SearchResult is the outcome of querying one source
type SearchResult struct {
	URLIndex           int           `json:"url_index"`
	SourceID           string        `json:"source_id"`
	SourceURL          string        `json:"source_url"`
	PackagesFoundCount int           `json:"packages_found_count"`
	Packages           []Package     `json:"-"`
	ErrorMessage       string        `json:"error,omitempty"`
	Channel            string        `json:"channel"`
	BetaDegraded       bool          `json:"beta_degraded,omitempty"`
	KeyFingerprints    []string      `json:"key_fingerprints,omitempty"`
	Duration           time.Duration `json:"duration"`
}

// Failed reports whether the query ended with an error
func (r *SearchResult) Failed() bool {
	return r.ErrorMessage != ""
}
