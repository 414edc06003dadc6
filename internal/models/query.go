package models

import "github.com/ralt/spksearch/internal/version"

// Request carries the device parameters sent to a single source
type Request struct {
	Arch      string
	Model     string
	Version   version.Version
	WantBeta  bool
	UserAgent string
}

// Query is a search across one or all configured sources
type Query struct {
	// Source pins the search to one source (id, name or URL); empty means all
	Source    string
	Arch      string
	Model     string
	Version   version.Version
	Beta      bool
	Limit     int
	Keyword   string
	UserAgent string
}

// Request returns the per-source request for this query
func (q *Query) Request() Request {
	return Request{
		Arch:      q.Arch,
		Model:     q.Model,
		Version:   q.Version,
		WantBeta:  q.Beta,
		UserAgent: q.UserAgent,
	}
}

// Response is the aggregated outcome of a Query
type Response struct {
	RequestID    string         `json:"request_id"`
	Packages     []Package      `json:"packages"`
	Results      []SearchResult `json:"results"`
	ErrorMessage string         `json:"error,omitempty"`

	// Err is set when the query was rejected or the pipeline failed
	Err error `json:"-"`
	// SourceErrors aggregates the per-source failures
	SourceErrors error `json:"-"`
}

// Rejected reports whether the query failed validation
func (r *Response) Rejected() bool {
	return IsType(r.Err, ErrValidation)
}
