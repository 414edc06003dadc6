// Package search runs a query across every configured source and merges the
// answers into one ranked package list.
package search

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ralt/spksearch/internal/config"
	"github.com/ralt/spksearch/internal/filter"
	"github.com/ralt/spksearch/internal/models"
	"github.com/ralt/spksearch/internal/ranker"
	"github.com/ralt/spksearch/internal/validator"
)

// Querier queries a single source
type Querier interface {
	QueryOneSource(ctx context.Context, src models.Source, req models.Request) models.SearchResult
}

// Aggregator fans a query out to the configured sources
type Aggregator struct {
	provider  config.Provider
	querier   Querier
	validator *validator.Validator
	filter    filter.Filter
	opts      options
	excluded  map[string]bool
}

// New creates an Aggregator over the sources of p
func New(p config.Provider, q Querier, opts ...Option) *Aggregator {
	o := buildOptions(opts)
	excluded := make(map[string]bool, len(o.excluded))
	for _, id := range o.excluded {
		excluded[strings.ToLower(id)] = true
	}
	return &Aggregator{
		provider:  p,
		querier:   q,
		validator: validator.New(p.Architectures(), p.Models()),
		filter:    filter.Filter{CaseSensitive: o.caseSensitive},
		opts:      o,
		excluded:  excluded,
	}
}

// Sources returns the sources that are queried
func (a *Aggregator) Sources() []models.Source {
	var out []models.Source
	for _, s := range a.provider.Sources() {
		if s.Supported {
			out = append(out, s)
		}
	}
	return out
}

// UnsupportedSources returns the sources that are listed but never queried
func (a *Aggregator) UnsupportedSources() []models.Source {
	var out []models.Source
	for _, s := range a.provider.Sources() {
		if !s.Supported {
			out = append(out, s)
		}
	}
	return out
}

// LookupSource returns the queried source designated by key (id, name or URL)
func (a *Aggregator) LookupSource(key string) (models.Source, bool) {
	for _, s := range a.Sources() {
		if s.Matches(key) {
			return s, true
		}
	}
	return models.Source{}, false
}

// GetPackages runs q and returns the merged packages. It never panics: any
// failure is reported through the ErrorMessage and Err of the response.
func (a *Aggregator) GetPackages(ctx context.Context, q models.Query) (resp *models.Response) {
	resp = &models.Response{
		RequestID: uuid.NewString(),
		Packages:  []models.Package{},
		Results:   []models.SearchResult{},
	}
	log := logrus.WithFields(logrus.Fields{
		"request_id": resp.RequestID,
		"arch":       q.Arch,
		"model":      q.Model,
		"version":    q.Version.String(),
	})

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Search aborted: %v\n%s", r, debug.Stack())
			a.fail(resp, models.NewSearchError(models.ErrInternal, "", fmt.Errorf("panic: %v", r)))
		}
	}()

	if err := a.validate(q); err != nil {
		log.Infof("Query rejected: %v", err)
		a.fail(resp, err)
		return resp
	}

	sources, err := a.resolveSources(q.Source)
	if err != nil {
		log.Infof("Query rejected: %v", err)
		a.fail(resp, err)
		return resp
	}

	start := time.Now()
	results, err := a.queryAll(ctx, sources, q.Request())
	if err != nil {
		log.Errorf("Search failed: %v", err)
		a.fail(resp, models.NewSearchError(models.ErrInternal, "", err))
		return resp
	}

	ranked := ranker.Rank(results)
	resp.Results = ranked
	resp.Packages = a.merge(ranked, q)

	var sourceErrs *multierror.Error
	for _, r := range ranked {
		if r.Failed() {
			sourceErrs = multierror.Append(sourceErrs, errors.New(r.ErrorMessage))
		}
	}
	resp.SourceErrors = sourceErrs.ErrorOrNil()
	if sourceErrs != nil && len(sourceErrs.Errors) == len(ranked) {
		resp.ErrorMessage = fmt.Sprintf("all %d sources failed: %v", len(ranked), sourceErrs)
	}

	log.WithFields(logrus.Fields{
		"sources":  len(ranked),
		"count":    len(resp.Packages),
		"duration": time.Since(start),
	}).Info("Search completed")
	return resp
}

func (a *Aggregator) fail(resp *models.Response, err error) {
	resp.Packages = []models.Package{}
	resp.Err = err
	resp.ErrorMessage = err.Error()
}

func (a *Aggregator) validate(q models.Query) error {
	if !a.validator.ValidateArch(q.Arch) {
		return models.NewSearchError(models.ErrValidation, "", fmt.Errorf("unsupported architecture %q", q.Arch))
	}
	if !a.validator.ValidateModel(q.Model) {
		return models.NewSearchError(models.ErrValidation, "", fmt.Errorf("unsupported model %q", q.Model))
	}
	if q.Version.IsZero() {
		return models.NewSearchError(models.ErrValidation, "", errors.New("firmware version is required"))
	}
	if q.Limit < 0 {
		return models.NewSearchError(models.ErrValidation, "", fmt.Errorf("invalid limit %d", q.Limit))
	}
	return nil
}

func (a *Aggregator) resolveSources(pin string) ([]models.Source, error) {
	if pin == "" {
		return a.Sources(), nil
	}
	src, ok := a.LookupSource(pin)
	if !ok {
		return nil, models.NewSearchError(models.ErrValidation, pin, config.ErrUnknownSource)
	}
	return []models.Source{src}, nil
}

// queryAll queries every source concurrently, each goroutine filling its own
// slot. A panic in a querier aborts the whole search.
func (a *Aggregator) queryAll(ctx context.Context, sources []models.Source, req models.Request) ([]models.SearchResult, error) {
	results := make([]models.SearchResult, len(sources))
	if len(sources) == 0 {
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(len(sources))
	for i, src := range sources {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("source %s: panic: %v", src.ID, r)
				}
			}()
			results[i] = a.querier.QueryOneSource(ctx, src, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// merge concatenates the ranked packages, drops excluded services and
// duplicates, then applies keyword and limit
func (a *Aggregator) merge(ranked []models.SearchResult, q models.Query) []models.Package {
	var tagged []taggedPackage
	for rank, r := range ranked {
		for _, pkg := range r.Packages {
			if pkg.ID != "" && a.excluded[strings.ToLower(pkg.ID)] {
				continue
			}
			tagged = append(tagged, taggedPackage{pkg: pkg, rank: rank})
		}
	}

	var pkgs []models.Package
	if a.opts.deduplicate {
		pkgs = dedupe(tagged)
	} else {
		pkgs = make([]models.Package, len(tagged))
		for i, t := range tagged {
			pkgs[i] = t.pkg
		}
	}

	if a.opts.limitOrder == config.LimitThenFilter {
		pkgs = a.applyKeyword(truncate(pkgs, q.Limit), q.Keyword)
	} else {
		pkgs = truncate(a.applyKeyword(pkgs, q.Keyword), q.Limit)
	}

	if pkgs == nil {
		return []models.Package{}
	}
	return pkgs
}

func (a *Aggregator) applyKeyword(pkgs []models.Package, keyword string) []models.Package {
	if keyword == "" {
		return pkgs
	}
	return a.filter.Apply(pkgs, keyword)
}

func truncate(pkgs []models.Package, limit int) []models.Package {
	if limit > 0 && len(pkgs) > limit {
		return pkgs[:limit]
	}
	return pkgs
}
