// Package query sends one search request to one package server and turns the
// answer into a SearchResult.
package query

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ralt/spksearch/internal/fetch"
	"github.com/ralt/spksearch/internal/keyring"
	"github.com/ralt/spksearch/internal/models"
	"github.com/ralt/spksearch/internal/normalizer"
)

// Engine queries package servers through a Fetcher
type Engine struct {
	fetcher fetch.Fetcher
	opts    options
}

// NewEngine creates an Engine
func NewEngine(f fetch.Fetcher, opts ...Option) *Engine {
	return &Engine{fetcher: f, opts: buildOptions(opts)}
}

// QueryOneSource queries src. Failures never escape: they are reported in
// the ErrorMessage of the returned result, which then holds no packages.
func (e *Engine) QueryOneSource(ctx context.Context, src models.Source, req models.Request) models.SearchResult {
	start := time.Now()
	result := models.SearchResult{
		URLIndex:  src.Index,
		SourceID:  src.ID,
		SourceURL: src.URL,
		Packages:  []models.Package{},
		Channel:   models.ChannelStable,
	}

	if req.WantBeta {
		if src.SupportsBeta {
			result.Channel = models.ChannelBeta
		} else {
			result.BetaDegraded = true
		}
	}

	log := logrus.WithFields(logrus.Fields{
		"source":  src.ID,
		"url":     src.URL,
		"channel": result.Channel,
	})
	if result.BetaDegraded {
		log.Debug("Source has no beta channel, querying stable")
	}

	timeout := src.Timeout
	if timeout <= 0 {
		timeout = e.opts.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := e.fetch(ctx, src, req, result.Channel)
	if err != nil {
		serr := models.NewSearchError(models.ErrTransport, src.ID, err)
		log.Warnf("Query failed: %v", err)
		result.ErrorMessage = serr.Error()
		result.Duration = time.Since(start)
		return result
	}

	doc, err := normalizer.Decode(body, src.URL)
	if err != nil {
		serr := models.NewSearchError(models.ErrResponseParse, src.ID, err)
		log.Warnf("Unparsable response: %v", err)
		result.ErrorMessage = serr.Error()
		result.Duration = time.Since(start)
		return result
	}

	if len(doc.Keyrings) > 0 {
		keys, err := keyring.Inspect(doc.Keyrings)
		if err != nil {
			log.Warnf("Some keyrings could not be read: %v", err)
		}
		result.KeyFingerprints = keyring.Fingerprints(keys)
	}

	if e.opts.inlineIcons {
		e.inlineIcons(ctx, doc.Packages)
	}

	result.Packages = doc.Packages
	result.PackagesFoundCount = len(doc.Packages)
	result.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"count":    result.PackagesFoundCount,
		"skipped":  doc.Skipped,
		"duration": result.Duration,
	}).Debug("Source answered")
	return result
}

func (e *Engine) fetch(ctx context.Context, src models.Source, req models.Request, channel string) ([]byte, error) {
	values := e.formValues(req, channel)
	headers := e.headers(src, req)

	if src.HTTPMethod() == http.MethodGet {
		return e.fetcher.Get(ctx, withQuery(src.URL, values), headers)
	}
	headers["Content-Type"] = "application/x-www-form-urlencoded"
	return e.fetcher.Post(ctx, src.URL, []byte(values.Encode()), headers)
}

// formValues builds the parameters a DSM package center sends
func (e *Engine) formValues(req models.Request, channel string) url.Values {
	v := req.Version
	values := url.Values{}
	values.Set("language", e.opts.language)
	values.Set("timezone", e.opts.timezone)
	values.Set("unique", e.opts.unique)
	values.Set("arch", req.Arch)
	values.Set("model", req.Model)
	values.Set("major", strconv.Itoa(v.Major))
	values.Set("minor", strconv.Itoa(v.Minor))
	values.Set("build", strconv.Itoa(v.Build))
	values.Set("productversion", v.ProductVersion())
	values.Set("package_update_channel", channel)
	return values
}

// headers merges defaults, source headers and the user agent, in that order
func (e *Engine) headers(src models.Source, req models.Request) map[string]string {
	headers := make(map[string]string, len(e.opts.headers)+len(src.Headers)+2)
	for k, v := range e.opts.headers {
		headers[k] = v
	}
	for k, v := range src.Headers {
		headers[k] = v
	}
	ua := req.UserAgent
	if ua == "" {
		ua = e.opts.userAgent
	}
	headers["User-Agent"] = ua
	return headers
}

func withQuery(rawURL string, values url.Values) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + values.Encode()
}

// inlineIcons downloads remote icons. A failed or panicking download keeps
// the URL.
func (e *Engine) inlineIcons(ctx context.Context, pkgs []models.Package) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.iconWorkers)

	for i := range pkgs {
		pkg := &pkgs[i]
		if pkg.IconURL == "" || len(pkg.IconData) > 0 {
			continue
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("url", pkg.IconURL).Warnf("Icon download panicked: %v", r)
				}
			}()
			data, err := e.fetcher.DownloadBinary(ctx, pkg.IconURL)
			if err != nil {
				logrus.WithField("url", pkg.IconURL).Debugf("Icon download failed: %v", err)
				return nil
			}
			if len(data) > 0 {
				pkg.IconData = data
			}
			return nil
		})
	}
	g.Wait()
}
