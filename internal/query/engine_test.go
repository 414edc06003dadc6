package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ralt/spksearch/internal/fetch"
	"github.com/ralt/spksearch/internal/models"
	"github.com/ralt/spksearch/internal/version"
)

const twoPackages = `{"packages":[
	{"package":"transmission","dname":"Transmission","desc":"BitTorrent client","version":"2.94-14","thumbnail":["http://icons.example.org/transmission.png"]},
	{"package":"sabnzbd","dname":"SABnzbd","desc":"Usenet downloader","version":"2.3.9-32"}
]}`

type call struct {
	method  string
	url     string
	body    string
	headers map[string]string
}

type fakeFetcher struct {
	mu       sync.Mutex
	calls    []call
	response []byte
	err      error
	icons    map[string][]byte
	deadline bool
}

func (f *fakeFetcher) record(ctx context.Context, c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); ok {
		f.deadline = true
	}
	f.calls = append(f.calls, c)
}

func (f *fakeFetcher) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	f.record(ctx, call{method: "GET", url: url, headers: headers})
	return f.response, f.err
}

func (f *fakeFetcher) Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error) {
	f.record(ctx, call{method: "POST", url: url, body: string(body), headers: headers})
	return f.response, f.err
}

func (f *fakeFetcher) DownloadBinary(ctx context.Context, url string) ([]byte, error) {
	data, ok := f.icons[url]
	if !ok {
		return nil, &fetch.Error{Method: "GET", URL: url, StatusCode: 404, Reason: "404 Not Found"}
	}
	return data, nil
}

func testSource() models.Source {
	return models.Source{
		ID:      "synocommunity",
		Name:    "SynoCommunity",
		URL:     "http://packages.synocommunity.com",
		Index:   2,
		Method:  "POST",
		Headers: map[string]string{"Accept": "application/json", "X-Source": "syno"},
	}
}

func testRequest() models.Request {
	return models.Request{
		Arch:    "armada375",
		Model:   "DS215j",
		Version: version.New(6, 1, 15152),
	}
}

func TestQueryOneSourcePostsForm(t *testing.T) {
	f := &fakeFetcher{response: []byte(twoPackages)}
	e := NewEngine(f,
		WithHeaders(map[string]string{"Accept": "*/*", "X-Default": "yes"}),
		WithUserAgent("synology_armada375_ds215j"))

	result := e.QueryOneSource(context.Background(), testSource(), testRequest())

	assert.Empty(t, result.ErrorMessage)
	assert.Equal(t, 2, result.PackagesFoundCount)
	assert.Len(t, result.Packages, 2)
	assert.Equal(t, 2, result.URLIndex)
	assert.Equal(t, "synocommunity", result.SourceID)
	assert.Equal(t, models.ChannelStable, result.Channel)
	assert.Equal(t, "http://packages.synocommunity.com", result.Packages[0].SourceURL)

	require.Len(t, f.calls, 1)
	c := f.calls[0]
	assert.Equal(t, "POST", c.method)
	assert.Equal(t, "http://packages.synocommunity.com", c.url)
	assert.True(t, f.deadline)

	form, err := url.ParseQuery(c.body)
	require.NoError(t, err)
	assert.Equal(t, "armada375", form.Get("arch"))
	assert.Equal(t, "DS215j", form.Get("model"))
	assert.Equal(t, "6", form.Get("major"))
	assert.Equal(t, "1", form.Get("minor"))
	assert.Equal(t, "15152", form.Get("build"))
	assert.Equal(t, "6.1-15152", form.Get("productversion"))
	assert.Equal(t, "stable", form.Get("package_update_channel"))
	assert.Equal(t, "enu", form.Get("language"))

	assert.Equal(t, "application/json", c.headers["Accept"], "source headers override defaults")
	assert.Equal(t, "yes", c.headers["X-Default"])
	assert.Equal(t, "syno", c.headers["X-Source"])
	assert.Equal(t, "synology_armada375_ds215j", c.headers["User-Agent"])
	assert.Equal(t, "application/x-www-form-urlencoded", c.headers["Content-Type"])
}

func TestQueryOneSourceGet(t *testing.T) {
	f := &fakeFetcher{response: []byte(twoPackages)}
	e := NewEngine(f)
	src := testSource()
	src.Method = "GET"
	src.URL = "http://syno.example.org/packages?format=json"
	req := testRequest()
	req.UserAgent = "custom-agent"

	result := e.QueryOneSource(context.Background(), src, req)
	require.Empty(t, result.ErrorMessage)

	require.Len(t, f.calls, 1)
	c := f.calls[0]
	assert.Equal(t, "GET", c.method)
	assert.True(t, strings.HasPrefix(c.url, "http://syno.example.org/packages?format=json&"))
	assert.Contains(t, c.url, "arch=armada375")
	assert.Equal(t, "custom-agent", c.headers["User-Agent"])
	assert.NotContains(t, c.headers, "Content-Type")
}

func TestQueryOneSourceBetaChannel(t *testing.T) {
	f := &fakeFetcher{response: []byte(twoPackages)}
	e := NewEngine(f)
	req := testRequest()
	req.WantBeta = true

	src := testSource()
	src.SupportsBeta = true
	result := e.QueryOneSource(context.Background(), src, req)
	assert.Equal(t, models.ChannelBeta, result.Channel)
	assert.False(t, result.BetaDegraded)

	form, _ := url.ParseQuery(f.calls[0].body)
	assert.Equal(t, "beta", form.Get("package_update_channel"))
}

func TestQueryOneSourceBetaDegraded(t *testing.T) {
	f := &fakeFetcher{response: []byte(twoPackages)}
	e := NewEngine(f)
	req := testRequest()
	req.WantBeta = true

	result := e.QueryOneSource(context.Background(), testSource(), req)
	assert.Empty(t, result.ErrorMessage)
	assert.Equal(t, models.ChannelStable, result.Channel)
	assert.True(t, result.BetaDegraded)
	assert.Equal(t, 2, result.PackagesFoundCount)

	form, _ := url.ParseQuery(f.calls[0].body)
	assert.Equal(t, "stable", form.Get("package_update_channel"))
}

func TestQueryOneSourceFetchFailure(t *testing.T) {
	f := &fakeFetcher{err: &fetch.Error{Method: "POST", URL: "http://packages.synocommunity.com", StatusCode: 500, Reason: "500 Internal Server Error"}}
	e := NewEngine(f)

	result := e.QueryOneSource(context.Background(), testSource(), testRequest())
	assert.NotEmpty(t, result.ErrorMessage)
	assert.Contains(t, result.ErrorMessage, "Transport")
	assert.NotNil(t, result.Packages)
	assert.Empty(t, result.Packages)
	assert.Equal(t, 0, result.PackagesFoundCount)
}

func TestQueryOneSourceMalformedResponse(t *testing.T) {
	f := &fakeFetcher{response: []byte(`{"packages": [{"package": "x",`)}
	e := NewEngine(f)

	result := e.QueryOneSource(context.Background(), testSource(), testRequest())
	assert.Contains(t, result.ErrorMessage, "ResponseParse")
	assert.Empty(t, result.Packages)
}

func TestQueryOneSourceEmptyResponse(t *testing.T) {
	f := &fakeFetcher{response: []byte("null")}
	e := NewEngine(f)

	result := e.QueryOneSource(context.Background(), testSource(), testRequest())
	assert.Empty(t, result.ErrorMessage)
	assert.Equal(t, 0, result.PackagesFoundCount)
}

func TestQueryOneSourceSourceTimeout(t *testing.T) {
	blocking := &blockingFetcher{}
	e := NewEngine(blocking, WithTimeout(time.Hour))
	src := testSource()
	src.Timeout = 10 * time.Millisecond

	result := e.QueryOneSource(context.Background(), src, testRequest())
	assert.NotEmpty(t, result.ErrorMessage)
	assert.True(t, errors.Is(blocking.err, context.DeadlineExceeded))
}

type blockingFetcher struct {
	fakeFetcher
	err error
}

func (b *blockingFetcher) Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error) {
	<-ctx.Done()
	b.err = ctx.Err()
	return nil, b.err
}

func TestQueryOneSourceInlinesIcons(t *testing.T) {
	f := &fakeFetcher{
		response: []byte(twoPackages),
		icons:    map[string][]byte{"http://icons.example.org/transmission.png": []byte("PNG")},
	}
	e := NewEngine(f, WithInlineIcons(true, 2))

	result := e.QueryOneSource(context.Background(), testSource(), testRequest())
	require.Len(t, result.Packages, 2)
	assert.Equal(t, []byte("PNG"), result.Packages[0].IconData)
	assert.Equal(t, "http://icons.example.org/transmission.png", result.Packages[0].IconURL)
	assert.Empty(t, result.Packages[1].IconData)
}

func TestQueryOneSourceKeyFingerprints(t *testing.T) {
	entity, err := openpgp.NewEntity("SynoCommunity", "", "contact@synocommunity.com", nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())

	payload, err := json.Marshal(map[string]interface{}{
		"keyrings": []string{buf.String(), "garbage"},
		"packages": []map[string]string{{"package": "mono", "dname": "Mono", "version": "5.8"}},
	})
	require.NoError(t, err)

	f := &fakeFetcher{response: payload}
	result := NewEngine(f).QueryOneSource(context.Background(), testSource(), testRequest())

	assert.Empty(t, result.ErrorMessage)
	assert.Equal(t, 1, result.PackagesFoundCount)
	require.Len(t, result.KeyFingerprints, 1)
	assert.Len(t, result.KeyFingerprints[0], 40)
}

type panickingIconFetcher struct {
	fakeFetcher
}

func (p *panickingIconFetcher) DownloadBinary(ctx context.Context, url string) ([]byte, error) {
	panic("icon server exploded")
}

func TestQueryOneSourceIconPanicKeepsURL(t *testing.T) {
	f := &panickingIconFetcher{fakeFetcher{response: []byte(twoPackages)}}
	e := NewEngine(f, WithInlineIcons(true, 2))

	var result models.SearchResult
	require.NotPanics(t, func() {
		result = e.QueryOneSource(context.Background(), testSource(), testRequest())
	})

	assert.Empty(t, result.ErrorMessage)
	require.Len(t, result.Packages, 2)
	assert.Equal(t, "http://icons.example.org/transmission.png", result.Packages[0].IconURL)
	assert.Empty(t, result.Packages[0].IconData)
}
