// Package normalizer converts the JSON documents published by package
// servers into models.Package records.
//
// Servers disagree on the document layout. The accepted layouts are
// detected structurally: an object holding a "packages" array (optionally
// with "keyrings"), a single package object, an object keyed by locale or
// package id whose values are package objects, and a plain array of package
// objects. Broken entries are skipped; they never fail the whole document.
package normalizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ralt/spksearch/internal/models"
)

// ErrMalformed is returned when a payload cannot be parsed even after
// sanitization
var ErrMalformed = errors.New("malformed response")

// Document is the normalized content of one response
type Document struct {
	Packages []models.Package
	// Keyrings holds the armored public keys published alongside the packages
	Keyrings []string
	// Skipped counts the entries dropped as malformed
	Skipped int
}

type member struct {
	key   string
	value json.RawMessage
}

// Normalize returns the packages found in raw, stamped with sourceURL.
// It never fails: unparsable input yields an empty slice.
func Normalize(raw []byte, sourceURL string) []models.Package {
	doc, err := Decode(raw, sourceURL)
	if err != nil {
		return []models.Package{}
	}
	return doc.Packages
}

// Decode parses raw into a Document. Empty and null payloads produce an empty
// document without error.
func Decode(raw []byte, sourceURL string) (*Document, error) {
	doc := &Document{Packages: []models.Package{}}

	trimmed := bytes.TrimSpace(bytes.TrimPrefix(raw, utf8BOM))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return doc, nil
	}

	clean := Sanitize(trimmed)
	if !json.Valid(clean) {
		var probe json.RawMessage
		err := json.Unmarshal(clean, &probe)
		return doc, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := doc.decodeValue(clean, sourceURL, 0); err != nil {
		return doc, err
	}
	return doc, nil
}

func (d *Document) decodeValue(data []byte, sourceURL string, depth int) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '[':
		return d.decodeArray(data, sourceURL)
	case '{':
		return d.decodeObject(data, sourceURL, depth)
	case 'n':
		return nil
	default:
		if depth == 0 {
			return fmt.Errorf("%w: unexpected top-level value %.20q", ErrMalformed, data)
		}
		d.Skipped++
		return nil
	}
}

func (d *Document) decodeArray(data []byte, sourceURL string) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	for _, item := range items {
		d.addEntry(item, sourceURL)
	}
	return nil
}

func (d *Document) decodeObject(data []byte, sourceURL string, depth int) error {
	members, err := orderedMembers(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if packages, ok := lookup(members, "packages"); ok && (startsWith(packages, '[') || startsWith(packages, '{')) {
		if keyrings, ok := lookup(members, "keyrings"); ok {
			d.Keyrings = append(d.Keyrings, decodeKeyrings(keyrings)...)
		}
		if startsWith(packages, '{') {
			return d.decodeObject(packages, sourceURL, 0)
		}
		return d.decodeArray(packages, sourceURL)
	}

	if looksLikePackage(members) {
		d.addEntry(data, sourceURL)
		return nil
	}

	// Locale or id keyed map, one level deep only
	if depth > 0 {
		d.Skipped++
		return nil
	}
	for _, m := range members {
		if err := d.decodeValue(m.value, sourceURL, depth+1); err != nil {
			d.Skipped++
		}
	}
	return nil
}

// addEntry normalizes one package object, counting it as skipped on failure
func (d *Document) addEntry(data json.RawMessage, sourceURL string) {
	pkg, ok := normalizeEntry(data, sourceURL)
	if !ok {
		d.Skipped++
		return
	}
	d.Packages = append(d.Packages, pkg)
}

func normalizeEntry(data json.RawMessage, sourceURL string) (models.Package, bool) {
	if !startsWith(data, '{') {
		return models.Package{}, false
	}

	var raw rawPackage
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Package{}, false
	}

	pkg := models.Package{
		ID:            firstNonEmpty(raw.Package, raw.ID),
		Name:          firstNonEmpty(raw.DName, raw.Name, raw.Package),
		Description:   string(raw.Desc),
		Version:       firstNonEmpty(raw.Version),
		Link:          firstNonEmpty(raw.Link, raw.URL),
		Thumbnails:    []string(raw.Thumbnail),
		Maintainer:    firstNonEmpty(raw.Maintainer),
		MaintainerURL: firstNonEmpty(raw.MaintainerURL),
		Changelog:     string(raw.Changelog),
		Beta:          bool(raw.Beta),
		Size:          int64(raw.Size),
		MD5:           strings.ToLower(firstNonEmpty(raw.MD5)),
		SourceURL:     sourceURL,
	}
	if pkg.Description == "" {
		pkg.Description = string(raw.Description)
	}
	pkg.IconURL, pkg.IconData = resolveIcon(&raw)

	if !pkg.Valid() {
		return models.Package{}, false
	}
	return pkg, true
}

// orderedMembers decodes the members of a JSON object in document order
func orderedMembers(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		members = append(members, member{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return members, nil
}

func lookup(members []member, key string) (json.RawMessage, bool) {
	for _, m := range members {
		if m.key == key {
			return m.value, true
		}
	}
	return nil, false
}

// looksLikePackage reports whether an object is a package: it carries a
// package id or display name, or a name next to a version
func looksLikePackage(members []member) bool {
	if hasScalar(members, "package") || hasScalar(members, "dname") {
		return true
	}
	return hasScalar(members, "name") && hasScalar(members, "version")
}

func hasScalar(members []member, key string) bool {
	value, ok := lookup(members, key)
	return ok && !startsWith(value, '{') && !startsWith(value, '[')
}

func decodeKeyrings(data json.RawMessage) []string {
	var list flexStrings
	if err := json.Unmarshal(data, &list); err != nil {
		return nil
	}

	keyrings := make([]string, 0, len(list))
	for _, k := range list {
		if k = strings.TrimSpace(k); k != "" {
			keyrings = append(keyrings, k)
		}
	}
	return keyrings
}

func startsWith(data []byte, b byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == b
}
