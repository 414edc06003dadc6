package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/ini.v1"
)

const headerKeyPrefix = "header."

var sourceKeys = map[string]bool{
	"id":            true,
	"name":          true,
	"url":           true,
	"priority":      true,
	"supports_beta": true,
	"supported":     true,
	"method":        true,
	"timeout":       true,
}

// ReadSourcesDir loads every *.source file in dir. Each section is a source,
// the section name being its id unless an id key is set. Request headers are
// written as header.<Name> keys.
func ReadSourcesDir(dir string) ([]SourceConfig, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.source"))
	if err != nil {
		return nil, err
	}

	var result *multierror.Error
	sources := make([]SourceConfig, 0)
	for _, file := range files {
		cfg, err := ini.Load(file)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", file, err))
			continue
		}

		for _, section := range cfg.Sections() {
			if section.Name() == ini.DefaultSection {
				continue
			}
			sc, err := readSection(section)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("%s [%s]: %w", file, section.Name(), err))
				continue
			}
			sources = append(sources, sc)
		}
	}
	return sources, result.ErrorOrNil()
}

func readSection(section *ini.Section) (SourceConfig, error) {
	for _, key := range section.Keys() {
		name := key.Name()
		if !sourceKeys[name] && !strings.HasPrefix(name, headerKeyPrefix) {
			return SourceConfig{}, fmt.Errorf("unknown key %q", name)
		}
	}

	sc := SourceConfig{
		ID:           section.Key("id").MustString(section.Name()),
		Name:         section.Key("name").String(),
		URL:          section.Key("url").String(),
		Priority:     section.Key("priority").MustInt(0),
		SupportsBeta: section.Key("supports_beta").MustBool(false),
		Method:       section.Key("method").String(),
	}

	if section.HasKey("supported") {
		supported, err := section.Key("supported").Bool()
		if err != nil {
			return SourceConfig{}, fmt.Errorf("supported: %w", err)
		}
		sc.Supported = &supported
	}
	if section.HasKey("timeout") {
		timeout, err := section.Key("timeout").Duration()
		if err != nil {
			return SourceConfig{}, fmt.Errorf("timeout: %w", err)
		}
		sc.Timeout = timeout
	}

	for _, key := range section.Keys() {
		if !strings.HasPrefix(key.Name(), headerKeyPrefix) {
			continue
		}
		if sc.Headers == nil {
			sc.Headers = make(map[string]string)
		}
		sc.Headers[strings.TrimPrefix(key.Name(), headerKeyPrefix)] = key.String()
	}
	return sc, nil
}
