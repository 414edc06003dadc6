package normalizer

import (
	"encoding/base64"
	"strings"
)

// isRemoteURL reports whether s points to an http(s) resource
func isRemoteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "//")
}

// decodeInlineIcon decodes a base64 icon, optionally wrapped in a data URI
func decodeInlineIcon(s string) ([]byte, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		_, payload, found := strings.Cut(s, ",")
		if !found {
			return nil, false
		}
		s = payload
	}

	// Some feeds wrap long base64 lines
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, false
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(s); err == nil && len(data) > 0 {
			return data, true
		}
	}
	return nil, false
}

// resolveIcon fills the icon fields of a package from the raw entry
func resolveIcon(raw *rawPackage) (iconURL string, iconData []byte) {
	if icon := strings.TrimSpace(string(raw.Icon)); icon != "" {
		if isRemoteURL(icon) {
			return icon, nil
		}
		if data, ok := decodeInlineIcon(icon); ok {
			return "", data
		}
	}

	for _, thumb := range raw.Thumbnail {
		if thumb = strings.TrimSpace(thumb); thumb != "" {
			return thumb, nil
		}
	}

	return strings.TrimSpace(string(raw.ThumbnailURL)), nil
}
