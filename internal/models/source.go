package models

import (
	"net/http"
	"strings"
	"time"
)

// Source is a configured package repository
type Source struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	URL          string            `json:"url"`
	Index        int               `json:"index"`
	Priority     int               `json:"priority"`
	SupportsBeta bool              `json:"supports_beta"`
	Supported    bool              `json:"supported"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	Timeout      time.Duration     `json:"timeout,omitempty"`
}

// Matches reports whether key designates this source by id, name or URL
func (s *Source) Matches(key string) bool {
	if key == "" {
		return false
	}
	return s.ID == key ||
		strings.EqualFold(s.Name, key) ||
		strings.TrimRight(s.URL, "/") == strings.TrimRight(key, "/")
}

// HTTPMethod returns the request method, defaulting to POST
func (s *Source) HTTPMethod() string {
	if strings.EqualFold(s.Method, http.MethodGet) {
		return http.MethodGet
	}
	return http.MethodPost
}
