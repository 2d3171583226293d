package service

import (
	"fmt"
	"net/url"
)

// Links derives the scan-link URLs a frequent computer is registered with.
type Links struct {
	base *url.URL
}

func NewLinks(baseURL string) (*Links, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	return &Links{base: u}, nil
}

func (l *Links) FrequentCheckin(id string) string {
	return l.base.JoinPath("computers", "frequent", "checkin", id).String()
}

func (l *Links) Checkout(id string) string {
	return l.base.JoinPath("devices", "checkout", id).String()
}
