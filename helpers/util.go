package helpers

import (
	"errors"
	"net/url"
	"strings"
)

// DomainOf returns the lower-cased host of rawURL without port or leading "www."
func DomainOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// ResolveURL resolves href against the page URL it was found on
func ResolveURL(pageURL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", errors.New("empty link")
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	if !base.IsAbs() {
		return "", errors.New("page url is not absolute")
	}
	return base.ResolveReference(ref).String(), nil
}
