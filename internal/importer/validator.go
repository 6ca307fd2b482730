package importer

import (
	"net/url"
	"strings"
)

// ValidateURL parses the raw string provided and asserts that its
// hostname equals, or is a subdomain of, one of the allowed domains.
// This function has no side effects.
func ValidateURL(raw string, allowedDomains []string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return nil, ErrInvalidURL
	}

	hostname := strings.ToLower(parsed.Hostname())
	for _, domain := range allowedDomains {
		domain = strings.ToLower(domain)
		if hostname == domain || strings.HasSuffix(hostname, "."+domain) {
			return parsed, nil
		}
	}

	return nil, ErrDomainNotAllowed
}
