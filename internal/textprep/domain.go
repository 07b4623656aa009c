package textprep

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"hn-post-classifier/internal/models"
)

var errNoHost = errors.New("url has no host")

// ParseDomain splits the host of rawURL into subdomain, registered domain
// and public suffix. The "empty" sentinel short-circuits to a placeholder.
func ParseDomain(rawURL string) (models.DomainParts, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == models.EmptyURL {
		return models.DomainParts{Domain: models.EmptyURL}, nil
	}
	if raw == "" {
		return models.DomainParts{}, errNoHost
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return models.DomainParts{}, err
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return models.DomainParts{}, errNoHost
	}

	// ip literals and single-label hosts (localhost) have no suffix
	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return models.DomainParts{Domain: host}, nil
	}

	// private suffixes (github.io, blogspot.com) count as registered
	// domains, so walk up to the nearest ICANN suffix
	suffix, icann := publicsuffix.PublicSuffix(host)
	for !icann && strings.Contains(suffix, ".") {
		suffix, icann = publicsuffix.PublicSuffix(suffix[strings.Index(suffix, ".")+1:])
	}
	if host == suffix {
		return models.DomainParts{Suffix: suffix}, fmt.Errorf("registered domain of %q: host is a public suffix", host)
	}

	rest := strings.TrimSuffix(host, "."+suffix)
	parts := models.DomainParts{Domain: rest, Suffix: suffix}
	if i := strings.LastIndex(rest, "."); i >= 0 {
		parts.Subdomain, parts.Domain = rest[:i], rest[i+1:]
	}
	return parts, nil
}
