package rating

import (
	"net/url"
	"strings"
)

// Bucket is the credibility class of a source host.
type Bucket int

const (
	Unknown Bucket = iota
	Trusted
	Propaganda
	Platform
	InvalidURL
)

var bucketLabels = map[Bucket]string{
	Trusted:    "Rating: High trust",
	Propaganda: "Rating: Low trust / Propaganda",
	Platform:   "Rating: Platform (not media)",
	Unknown:    "Rating: Unknown",
	InvalidURL: "Rating: Error (invalid URL)",
}

// Label returns the display text that prefixes every rating string.
func (b Bucket) Label() string {
	if l, ok := bucketLabels[b]; ok {
		return l
	}
	return bucketLabels[Unknown]
}

func (b Bucket) String() string {
	switch b {
	case Trusted:
		return "trusted"
	case Propaganda:
		return "propaganda"
	case Platform:
		return "platform"
	case InvalidURL:
		return "invalid_url"
	default:
		return "unknown"
	}
}

// Classifier maps a URL host onto a Bucket using static host sets.
type Classifier struct {
	trusted  map[string]struct{}
	denied   map[string]struct{}
	platform map[string]struct{}
}

// NewClassifier builds a classifier from host lists. Hosts are normalized the same way URLs are.
func NewClassifier(trusted, denied, platform []string) *Classifier {
	return &Classifier{
		trusted:  hostSet(trusted),
		denied:   hostSet(denied),
		platform: hostSet(platform),
	}
}

// Classify never fails: malformed input yields InvalidURL.
func (c *Classifier) Classify(rawURL string) Bucket {
	host, ok := Host(rawURL)
	if !ok {
		return InvalidURL
	}

	if _, ok := c.trusted[host]; ok {
		return Trusted
	}
	if _, ok := c.denied[host]; ok {
		return Propaganda
	}
	if _, ok := c.platform[host]; ok {
		return Platform
	}
	return Unknown
}

// Host extracts the lowercase host of rawURL without port and leading "www.".
func Host(rawURL string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	host := normalizeHost(parsed.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}

func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimSuffix(h, ".")
	return strings.TrimPrefix(h, "www.")
}

func hostSet(hosts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if n := normalizeHost(h); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
