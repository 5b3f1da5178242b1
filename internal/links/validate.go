// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package links

import (
	"net/url"
	"strings"
)

// DefaultReferenceURL is substituted whenever a candidate link fails
// validation.
const DefaultReferenceURL = "https://www.allrecipes.com"

// AllowedDomains is the fixed allow-list of reference sites links may
// point at. Model output pointing anywhere else is rejected.
var AllowedDomains = []string{
	"www.allrecipes.com",
	"www.foodnetwork.com",
	"www.seriouseats.com",
	"www.bonappetit.com",
	"www.bbcgoodfood.com",
	"www.simplyrecipes.com",
	"www.epicurious.com",
	"www.thekitchn.com",
	"sallysbakingaddiction.com",
	"minimalistbaker.com",
}

// NormalizeURL cleans a candidate URL string and validates it. Wrapping
// quotes, trailing punctuation and unmatched closing parentheses (artifacts of links
// extracted from prose) are stripped first. A candidate is accepted only if
// it parses as an absolute http/https URL; anything else resolves to the
// fixed default reference URL.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, `"'(<[`)

	// Strip trailing punctuation that prose tends to glue onto links.
	for len(s) > 0 {
		last := s[len(s)-1]
		switch last {
		case '.', ',', ';', ':', '!', '?', '\'', '"', '/':
			s = s[:len(s)-1]
			continue
		case ')':
			// Keep a closing parenthesis only if it has a matching opener
			// inside the URL (e.g. Wikipedia-style paths).
			if strings.Count(s, "(") < strings.Count(s, ")") {
				s = s[:len(s)-1]
				continue
			}
		}
		break
	}

	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return DefaultReferenceURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return DefaultReferenceURL
	}
	if u.Host == "" {
		return DefaultReferenceURL
	}
	return u.String()
}

// IsAllowedDomain reports whether the URL's host is on the reference
// allow-list.
func IsAllowedDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, d := range AllowedDomains {
		if host == d || host == "www."+d || "www."+host == d {
			return true
		}
	}
	return false
}
