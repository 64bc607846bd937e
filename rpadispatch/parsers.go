// Package rpadispatch implements the multi-carrier submission engine: it
// normalizes the insured-business record, validates it against the selected
// carrier set, builds each carrier's webhook payload, fans the dispatch out in
// parallel and tracks the resulting RPA task lifecycle.
package rpadispatch

import (
	"regexp"
	"strings"
)

type ParsedAddress struct {
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
}

type ParsedName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type ParsedPhone struct {
	Area   string `json:"area"`
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
}

var zipRegexp = regexp.MustCompile(`\b\d{5}(-\d{4})?\b`)

// stateAbbreviations is scanned in this fixed order; the FIRST whole-word
// match wins. A city whose name matches an earlier abbreviation (e.g. "AL"
// inside an upper-cased street name) mis-parses. Known order-dependent quirk:
// existing carrier payloads depend on this behavior, do not reorder or fix
// without coordinating a data migration.
var stateAbbreviations = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

var stateRegexps = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(stateAbbreviations))
	for _, ab := range stateAbbreviations {
		m[ab] = regexp.MustCompile(`\b` + ab + `\b`)
	}
	return m
}()

// stateStripRegexps are the case-insensitive variants used to remove the
// matched state token from the original-cased text.
var stateStripRegexps = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(stateAbbreviations))
	for _, ab := range stateAbbreviations {
		m[ab] = regexp.MustCompile(`(?i)\b` + ab + `\b`)
	}
	return m
}()

// ParseAddress decomposes a free-text mailing address into the structured
// components carrier contracts require. It never errors: null/empty input
// yields an all-empty struct. State defaulting (e.g. "GA") is the caller's
// concern, applied only where a carrier requires a non-empty state.
func ParseAddress(text string) ParsedAddress {
	if strings.TrimSpace(text) == "" {
		return ParsedAddress{}
	}

	zip := zipRegexp.FindString(text)

	upper := strings.ToUpper(text)
	state := ""
	for _, ab := range stateAbbreviations {
		if stateRegexps[ab].MatchString(upper) {
			state = ab
			break
		}
	}

	// Strip zip and state tokens, then read the city as the text after the
	// last remaining comma; fall back to the second-to-last comma segment.
	working := text
	if zip != "" {
		working = strings.Replace(working, zip, "", 1)
	}
	if state != "" {
		working = stateStripRegexps[state].ReplaceAllString(working, "")
	}

	var segments []string
	for _, seg := range strings.Split(working, ",") {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	city := ""
	addressLine1 := ""
	switch {
	case len(segments) >= 2:
		city = segments[len(segments)-1]
		addressLine1 = strings.Join(segments[:len(segments)-1], ", ")
	case len(segments) == 1:
		addressLine1 = segments[0]
	}

	return ParsedAddress{
		AddressLine1: addressLine1,
		City:         city,
		State:        state,
		ZipCode:      zip,
	}
}

// ParseName splits a free-text contact name. A single token is all first
// name; everything after the first token joins into the last name.
func ParseName(fullName string) ParsedName {
	tokens := strings.Fields(fullName)
	switch len(tokens) {
	case 0:
		return ParsedName{}
	case 1:
		return ParsedName{FirstName: tokens[0]}
	default:
		return ParsedName{
			FirstName: tokens[0],
			LastName:  strings.Join(tokens[1:], " "),
		}
	}
}

var nonDigitRegexp = regexp.MustCompile(`\D`)

// ParsePhone splits a free-text phone number into area/prefix/suffix. Valid
// only for exactly 10 digits, or 11 digits with a leading "1" (stripped);
// anything else returns all-empty parts.
func ParsePhone(phone string) ParsedPhone {
	digits := nonDigitRegexp.ReplaceAllString(phone, "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ParsedPhone{}
	}
	return ParsedPhone{
		Area:   digits[0:3],
		Prefix: digits[3:6],
		Suffix: digits[6:10],
	}
}
