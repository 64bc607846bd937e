package rpadispatch

import "testing"

func TestParseAddress_FullAddress(t *testing.T) {
	got := ParseAddress("2100 Riverside Pkwy, Lawrenceville, GA 30043")
	if got.ZipCode != "30043" {
		t.Fatalf("zip expected 30043, got %q", got.ZipCode)
	}
	if got.State != "GA" {
		t.Fatalf("state expected GA, got %q", got.State)
	}
	if got.City != "Lawrenceville" {
		t.Fatalf("city expected Lawrenceville, got %q", got.City)
	}
	if got.AddressLine1 != "2100 Riverside Pkwy" {
		t.Fatalf("addressLine1 expected 2100 Riverside Pkwy, got %q", got.AddressLine1)
	}
}

func TestParseAddress_ZipPlusFour(t *testing.T) {
	got := ParseAddress("11 Main St, Macon, GA 31201-4427")
	if got.ZipCode != "31201-4427" {
		t.Fatalf("zip expected 31201-4427, got %q", got.ZipCode)
	}
}

func TestParseAddress_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   "} {
		got := ParseAddress(in)
		if got != (ParsedAddress{}) {
			t.Fatalf("ParseAddress(%q) expected empty struct, got %+v", in, got)
		}
	}
}

func TestParseAddress_NoZipNoState(t *testing.T) {
	got := ParseAddress("Sunoco Food Mart")
	if got.ZipCode != "" || got.State != "" || got.City != "" {
		t.Fatalf("expected only addressLine1 set, got %+v", got)
	}
	if got.AddressLine1 != "Sunoco Food Mart" {
		t.Fatalf("addressLine1 expected whole input, got %q", got.AddressLine1)
	}
}

func TestParseAddress_FirstMatchingStateWins(t *testing.T) {
	// "LA" from the street name matches before the scan reaches "TX", so
	// the scan settles on LA. Order-dependent quirk.
	got := ParseAddress("12 La Salle St, Houston, TX 77002")
	if got.State != "LA" {
		t.Fatalf("state expected first-match LA, got %q", got.State)
	}
}

func TestParseAddress_LowercaseStateStripped(t *testing.T) {
	// The state match runs on the upper-cased text, but the strip must
	// remove the token from the original casing too.
	got := ParseAddress("500 Main St, Macon, ga 31201")
	if got.State != "GA" {
		t.Fatalf("state expected GA, got %q", got.State)
	}
	if got.City != "Macon" {
		t.Fatalf("city expected Macon, got %q", got.City)
	}
	if got.AddressLine1 != "500 Main St" {
		t.Fatalf("addressLine1 expected street only, got %q", got.AddressLine1)
	}
}

func TestParseName(t *testing.T) {
	cases := []struct {
		in    string
		first string
		last  string
	}{
		{"", "", ""},
		{"   ", "", ""},
		{"Priya", "Priya", ""},
		{"Priya Patel", "Priya", "Patel"},
		{"Mary Anne van der Berg", "Mary", "Anne van der Berg"},
	}
	for _, tc := range cases {
		got := ParseName(tc.in)
		if got.FirstName != tc.first || got.LastName != tc.last {
			t.Fatalf("ParseName(%q) expected (%q, %q), got (%q, %q)", tc.in, tc.first, tc.last, got.FirstName, got.LastName)
		}
	}
}

func TestParsePhone(t *testing.T) {
	cases := []struct {
		in     string
		area   string
		prefix string
		suffix string
	}{
		{"(404) 555-0117", "404", "555", "0117"},
		{"404.555.0117", "404", "555", "0117"},
		{"14045550117", "404", "555", "0117"},
		{"+1 404 555 0117", "404", "555", "0117"},
		{"4045550117", "404", "555", "0117"},
		{"555-0117", "", "", ""},
		{"24045550117", "", "", ""},
		{"", "", "", ""},
		{"not a phone", "", "", ""},
	}
	for _, tc := range cases {
		got := ParsePhone(tc.in)
		if got.Area != tc.area || got.Prefix != tc.prefix || got.Suffix != tc.suffix {
			t.Fatalf("ParsePhone(%q) expected (%s %s %s), got (%s %s %s)",
				tc.in, tc.area, tc.prefix, tc.suffix, got.Area, got.Prefix, got.Suffix)
		}
	}
}
