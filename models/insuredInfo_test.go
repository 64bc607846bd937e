package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLegacyShape_ZeroAmountsOmitted(t *testing.T) {
	info := &InsuredInfo{
		AgencyId:          "agency-1",
		CorporationName:   "Peach State Fuel LLC",
		InsideSalesYearly: decimal.NewFromInt(650000),
	}

	shape, err := info.LegacyShape()
	if err != nil {
		t.Fatal(err)
	}

	if got, ok := shape["inside_sales_yearly"].(string); !ok || got != "650000" {
		t.Fatalf("inside_sales_yearly expected %q, got %v", "650000", shape["inside_sales_yearly"])
	}

	// Never-entered amounts must be absent, not "0": the normalizer turns a
	// missing key into its empty default, matching the camelCase path.
	for _, key := range []string{"liquor_sales_yearly", "gasoline_sales_yearly", "building", "bpp", "bi", "canopy", "pumps"} {
		if v, ok := shape[key]; ok {
			t.Fatalf("zero amount %q must be omitted, got %v", key, v)
		}
	}

	if got, ok := shape["corporation_name"].(string); !ok || got != "Peach State Fuel LLC" {
		t.Fatalf("corporation_name expected to survive, got %v", shape["corporation_name"])
	}
}
