package rpadispatch

import (
	"encoding/json"
	"strconv"
)

// InsuredRecord is the canonical normalized shape of the insured business.
// It is the ONLY shape used past the normalization boundary: builders and the
// validator never see the historical camelCase/snake_case variants.
//
// All fields carry through as strings because the source shapes are loosely
// typed form data; numeric interpretation happens at validation/build time.
type InsuredRecord struct {
	CorporationName       string           `json:"corporationName"`
	Dba                   string           `json:"dba"`
	Address               string           `json:"address"`
	ContactName           string           `json:"contactName"`
	ContactNumber         string           `json:"contactNumber"`
	ContactEmail          string           `json:"contactEmail"`
	OperationDescription  string           `json:"operationDescription"`
	OwnershipType         string           `json:"ownershipType"`
	ApplicantIs           string           `json:"applicantIs"`
	Fein                  string           `json:"fein"`
	YearBuilt             string           `json:"yearBuilt"`
	TotalSqFootage        string           `json:"totalSqFootage"`
	YearsExpInBusiness    string           `json:"yearsExpInBusiness"`
	YearsAtLocation       string           `json:"yearsAtLocation"`
	NoOfMPOs              string           `json:"noOfMPOs"`
	ProposedEffectiveDate string           `json:"proposedEffectiveDate"`
	GeneralLiability      GeneralLiability `json:"generalLiability"`
	PropertyCoverage      PropertyCoverage `json:"propertyCoverage"`
}

// GeneralLiability sales figures. Inside/liquor sales are yearly dollar
// amounts; gasoline is yearly GALLONS, a volume, never summed with dollars.
type GeneralLiability struct {
	InsideSalesYearly   string `json:"insideSalesYearly"`
	LiquorSalesYearly   string `json:"liquorSalesYearly"`
	GasolineSalesYearly string `json:"gasolineSalesYearly"`
}

type PropertyCoverage struct {
	Building string `json:"building"`
	Bpp      string `json:"bpp"`
	Bi       string `json:"bi"`
	Canopy   string `json:"canopy"`
	Pumps    string `json:"pumps"`
}

// NormalizeInsuredInfo reconciles the two historical shapes of the insured
// record (newer nested camelCase snapshot vs legacy flat snake_case columns)
// into the canonical record. For every field the camelCase key wins, the
// snake_case key is the fallback, and a type-appropriate empty value is the
// default. Never errors; always returns a fully-shaped record.
func NormalizeInsuredInfo(raw map[string]interface{}, fallbackBusinessName string) InsuredRecord {
	if raw == nil {
		raw = map[string]interface{}{}
	}

	corporationName := pickString(raw, "corporationName", "corporation_name")
	if corporationName == "" {
		corporationName = fallbackBusinessName
	}

	gl := subObject(raw, "generalLiability", "general_liability")
	pc := subObject(raw, "propertyCoverage", "property_coverage")

	return InsuredRecord{
		CorporationName:       corporationName,
		Dba:                   pickString(raw, "dba", "dba"),
		Address:               pickString(raw, "address", "address"),
		ContactName:           pickString(raw, "contactName", "contact_name"),
		ContactNumber:         pickString(raw, "contactNumber", "contact_number"),
		ContactEmail:          pickString(raw, "contactEmail", "contact_email"),
		OperationDescription:  pickString(raw, "operationDescription", "operation_description"),
		OwnershipType:         pickString(raw, "ownershipType", "ownership_type"),
		ApplicantIs:           pickString(raw, "applicantIs", "applicant_is"),
		Fein:                  pickString(raw, "fein", "fein"),
		YearBuilt:             pickString(raw, "yearBuilt", "year_built"),
		TotalSqFootage:        pickString(raw, "totalSqFootage", "total_sq_footage"),
		YearsExpInBusiness:    pickString(raw, "yearsExpInBusiness", "years_exp_in_business"),
		YearsAtLocation:       pickString(raw, "yearsAtLocation", "years_at_location"),
		NoOfMPOs:              pickString(raw, "noOfMPOs", "no_of_mpos"),
		ProposedEffectiveDate: pickString(raw, "proposedEffectiveDate", "proposed_effective_date"),
		GeneralLiability: GeneralLiability{
			// Legacy flat records keep sales figures at the top level.
			InsideSalesYearly:   pickNested(gl, raw, "insideSalesYearly", "inside_sales_yearly"),
			LiquorSalesYearly:   pickNested(gl, raw, "liquorSalesYearly", "liquor_sales_yearly"),
			GasolineSalesYearly: pickNested(gl, raw, "gasolineSalesYearly", "gasoline_sales_yearly"),
		},
		PropertyCoverage: PropertyCoverage{
			Building: pickNested(pc, raw, "building", "building"),
			Bpp:      pickNested(pc, raw, "bpp", "bpp"),
			Bi:       pickNested(pc, raw, "bi", "bi"),
			Canopy:   pickNested(pc, raw, "canopy", "canopy"),
			Pumps:    pickNested(pc, raw, "pumps", "pumps"),
		},
	}
}

func pickString(raw map[string]interface{}, camelKey string, snakeKey string) string {
	if v, ok := raw[camelKey]; ok {
		if s := stringify(v); s != "" {
			return s
		}
	}
	if v, ok := raw[snakeKey]; ok {
		return stringify(v)
	}
	return ""
}

// pickNested reads from the sub-object first (camel then snake key), then
// from the flat top-level record.
func pickNested(sub map[string]interface{}, raw map[string]interface{}, camelKey string, snakeKey string) string {
	if sub != nil {
		if s := pickString(sub, camelKey, snakeKey); s != "" {
			return s
		}
	}
	return pickString(raw, camelKey, snakeKey)
}

func subObject(raw map[string]interface{}, camelKey string, snakeKey string) map[string]interface{} {
	for _, key := range []string{camelKey, snakeKey} {
		if v, ok := raw[key]; ok {
			if m, ok := v.(map[string]interface{}); ok {
				return m
			}
		}
	}
	return nil
}

// stringify coerces the loosely-typed source values (form strings, JSON
// numbers, decoded float64s) to the canonical string form.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
