package rpadispatch

import (
	"fmt"
	"time"
)

// CarrierType identifies one external automation bot plus its payload shape.
type CarrierType string

const (
	CarrierMeridian CarrierType = "meridian"
	CarrierLakeland CarrierType = "lakeland"
	CarrierColumbia CarrierType = "columbia"
)

// AllCarriers is the canonical dispatch order (also the validator's rule
// evaluation order).
var AllCarriers = []CarrierType{CarrierMeridian, CarrierLakeland, CarrierColumbia}

func ParseCarrierType(s string) (CarrierType, error) {
	c := CarrierType(s)
	switch c {
	case CarrierMeridian, CarrierLakeland, CarrierColumbia:
		return c, nil
	}
	return "", fmt.Errorf("unknown carrier %q", s)
}

// NewTaskId synthesizes the local task identifier. The remote bot may replace
// it with its own id in the webhook response.
func NewTaskId(carrier CarrierType, submissionId string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d", carrier, submissionId, now.UnixMilli())
}

// CarrierBuilder turns the canonical insured record into one carrier's exact
// wire payload. Builders are total functions: they never validate and are
// safe to call on any normalized record (validation is ValidateForDispatch's
// job). Adding a carrier means adding one implementation, not editing a
// shared branch tree.
type CarrierBuilder interface {
	Carrier() CarrierType
	BuildPayload(rec InsuredRecord, submissionId string, now time.Time) map[string]interface{}
}

var carrierBuilders = map[CarrierType]CarrierBuilder{
	CarrierMeridian: meridianBuilder{},
	CarrierLakeland: lakelandBuilder{},
	CarrierColumbia: columbiaBuilder{},
}

func BuilderFor(carrier CarrierType) (CarrierBuilder, bool) {
	b, ok := carrierBuilders[carrier]
	return b, ok
}

// The meridian portal has no agency login; the bot re-keys every application
// under this producer of record.
const meridianProducerName = "Coverlane Insurance Services"

type meridianBuilder struct{}

func (meridianBuilder) Carrier() CarrierType { return CarrierMeridian }

// Meridian's application is individual-contact-oriented: it wants a split
// contact name, a formatted FEIN and a fully structured address.
func (meridianBuilder) BuildPayload(rec InsuredRecord, submissionId string, now time.Time) map[string]interface{} {
	name := ParseName(rec.ContactName)
	if name.FirstName == "" {
		name.FirstName = "N/A"
	}
	if name.LastName == "" {
		name.LastName = "N/A"
	}

	addr := ParseAddress(rec.Address)
	state := addr.State
	if state == "" {
		// Meridian rejects an empty state field outright.
		state = "GA"
	}

	phone := ParsePhone(rec.ContactNumber)

	return map[string]interface{}{
		"action":                  "start_automation",
		"task_id":                 NewTaskId(CarrierMeridian, submissionId, now),
		"corporation_name":        rec.CorporationName,
		"dba":                     rec.Dba,
		"first_name":              name.FirstName,
		"last_name":               name.LastName,
		"fein":                    FormatFein(rec.Fein),
		"address_line_1":          addr.AddressLine1,
		"city":                    addr.City,
		"state":                   state,
		"zip_code":                addr.ZipCode,
		"phone_area":              phone.Area,
		"phone_prefix":            phone.Prefix,
		"phone_suffix":            phone.Suffix,
		"email":                   rec.ContactEmail,
		"producer_name":           meridianProducerName,
		"year_built":              rec.YearBuilt,
		"total_sq_footage":        rec.TotalSqFootage,
		"gasoline_gallons_yearly": rec.GeneralLiability.GasolineSalesYearly,
		"inside_sales_yearly":     rec.GeneralLiability.InsideSalesYearly,
		"business_income":         rec.PropertyCoverage.Bi,
		"bpp":                     rec.PropertyCoverage.Bpp,
		"building":                rec.PropertyCoverage.Building,
	}
}

type lakelandBuilder struct{}

func (lakelandBuilder) Carrier() CarrierType { return CarrierLakeland }

// Lakeland's contract is deliberately minimal. The bot hardcodes program,
// producer code, and coverage selections on its side; this builder is only
// responsible for the insured identity, sales, entity and contact fields.
// Do not add the hardcoded fields here without changing the bot first.
func (lakelandBuilder) BuildPayload(rec InsuredRecord, submissionId string, now time.Time) map[string]interface{} {
	addr := ParseAddress(rec.Address)

	// Combined sales is inside sales only: gasoline figures are gallons,
	// a volume, and must never be added to a dollar amount.
	combinedSales := rec.GeneralLiability.InsideSalesYearly

	yearsInBusiness := rec.YearsExpInBusiness
	if yearsInBusiness == "" {
		yearsInBusiness = rec.YearsAtLocation
	}

	return map[string]interface{}{
		"action":                "start_automation",
		"task_id":               NewTaskId(CarrierLakeland, submissionId, now),
		"business_name":         rec.CorporationName,
		"combined_sales":        combinedSales,
		"legal_entity":          MapLegalEntity(rec.OwnershipType, rec.CorporationName),
		"applicant_is":          MapColumbiaApplicantIs(rec.ApplicantIs, rec.OwnershipType),
		"contact_name":          rec.ContactName,
		"contact_number":        rec.ContactNumber,
		"operation_description": rec.OperationDescription,
		"years_in_business":     yearsInBusiness,
		"city":                  addr.City,
		"state":                 addr.State,
		"zip":                   addr.ZipCode,
	}
}

type columbiaBuilder struct{}

func (columbiaBuilder) Carrier() CarrierType { return CarrierColumbia }

// Columbia gates on effective date and building size; the building-limit
// field exists on the form only when the applicant owns the building.
func (columbiaBuilder) BuildPayload(rec InsuredRecord, submissionId string, now time.Time) map[string]interface{} {
	addr := ParseAddress(rec.Address)
	applicantIs := MapColumbiaApplicantIs(rec.ApplicantIs, rec.OwnershipType)

	payload := map[string]interface{}{
		"action":           "start_automation",
		"task_id":          NewTaskId(CarrierColumbia, submissionId, now),
		"corporation_name": rec.CorporationName,
		"dba":              rec.Dba,
		"effective_date":   columbiaEffectiveDate(rec.ProposedEffectiveDate, now),
		"business_type":    MapColumbiaBusinessType(rec.OwnershipType, rec.CorporationName),
		"applicant_is":     applicantIs,
		"contact_name":     rec.ContactName,
		"contact_email":    rec.ContactEmail,
		"address_line_1":   addr.AddressLine1,
		"city":             addr.City,
		"state":            addr.State,
		"zip_code":         addr.ZipCode,
		"total_sq_footage": rec.TotalSqFootage,
		"no_of_mpos":       rec.NoOfMPOs,
	}
	if applicantIs == "owner" {
		// Conditional field, not merely empty: the form has no building
		// limit input for tenants.
		payload["building_limit"] = rec.PropertyCoverage.Building
	}
	return payload
}

// columbiaEffectiveDate formats the proposed effective date as MM/DD/YYYY,
// defaulting to tomorrow when none was proposed or it cannot be parsed.
func columbiaEffectiveDate(proposed string, now time.Time) string {
	if proposed != "" {
		for _, layout := range []string{"2006-01-02", time.RFC3339, "01/02/2006"} {
			if t, err := time.Parse(layout, proposed); err == nil {
				return t.Format("01/02/2006")
			}
		}
	}
	return now.AddDate(0, 0, 1).Format("01/02/2006")
}
