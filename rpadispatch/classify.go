package rpadispatch

import "strings"

// Legal entity codes used by the lakeland bot's dropdown.
const (
	LegalEntityLLC          = "L"
	LegalEntityCorporation  = "C"
	LegalEntityPartnership  = "P"
	LegalEntityIndividual   = "I"
	LegalEntityJointVenture = "J"
)

// MapLegalEntity maps the free-text ownership descriptor to the 5-way legal
// entity code. The ownership text is checked first; the company name's suffix
// tokens are the fallback. Default is LLC, the dominant entity type in the
// book of business.
func MapLegalEntity(ownershipType string, companyName string) string {
	ownership := strings.ToLower(ownershipType)
	switch {
	case strings.Contains(ownership, "llc"), strings.Contains(ownership, "limited liability"):
		return LegalEntityLLC
	case strings.Contains(ownership, "corp"), strings.Contains(ownership, "inc"):
		return LegalEntityCorporation
	case strings.Contains(ownership, "partner"):
		return LegalEntityPartnership
	case strings.Contains(ownership, "individual"), strings.Contains(ownership, "sole"), strings.Contains(ownership, "proprietor"):
		return LegalEntityIndividual
	case strings.Contains(ownership, "joint"), strings.Contains(ownership, "venture"):
		return LegalEntityJointVenture
	}

	name := strings.ToUpper(companyName)
	switch {
	case strings.Contains(name, " LLC"):
		return LegalEntityLLC
	case strings.Contains(name, " INC"), strings.Contains(name, " CORP"):
		return LegalEntityCorporation
	case strings.Contains(name, " LP"), strings.Contains(name, " LLP"):
		return LegalEntityPartnership
	}

	return LegalEntityLLC
}

// Business-structure labels from the columbia bot's application form.
const (
	ColumbiaBusinessTypeLLC         = "LIMITED LIABILITY COMPANY"
	ColumbiaBusinessTypeCorporation = "CORPORATION"
	ColumbiaBusinessTypePartnership = "PARTNERSHIP"
	ColumbiaBusinessTypeSoleProp    = "SOLE PROPRIETORSHIP"
)

// MapColumbiaBusinessType maps ownership text (company name fallback) to the
// columbia form's enumerated business-structure label.
func MapColumbiaBusinessType(ownershipType string, companyName string) string {
	ownership := strings.ToLower(ownershipType)
	switch {
	case strings.Contains(ownership, "llc"), strings.Contains(ownership, "limited liability"):
		return ColumbiaBusinessTypeLLC
	case strings.Contains(ownership, "corp"), strings.Contains(ownership, "inc"):
		return ColumbiaBusinessTypeCorporation
	case strings.Contains(ownership, "partner"):
		return ColumbiaBusinessTypePartnership
	case strings.Contains(ownership, "individual"), strings.Contains(ownership, "sole"), strings.Contains(ownership, "proprietor"):
		return ColumbiaBusinessTypeSoleProp
	}

	name := strings.ToUpper(companyName)
	switch {
	case strings.Contains(name, " LLC"):
		return ColumbiaBusinessTypeLLC
	case strings.Contains(name, " INC"), strings.Contains(name, " CORP"):
		return ColumbiaBusinessTypeCorporation
	case strings.Contains(name, " LP"), strings.Contains(name, " LLP"):
		return ColumbiaBusinessTypePartnership
	}

	return ColumbiaBusinessTypeLLC
}

// MapColumbiaApplicantIs resolves the owner-vs-tenant flag. The applicant-is
// text wins over the ownership text; tenant is the default.
func MapColumbiaApplicantIs(applicantIs string, ownershipType string) string {
	applicant := strings.ToLower(applicantIs)
	if strings.Contains(applicant, "owner") {
		return "owner"
	}
	if strings.Contains(applicant, "tenant") {
		return "tenant"
	}

	ownership := strings.ToLower(ownershipType)
	if strings.Contains(ownership, "owner") {
		return "owner"
	}
	return "tenant"
}
