package rpadispatch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ValidationError is the user-correctable error returned before any carrier
// is contacted. Field is machine-checkable when the violation ties to one
// input; Details carries the offending value for error surfaces that echo it.
type ValidationError struct {
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (field: %s)", e.Message, e.Field)
	}
	return e.Message
}

var (
	feinRegexp       = regexp.MustCompile(`^\d{2}-\d{7}$`)
	whitespaceRegexp = regexp.MustCompile(`\s+`)
)

// IsValidFein reports whether the FEIN matches DD-DDDDDDD after stripping
// internal whitespace.
func IsValidFein(fein string) bool {
	return feinRegexp.MatchString(whitespaceRegexp.ReplaceAllString(fein, ""))
}

// FormatFein normalizes a FEIN-ish string to DD-DDDDDDD when it contains
// exactly nine digits; otherwise returns it unchanged.
func FormatFein(fein string) string {
	digits := nonDigitRegexp.ReplaceAllString(fein, "")
	if len(digits) != 9 {
		return fein
	}
	return digits[0:2] + "-" + digits[2:9]
}

const columbiaMinSqFootage = 3000

// ValidateForDispatch enforces the pre-dispatch rules in fixed order,
// short-circuiting on the first violation. The gate is all-or-nothing at the
// request level: a violation on any selected carrier's rules aborts the whole
// batch before a single webhook call, even for carriers without that rule.
// Per-carrier rules run only for carriers actually in the requested set.
func ValidateForDispatch(rec InsuredRecord, carriers []CarrierType, now time.Time) *ValidationError {
	if strings.TrimSpace(rec.CorporationName) == "" {
		return &ValidationError{Message: "corporation name is required", Field: "corporationName"}
	}

	if strings.TrimSpace(rec.Address) == "" {
		return &ValidationError{Message: "address is required", Field: "address"}
	}
	addr := ParseAddress(rec.Address)
	if addr.ZipCode == "" {
		return &ValidationError{Message: "address must contain a zip code", Field: "address"}
	}

	if strings.TrimSpace(rec.YearBuilt) == "" {
		return &ValidationError{Message: "year built is required", Field: "yearBuilt"}
	}
	yearBuilt, err := strconv.Atoi(strings.TrimSpace(rec.YearBuilt))
	if err != nil {
		return &ValidationError{Message: "year built must be numeric", Field: "yearBuilt", Details: rec.YearBuilt}
	}
	if yearBuilt < 1800 || yearBuilt > now.Year()+1 {
		return &ValidationError{
			Message: fmt.Sprintf("year built must be between 1800 and %d", now.Year()+1),
			Field:   "yearBuilt",
			Details: rec.YearBuilt,
		}
	}

	if strings.TrimSpace(rec.Fein) != "" && !IsValidFein(rec.Fein) {
		return &ValidationError{Message: "fein must match the format 58-3247891", Field: "fein", Details: rec.Fein}
	}

	selected := map[CarrierType]bool{}
	for _, c := range carriers {
		selected[c] = true
	}
	for _, carrier := range AllCarriers {
		if !selected[carrier] {
			continue
		}
		if verr := validateForCarrier(carrier, rec, addr); verr != nil {
			return verr
		}
	}

	return nil
}

func validateForCarrier(carrier CarrierType, rec InsuredRecord, addr ParsedAddress) *ValidationError {
	switch carrier {
	case CarrierMeridian:
		// Documented carrier exclusion, not a generic rule: meridian does
		// not write Texas risks. Re-check this list when exclusions change.
		if addr.State == "TX" {
			return &ValidationError{
				Message: "meridian does not accept Texas risks",
				Field:   "address",
				Details: addr.State,
			}
		}

	case CarrierLakeland:
		if strings.TrimSpace(rec.ContactName) == "" {
			return &ValidationError{Message: "contact name is required for lakeland", Field: "contactName"}
		}
		if strings.TrimSpace(rec.ContactNumber) == "" {
			return &ValidationError{Message: "contact number is required for lakeland", Field: "contactNumber"}
		}
		if strings.TrimSpace(rec.OperationDescription) == "" {
			return &ValidationError{Message: "operation description is required for lakeland", Field: "operationDescription"}
		}
		if strings.TrimSpace(rec.YearsExpInBusiness) == "" && strings.TrimSpace(rec.YearsAtLocation) == "" {
			return &ValidationError{Message: "years in business is required for lakeland", Field: "yearsExpInBusiness"}
		}
		if addr.City == "" {
			return &ValidationError{Message: "address must contain a resolvable city for lakeland", Field: "address"}
		}

	case CarrierColumbia:
		if strings.TrimSpace(rec.ContactName) == "" {
			return &ValidationError{Message: "contact name is required for columbia", Field: "contactName"}
		}
		if strings.TrimSpace(rec.ContactEmail) == "" {
			return &ValidationError{Message: "contact email is required for columbia", Field: "contactEmail"}
		}
		if strings.TrimSpace(rec.CorporationName) == "" {
			return &ValidationError{Message: "corporation name is required for columbia", Field: "corporationName"}
		}
		if strings.TrimSpace(rec.Address) == "" {
			return &ValidationError{Message: "address is required for columbia", Field: "address"}
		}
		sqft, err := strconv.ParseFloat(strings.TrimSpace(rec.TotalSqFootage), 64)
		if err != nil || sqft < columbiaMinSqFootage {
			return &ValidationError{
				Message: fmt.Sprintf("columbia requires at least %d sq ft", columbiaMinSqFootage),
				Field:   "totalSqFootage",
				Details: fmt.Sprintf("current value: %s", rec.TotalSqFootage),
			}
		}
	}
	return nil
}
