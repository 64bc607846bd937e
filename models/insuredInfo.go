package models

import (
	"context"
	"time"

	"github.com/coverlane/agency_backend/config"
	"github.com/coverlane/agency_backend/utils"
	"github.com/shopspring/decimal"
)

// InsuredInfo is the live insured-business record in its historical flat,
// database-column-cased shape. The JSON tags ARE the legacy snake_case wire
// shape: a round trip through JSON feeds the key-based normalizer, which is
// the only component allowed to reconcile this shape with the newer camelCase
// snapshot shape. No other code should branch on shape.
type InsuredInfo struct {
	ID                    uint            `gorm:"primary_key" json:"id"`
	AgencyId              string          `gorm:"index;size:36;not null" json:"agency_id"`
	CorporationName       string          `gorm:"size:200" json:"corporation_name"`
	Dba                   string          `gorm:"size:200" json:"dba"`
	Address               string          `gorm:"size:500" json:"address"`
	ContactName           string          `gorm:"size:100" json:"contact_name"`
	ContactNumber         string          `gorm:"size:30" json:"contact_number"`
	ContactEmail          string          `gorm:"size:100" json:"contact_email"`
	OperationDescription  string          `gorm:"size:500" json:"operation_description"`
	OwnershipType         string          `gorm:"size:100" json:"ownership_type"`
	ApplicantIs           string          `gorm:"size:50" json:"applicant_is"`
	Fein                  string          `gorm:"size:20" json:"fein"`
	YearBuilt             string          `gorm:"size:10" json:"year_built"`
	TotalSqFootage        string          `gorm:"size:20" json:"total_sq_footage"`
	YearsExpInBusiness    string          `gorm:"size:10" json:"years_exp_in_business"`
	YearsAtLocation       string          `gorm:"size:10" json:"years_at_location"`
	NoOfMPOs              string          `gorm:"size:10" json:"no_of_mpos"`
	ProposedEffectiveDate string          `gorm:"size:20" json:"proposed_effective_date"`
	InsideSalesYearly     decimal.Decimal `gorm:"type:decimal(18,2)" json:"inside_sales_yearly"`
	LiquorSalesYearly     decimal.Decimal `gorm:"type:decimal(18,2)" json:"liquor_sales_yearly"`
	GasolineSalesYearly   decimal.Decimal `gorm:"type:decimal(18,2)" json:"gasoline_sales_yearly"`
	BuildingCoverage      decimal.Decimal `gorm:"type:decimal(18,2)" json:"building"`
	BppCoverage           decimal.Decimal `gorm:"type:decimal(18,2)" json:"bpp"`
	BiCoverage            decimal.Decimal `gorm:"type:decimal(18,2)" json:"bi"`
	CanopyCoverage        decimal.Decimal `gorm:"type:decimal(18,2)" json:"canopy"`
	PumpsCoverage         decimal.Decimal `gorm:"type:decimal(18,2)" json:"pumps"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// NewInsuredInfo is the update input. Everything stays optional here:
// field requirements are conditional per selected carrier and enforced by the
// dispatch validator, not at save time.
type NewInsuredInfo struct {
	CorporationName       string  `json:"corporationName"`
	Dba                   string  `json:"dba"`
	Address               string  `json:"address"`
	ContactName           string  `json:"contactName"`
	ContactNumber         string  `json:"contactNumber"`
	ContactEmail          string  `json:"contactEmail" binding:"omitempty,email"`
	OperationDescription  string  `json:"operationDescription"`
	OwnershipType         string  `json:"ownershipType"`
	ApplicantIs           string  `json:"applicantIs"`
	Fein                  string  `json:"fein"`
	YearBuilt             string  `json:"yearBuilt"`
	TotalSqFootage        string  `json:"totalSqFootage"`
	YearsExpInBusiness    string  `json:"yearsExpInBusiness"`
	YearsAtLocation       string  `json:"yearsAtLocation"`
	NoOfMPOs              string  `json:"noOfMPOs"`
	ProposedEffectiveDate string  `json:"proposedEffectiveDate"`
	InsideSalesYearly     *string `json:"insideSalesYearly"`
	LiquorSalesYearly     *string `json:"liquorSalesYearly"`
	GasolineSalesYearly   *string `json:"gasolineSalesYearly"`
	Building              *string `json:"building"`
	Bpp                   *string `json:"bpp"`
	Bi                    *string `json:"bi"`
	Canopy                *string `json:"canopy"`
	Pumps                 *string `json:"pumps"`
}

func (input *NewInsuredInfo) toModel(agencyId string) InsuredInfo {
	return InsuredInfo{
		AgencyId:              agencyId,
		CorporationName:       input.CorporationName,
		Dba:                   input.Dba,
		Address:               input.Address,
		ContactName:           input.ContactName,
		ContactNumber:         input.ContactNumber,
		ContactEmail:          input.ContactEmail,
		OperationDescription:  input.OperationDescription,
		OwnershipType:         input.OwnershipType,
		ApplicantIs:           input.ApplicantIs,
		Fein:                  input.Fein,
		YearBuilt:             input.YearBuilt,
		TotalSqFootage:        input.TotalSqFootage,
		YearsExpInBusiness:    input.YearsExpInBusiness,
		YearsAtLocation:       input.YearsAtLocation,
		NoOfMPOs:              input.NoOfMPOs,
		ProposedEffectiveDate: input.ProposedEffectiveDate,
		InsideSalesYearly:     parseAmount(input.InsideSalesYearly),
		LiquorSalesYearly:     parseAmount(input.LiquorSalesYearly),
		GasolineSalesYearly:   parseAmount(input.GasolineSalesYearly),
		BuildingCoverage:      parseAmount(input.Building),
		BppCoverage:           parseAmount(input.Bpp),
		BiCoverage:            parseAmount(input.Bi),
		CanopyCoverage:        parseAmount(input.Canopy),
		PumpsCoverage:         parseAmount(input.Pumps),
	}
}

func parseAmount(v *string) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(*v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func CreateInsuredInfo(ctx context.Context, agencyId string, input *NewInsuredInfo) (*InsuredInfo, error) {
	info := input.toModel(agencyId)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&info).Error; err != nil {
		return nil, err
	}
	return &info, nil
}

func UpdateInsuredInfo(ctx context.Context, agencyId string, id uint, input *NewInsuredInfo) (*InsuredInfo, error) {
	db := config.GetDB()

	var info InsuredInfo
	if err := db.WithContext(ctx).Where("id = ? AND agency_id = ?", id, agencyId).Take(&info).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	updated := input.toModel(agencyId)
	updated.ID = info.ID
	updated.CreatedAt = info.CreatedAt
	if err := db.WithContext(ctx).Save(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

func GetInsuredInfo(ctx context.Context, agencyId string, id uint) (*InsuredInfo, error) {
	db := config.GetDB()
	var info InsuredInfo
	if err := db.WithContext(ctx).Where("id = ? AND agency_id = ?", id, agencyId).Take(&info).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &info, nil
}

// LegacyShape returns the record as the flat snake_case key map consumed by
// the normalizer. Decimal amounts serialize as JSON strings, which the
// normalizer's value coercion accepts. Zero amounts are dropped: the decimal
// columns cannot distinguish "never entered" from an explicit zero, and an
// absent money figure must normalize to the empty default, not "0".
func (info *InsuredInfo) LegacyShape() (map[string]interface{}, error) {
	shape, err := utils.StructToMap(info)
	if err != nil {
		return nil, err
	}
	amounts := map[string]decimal.Decimal{
		"inside_sales_yearly":   info.InsideSalesYearly,
		"liquor_sales_yearly":   info.LiquorSalesYearly,
		"gasoline_sales_yearly": info.GasolineSalesYearly,
		"building":              info.BuildingCoverage,
		"bpp":                   info.BppCoverage,
		"bi":                    info.BiCoverage,
		"canopy":                info.CanopyCoverage,
		"pumps":                 info.PumpsCoverage,
	}
	for key, amount := range amounts {
		if amount.IsZero() {
			delete(shape, key)
		}
	}
	return shape, nil
}
