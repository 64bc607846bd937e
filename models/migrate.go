package models

import (
	"log"

	"github.com/coverlane/agency_backend/config"
	"github.com/coverlane/agency_backend/utils"
)

func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&User{},
		&Carrier{},
		&InsuredInfo{},
		&Submission{},
	)
	if err != nil {
		log.Printf("auto migrate failed: %v", err)
	}

	seedCarriers()
}

// seedCarriers ensures the registry has a row per supported carrier so
// operators can set a webhook override without manual inserts. Existing rows
// are left untouched.
func seedCarriers() {
	db := config.GetDB()
	seeds := []Carrier{
		{Code: "meridian", Name: "Meridian Specialty", IsActive: utils.NewTrue()},
		{Code: "lakeland", Name: "Lakeland Mutual", IsActive: utils.NewTrue()},
		{Code: "columbia", Name: "Columbia General", IsActive: utils.NewTrue()},
	}
	for _, seed := range seeds {
		if err := db.Where(Carrier{Code: seed.Code}).FirstOrCreate(&seed).Error; err != nil {
			log.Printf("seed carrier %s failed: %v", seed.Code, err)
		}
	}
}
