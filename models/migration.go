package models

import (
	"log"

	"github.com/ktirsdata/ntr_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Mda{}, &MdaBranch{},
		&Profile{}, &UserScope{},
		&RevenueSource{}, &RevenueSourceBudget{}, &MdaBudget{},
		&RevenueDailyEntry{}, &MonthlySummary{},
		&History{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
