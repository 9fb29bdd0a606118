package models

import (
	"log"

	"bitbucket.org/mmdatafocus/intellitrace_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Entity{}, &SupplyChainEdge{},
		&Invoice{}, &CashCollection{},
		&FraudFlag{}, &Alert{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
