package models

import (
	"log"

	"github.com/fynanpro/finance_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&BankAccount{}, &Category{}, &PaymentMethod{},
		&RecurringBill{}, &BillOccurrence{},
		&Transaction{},
		&User{},
		&IdempotencyKey{},
		&EventRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
