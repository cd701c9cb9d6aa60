package model

import "gorm.io/gorm"

// AutoMigrate migrates every entity of the settlement core.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&BookingRequest{},
		&Payment{},
		&FeePayment{},
		&Refund{},
		&StayStatus{},
		&Policy{},
		&AuditLog{},
	)
}
