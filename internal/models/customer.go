package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CustomerStatusActive   = "active"
	CustomerStatusInactive = "inactive"
)

type Customer struct {
	ID            uuid.UUID `json:"id" db:"id"`
	CompanyName   string    `json:"company_name" db:"company_name"`
	GSTIN         *string   `json:"gstin" db:"gstin"`
	ContactPerson *string   `json:"contact_person" db:"contact_person"`
	Email         *string   `json:"email" db:"email"`
	Phone         *string   `json:"phone" db:"phone"`
	Address       *string   `json:"address" db:"address"`
	City          *string   `json:"city" db:"city"`
	State         string    `json:"state" db:"state"`
	Pincode       *string   `json:"pincode" db:"pincode"`
	Country       string    `json:"country" db:"country"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
