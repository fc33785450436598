package model

import (
	"time"

	"github.com/google/uuid"
)

// EmailLog is the append-only audit record of one send attempt.
type EmailLog struct {
	ID           uuid.UUID `json:"id" db:"id"`
	ContractID   uuid.UUID `json:"contract" db:"contract_id"`
	Recipient    string    `json:"recipient" db:"recipient"`
	Sender       string    `json:"sender" db:"sender"`
	Subject      string    `json:"subject" db:"subject"`
	Body         string    `json:"body" db:"body"`
	Success      bool      `json:"success" db:"success"`
	ErrorMessage string    `json:"error_message" db:"error_message"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// Populated on listing reads.
	VendorName  string `json:"vendor,omitempty" db:"-"`
	ServiceName string `json:"service_name,omitempty" db:"-"`
}

type EmailLogFilter struct {
	ContractID uuid.UUID
	Limit      int
	Offset     int
}
