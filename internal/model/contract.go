package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noahxzhu/contract-reminder/internal/errs"
)

type ContractStatus string

const (
	ContractActive         ContractStatus = "ACTIVE"
	ContractExpired        ContractStatus = "EXPIRED"
	ContractPaymentPending ContractStatus = "PAYMENT_PENDING"
	ContractCompleted      ContractStatus = "COMPLETED"
)

// ReminderStatuses are the contract statuses the reminder engine considers.
var ReminderStatuses = []ContractStatus{ContractActive, ContractPaymentPending}

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractActive, ContractExpired, ContractPaymentPending, ContractCompleted:
		return true
	}
	return false
}

type ServiceContract struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	VendorID       uuid.UUID       `json:"vendor" db:"vendor_id"`
	ServiceName    string          `json:"service_name" db:"service_name"`
	StartDate      Date            `json:"start_date" db:"start_date"`
	ExpiryDate     Date            `json:"expiry_date" db:"expiry_date"`
	PaymentDueDate Date            `json:"payment_due_date" db:"payment_due_date"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Status         ContractStatus  `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`

	// Vendor is populated on joined reads only.
	Vendor *Vendor `json:"-" db:"-"`
}

func (c *ServiceContract) Normalize() {
	c.ServiceName = strings.TrimSpace(c.ServiceName)
	if c.Status == "" {
		c.Status = ContractActive
	}
}

func (c *ServiceContract) Validate() error {
	switch {
	case c.VendorID == uuid.Nil:
		return fmt.Errorf("%w: vendor is required", errs.ErrValidation)
	case c.ServiceName == "":
		return fmt.Errorf("%w: service_name is required", errs.ErrValidation)
	case strings.ContainsAny(c.ServiceName, "\r\n"):
		return fmt.Errorf("%w: service_name must not contain line breaks", errs.ErrValidation)
	case c.StartDate.IsZero():
		return fmt.Errorf("%w: start_date is required", errs.ErrValidation)
	case c.ExpiryDate.IsZero():
		return fmt.Errorf("%w: expiry_date is required", errs.ErrValidation)
	case c.PaymentDueDate.IsZero():
		return fmt.Errorf("%w: payment_due_date is required", errs.ErrValidation)
	case c.Amount.IsNegative():
		return fmt.Errorf("%w: amount must not be negative", errs.ErrValidation)
	case !c.Status.Valid():
		return fmt.Errorf("%w: invalid contract status %q", errs.ErrValidation, c.Status)
	}
	return nil
}

// VendorName returns the joined vendor's name, or "" when the vendor was not loaded.
func (c *ServiceContract) VendorName() string {
	if c.Vendor == nil {
		return ""
	}
	return c.Vendor.Name
}
