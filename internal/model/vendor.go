package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noahxzhu/contract-reminder/internal/errs"
)

type VendorStatus string

const (
	VendorActive   VendorStatus = "ACTIVE"
	VendorInactive VendorStatus = "INACTIVE"
)

func (s VendorStatus) Valid() bool {
	return s == VendorActive || s == VendorInactive
}

type Vendor struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	Name          string       `json:"name" db:"name"`
	ContactPerson string       `json:"contact_person" db:"contact_person"`
	Email         string       `json:"email" db:"email"`
	Phone         string       `json:"phone" db:"phone"`
	Status        VendorStatus `json:"status" db:"status"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// Normalize fills defaults and trims user input before validation.
func (v *Vendor) Normalize() {
	v.Name = strings.TrimSpace(v.Name)
	v.ContactPerson = strings.TrimSpace(v.ContactPerson)
	v.Email = strings.ToLower(strings.TrimSpace(v.Email))
	v.Phone = strings.TrimSpace(v.Phone)
	if v.Status == "" {
		v.Status = VendorActive
	}
}

func (v *Vendor) Validate() error {
	switch {
	case v.Name == "":
		return fmt.Errorf("%w: name is required", errs.ErrValidation)
	case v.ContactPerson == "":
		return fmt.Errorf("%w: contact_person is required", errs.ErrValidation)
	case v.Phone == "":
		return fmt.Errorf("%w: phone is required", errs.ErrValidation)
	case !v.Status.Valid():
		return fmt.Errorf("%w: invalid vendor status %q", errs.ErrValidation, v.Status)
	}
	if err := validateEmail("email", v.Email); err != nil {
		return err
	}
	return nil
}

func validateEmail(field, addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: %s is required", errs.ErrValidation, field)
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return fmt.Errorf("%w: %s %q is not a valid address", errs.ErrValidation, field, addr)
	}
	return nil
}
