package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/noahxzhu/contract-reminder/internal/errs"
)

func TestVendorValidate(t *testing.T) {
	valid := func() Vendor {
		return Vendor{Name: "Acme", ContactPerson: "Alice", Email: " Alice@Example.com ", Phone: "123"}
	}

	tests := []struct {
		name    string
		mutate  func(*Vendor)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Vendor) {}},
		{name: "missing name", mutate: func(v *Vendor) { v.Name = " " }, wantErr: true},
		{name: "bad email", mutate: func(v *Vendor) { v.Email = "not-an-email" }, wantErr: true},
		{name: "bad status", mutate: func(v *Vendor) { v.Status = "PAUSED" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := valid()
			tt.mutate(&v)
			v.Normalize()
			err := v.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.ErrValidation)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, "alice@example.com", v.Email)
			assert.Equal(t, VendorActive, v.Status)
		})
	}
}

func TestServiceContractValidate(t *testing.T) {
	today := NewDate(2026, time.October, 19)
	valid := func() ServiceContract {
		return ServiceContract{
			VendorID:       uuid.New(),
			ServiceName:    "Cleaning",
			StartDate:      today,
			ExpiryDate:     today.AddDays(30),
			PaymentDueDate: today.AddDays(10),
			Amount:         decimal.RequireFromString("2500.00"),
		}
	}

	c := valid()
	c.Normalize()
	assert.NoError(t, c.Validate())
	assert.Equal(t, ContractActive, c.Status)

	c = valid()
	c.Status = "ARCHIVED"
	assert.ErrorIs(t, c.Validate(), errs.ErrValidation)

	c = valid()
	c.VendorID = uuid.Nil
	assert.ErrorIs(t, c.Validate(), errs.ErrValidation)

	c = valid()
	c.Amount = decimal.NewFromInt(-1)
	assert.ErrorIs(t, c.Validate(), errs.ErrValidation)

	c = valid()
	c.ExpiryDate = Date{}
	assert.ErrorIs(t, c.Validate(), errs.ErrValidation)

	for _, name := range []string{"Cleaning\r\nBcc: attacker@evil.example", "Cleaning\nX-Extra: 1", "Clean\ring"} {
		c = valid()
		c.ServiceName = name
		c.Normalize()
		assert.ErrorIs(t, c.Validate(), errs.ErrValidation, name)
	}
}

func TestEmailCredentialValidate(t *testing.T) {
	c := EmailCredential{FromEmail: "alerts@example.com", SMTPHost: "smtp.example.com"}
	c.Normalize()
	assert.NoError(t, c.Validate())
	assert.Equal(t, DefaultCredentialName, c.Name)
	assert.Equal(t, DefaultSMTPPort, c.SMTPPort)

	c.UseTLS, c.UseSSL = true, true
	assert.ErrorIs(t, c.Validate(), errs.ErrValidation)
}
