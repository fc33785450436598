package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noahxzhu/contract-reminder/internal/errs"
)

const (
	DefaultCredentialName = "Primary"
	DefaultSMTPPort       = 587
)

// EmailCredential is a stored outbound mail configuration.
// Password is never serialised to JSON.
type EmailCredential struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	FromEmail string    `json:"from_email" db:"from_email"`
	SMTPHost  string    `json:"smtp_host" db:"smtp_host"`
	SMTPPort  int       `json:"smtp_port" db:"smtp_port"`
	UseTLS    bool      `json:"use_tls" db:"use_tls"`
	UseSSL    bool      `json:"use_ssl" db:"use_ssl"`
	Username  string    `json:"username" db:"username"`
	Password  string    `json:"-" db:"password"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (c *EmailCredential) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		c.Name = DefaultCredentialName
	}
	c.FromEmail = strings.TrimSpace(c.FromEmail)
	c.SMTPHost = strings.TrimSpace(c.SMTPHost)
	if c.SMTPPort == 0 {
		c.SMTPPort = DefaultSMTPPort
	}
}

func (c *EmailCredential) Validate() error {
	if err := validateEmail("from_email", c.FromEmail); err != nil {
		return err
	}
	switch {
	case c.SMTPHost == "":
		return fmt.Errorf("%w: smtp_host is required", errs.ErrValidation)
	case c.SMTPPort < 1 || c.SMTPPort > 65535:
		return fmt.Errorf("%w: smtp_port %d out of range", errs.ErrValidation, c.SMTPPort)
	case c.UseTLS && c.UseSSL:
		return fmt.Errorf("%w: use_tls and use_ssl are mutually exclusive", errs.ErrValidation)
	}
	return nil
}
