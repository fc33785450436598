package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/noahxzhu/contract-reminder/internal/model"
)

// ContractFilter narrows ListContracts. Zero fields do not filter.
// DueBy selects contracts whose expiry OR payment due date is on or before it.
// The From/To pairs are inclusive bounds on a single date field.
type ContractFilter struct {
	VendorID    uuid.UUID
	Statuses    []model.ContractStatus
	DueBy       model.Date
	ExpiryFrom  model.Date
	ExpiryTo    model.Date
	PaymentFrom model.Date
	PaymentTo   model.Date
}

type VendorStore interface {
	CreateVendor(ctx context.Context, v *model.Vendor) error
	GetVendor(ctx context.Context, id uuid.UUID) (*model.Vendor, error)
	ListVendors(ctx context.Context) ([]*model.Vendor, error)
	UpdateVendor(ctx context.Context, v *model.Vendor) error
	DeleteVendor(ctx context.Context, id uuid.UUID) error
}

type ContractStore interface {
	CreateContract(ctx context.Context, c *model.ServiceContract) error
	GetContract(ctx context.Context, id uuid.UUID) (*model.ServiceContract, error)
	// ListContracts returns contracts joined with their vendor, ordered by
	// expiry_date, payment_due_date, then id.
	ListContracts(ctx context.Context, filter ContractFilter) ([]*model.ServiceContract, error)
	UpdateContract(ctx context.Context, c *model.ServiceContract) error
	UpdateContractStatus(ctx context.Context, id uuid.UUID, status model.ContractStatus) (*model.ServiceContract, error)
	DeleteContract(ctx context.Context, id uuid.UUID) error
}

type CredentialStore interface {
	CreateCredential(ctx context.Context, c *model.EmailCredential) error
	GetCredential(ctx context.Context, id uuid.UUID) (*model.EmailCredential, error)
	ListCredentials(ctx context.Context) ([]*model.EmailCredential, error)
	UpdateCredential(ctx context.Context, c *model.EmailCredential) error
	DeleteCredential(ctx context.Context, id uuid.UUID) error
	// ActiveCredential returns the active credential with the latest updated_at
	// (ties: latest created_at, then lowest id), or nil when none is active.
	ActiveCredential(ctx context.Context) (*model.EmailCredential, error)
}

type EmailLogStore interface {
	CreateEmailLog(ctx context.Context, l *model.EmailLog) error
	// ListEmailLogs returns logs newest first.
	ListEmailLogs(ctx context.Context, filter model.EmailLogFilter) ([]*model.EmailLog, error)
}

// Store is the full contract store used by the API and the CLI.
type Store interface {
	VendorStore
	ContractStore
	CredentialStore
	EmailLogStore
	Close() error
}

const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

func normalizeLogFilter(f model.EmailLogFilter) model.EmailLogFilter {
	if f.Limit <= 0 {
		f.Limit = defaultLogLimit
	}
	if f.Limit > maxLogLimit {
		f.Limit = maxLogLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
