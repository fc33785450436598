package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/noahxzhu/contract-reminder/internal/errs"
	"github.com/noahxzhu/contract-reminder/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AppSchema is the on-disk layout of the JSON store.
type AppSchema struct {
	Vendors     []*model.Vendor          `json:"vendors"`
	Contracts   []*model.ServiceContract `json:"contracts"`
	Credentials []*model.EmailCredential `json:"credentials"`
	EmailLogs   []*model.EmailLog        `json:"email_logs"`
}

// credentialRecord keeps the password on disk; model.EmailCredential hides it from JSON.
type credentialRecord struct {
	model.EmailCredential
	Password string `json:"password"`
}

type diskSchema struct {
	Vendors     []*model.Vendor          `json:"vendors"`
	Contracts   []*model.ServiceContract `json:"contracts"`
	Credentials []*credentialRecord      `json:"credentials"`
	EmailLogs   []*model.EmailLog        `json:"email_logs"`
}

// JSONStore is a file-backed Store for local runs and tests.
type JSONStore struct {
	mu       sync.RWMutex
	filePath string
	now      func() time.Time
	Data     *AppSchema
}

type JSONOption func(*JSONStore)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) JSONOption {
	return func(s *JSONStore) {
		s.now = now
	}
}

func NewJSONStore(filePath string, opts ...JSONOption) *JSONStore {
	s := &JSONStore{
		filePath: filePath,
		now:      time.Now,
		Data:     emptySchema(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func emptySchema() *AppSchema {
	return &AppSchema{
		Vendors:     []*model.Vendor{},
		Contracts:   []*model.ServiceContract{},
		Credentials: []*model.EmailCredential{},
		EmailLogs:   []*model.EmailLog{},
	}
}

func (s *JSONStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.Data = emptySchema()
			return nil
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		s.Data = emptySchema()
		return nil
	}

	var disk diskSchema
	if err := json.Unmarshal(data, &disk); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	schema := emptySchema()
	if disk.Vendors != nil {
		schema.Vendors = disk.Vendors
	}
	if disk.Contracts != nil {
		schema.Contracts = disk.Contracts
	}
	if disk.EmailLogs != nil {
		schema.EmailLogs = disk.EmailLogs
	}
	for _, rec := range disk.Credentials {
		c := rec.EmailCredential
		c.Password = rec.Password
		schema.Credentials = append(schema.Credentials, &c)
	}
	s.Data = schema
	return nil
}

// Save persists the current state. Callers must not hold the lock.
func (s *JSONStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

func (s *JSONStore) saveLocked() error {
	if s.filePath == "" {
		return nil
	}

	disk := diskSchema{
		Vendors:     s.Data.Vendors,
		Contracts:   s.Data.Contracts,
		Credentials: make([]*credentialRecord, 0, len(s.Data.Credentials)),
		EmailLogs:   s.Data.EmailLogs,
	}
	for _, c := range s.Data.Credentials {
		disk.Credentials = append(disk.Credentials, &credentialRecord{EmailCredential: *c, Password: c.Password})
	}

	data, err := json.MarshalIndent(disk, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// commitLocked persists the state and runs undo when the write fails.
func (s *JSONStore) commitLocked(undo func()) error {
	if err := s.saveLocked(); err != nil {
		undo()
		return err
	}
	return nil
}

// snapshotLocked copies the row slices before an in-place delete and returns
// the func that restores them.
func (s *JSONStore) snapshotLocked() func() {
	vendors := slices.Clone(s.Data.Vendors)
	contracts := slices.Clone(s.Data.Contracts)
	credentials := slices.Clone(s.Data.Credentials)
	logs := slices.Clone(s.Data.EmailLogs)
	return func() {
		s.Data.Vendors = vendors
		s.Data.Contracts = contracts
		s.Data.Credentials = credentials
		s.Data.EmailLogs = logs
	}
}

func (s *JSONStore) Close() error { return nil }

// Vendors

func (s *JSONStore) CreateVendor(_ context.Context, v *model.Vendor) error {
	v.Normalize()
	if err := v.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTakenLocked(v.Email, uuid.Nil) {
		return fmt.Errorf("%w: %s", errs.ErrDuplicateEmail, v.Email)
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := s.now()
	v.CreatedAt, v.UpdatedAt = now, now

	prev := s.Data.Vendors
	stored := *v
	s.Data.Vendors = append(s.Data.Vendors, &stored)
	return s.commitLocked(func() { s.Data.Vendors = prev })
}

func (s *JSONStore) GetVendor(_ context.Context, id uuid.UUID) (*model.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.vendorLocked(id)
	if v == nil {
		return nil, fmt.Errorf("vendor %s: %w", id, errs.ErrNotFound)
	}
	out := *v
	return &out, nil
}

func (s *JSONStore) ListVendors(_ context.Context) ([]*model.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Vendor, 0, len(s.Data.Vendors))
	for _, v := range s.Data.Vendors {
		out := *v
		result = append(result, &out)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (s *JSONStore) UpdateVendor(_ context.Context, v *model.Vendor) error {
	v.Normalize()
	if err := v.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.vendorLocked(v.ID)
	if existing == nil {
		return fmt.Errorf("vendor %s: %w", v.ID, errs.ErrNotFound)
	}
	if s.emailTakenLocked(v.Email, v.ID) {
		return fmt.Errorf("%w: %s", errs.ErrDuplicateEmail, v.Email)
	}
	prev := *existing
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = s.now()
	*existing = *v
	return s.commitLocked(func() { *existing = prev })
}

// DeleteVendor removes the vendor with its contracts and their email logs.
func (s *JSONStore) DeleteVendor(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vendorLocked(id) == nil {
		return fmt.Errorf("vendor %s: %w", id, errs.ErrNotFound)
	}
	undo := s.snapshotLocked()
	s.Data.Vendors = slices.DeleteFunc(s.Data.Vendors, func(v *model.Vendor) bool { return v.ID == id })

	removed := make(map[uuid.UUID]bool)
	s.Data.Contracts = slices.DeleteFunc(s.Data.Contracts, func(c *model.ServiceContract) bool {
		if c.VendorID == id {
			removed[c.ID] = true
			return true
		}
		return false
	})
	s.Data.EmailLogs = slices.DeleteFunc(s.Data.EmailLogs, func(l *model.EmailLog) bool { return removed[l.ContractID] })
	return s.commitLocked(undo)
}

func (s *JSONStore) vendorLocked(id uuid.UUID) *model.Vendor {
	for _, v := range s.Data.Vendors {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func (s *JSONStore) emailTakenLocked(email string, except uuid.UUID) bool {
	for _, v := range s.Data.Vendors {
		if v.ID != except && strings.EqualFold(v.Email, email) {
			return true
		}
	}
	return false
}

// Contracts

func (s *JSONStore) CreateContract(_ context.Context, c *model.ServiceContract) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vendor := s.vendorLocked(c.VendorID)
	if vendor == nil {
		return fmt.Errorf("vendor %s: %w", c.VendorID, errs.ErrVendorNotFound)
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	prev := s.Data.Contracts
	stored := *c
	stored.Vendor = nil
	s.Data.Contracts = append(s.Data.Contracts, &stored)
	if err := s.commitLocked(func() { s.Data.Contracts = prev }); err != nil {
		return err
	}

	v := *vendor
	c.Vendor = &v
	return nil
}

func (s *JSONStore) GetContract(_ context.Context, id uuid.UUID) (*model.ServiceContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.contractLocked(id)
	if c == nil {
		return nil, fmt.Errorf("contract %s: %w", id, errs.ErrNotFound)
	}
	return s.joinLocked(c), nil
}

func (s *JSONStore) ListContracts(_ context.Context, filter ContractFilter) ([]*model.ServiceContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.ServiceContract, 0)
	for _, c := range s.Data.Contracts {
		if matchesContract(c, filter) {
			result = append(result, s.joinLocked(c))
		}
	}
	sortContracts(result)
	return result, nil
}

func (s *JSONStore) UpdateContract(_ context.Context, c *model.ServiceContract) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.contractLocked(c.ID)
	if existing == nil {
		return fmt.Errorf("contract %s: %w", c.ID, errs.ErrNotFound)
	}
	vendor := s.vendorLocked(c.VendorID)
	if vendor == nil {
		return fmt.Errorf("vendor %s: %w", c.VendorID, errs.ErrVendorNotFound)
	}
	prev := *existing
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.now()
	*existing = *c
	existing.Vendor = nil
	if err := s.commitLocked(func() { *existing = prev }); err != nil {
		return err
	}

	v := *vendor
	c.Vendor = &v
	return nil
}

func (s *JSONStore) UpdateContractStatus(_ context.Context, id uuid.UUID, status model.ContractStatus) (*model.ServiceContract, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid contract status %q", errs.ErrValidation, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.contractLocked(id)
	if existing == nil {
		return nil, fmt.Errorf("contract %s: %w", id, errs.ErrNotFound)
	}
	prev := *existing
	existing.Status = status
	existing.UpdatedAt = s.now()
	if err := s.commitLocked(func() { *existing = prev }); err != nil {
		return nil, err
	}
	return s.joinLocked(existing), nil
}

func (s *JSONStore) DeleteContract(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.contractLocked(id) == nil {
		return fmt.Errorf("contract %s: %w", id, errs.ErrNotFound)
	}
	undo := s.snapshotLocked()
	s.Data.Contracts = slices.DeleteFunc(s.Data.Contracts, func(c *model.ServiceContract) bool { return c.ID == id })
	s.Data.EmailLogs = slices.DeleteFunc(s.Data.EmailLogs, func(l *model.EmailLog) bool { return l.ContractID == id })
	return s.commitLocked(undo)
}

func (s *JSONStore) contractLocked(id uuid.UUID) *model.ServiceContract {
	for _, c := range s.Data.Contracts {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *JSONStore) joinLocked(c *model.ServiceContract) *model.ServiceContract {
	out := *c
	if v := s.vendorLocked(c.VendorID); v != nil {
		vendor := *v
		out.Vendor = &vendor
	}
	return &out
}

func matchesContract(c *model.ServiceContract, f ContractFilter) bool {
	if f.VendorID != uuid.Nil && c.VendorID != f.VendorID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, c.Status) {
		return false
	}
	if !f.DueBy.IsZero() && c.ExpiryDate.After(f.DueBy) && c.PaymentDueDate.After(f.DueBy) {
		return false
	}
	if !inRange(c.ExpiryDate, f.ExpiryFrom, f.ExpiryTo) {
		return false
	}
	return inRange(c.PaymentDueDate, f.PaymentFrom, f.PaymentTo)
}

func inRange(d, from, to model.Date) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}

func sortContracts(contracts []*model.ServiceContract) {
	sort.SliceStable(contracts, func(i, j int) bool {
		a, b := contracts[i], contracts[j]
		if !a.ExpiryDate.Equal(b.ExpiryDate) {
			return a.ExpiryDate.Before(b.ExpiryDate)
		}
		if !a.PaymentDueDate.Equal(b.PaymentDueDate) {
			return a.PaymentDueDate.Before(b.PaymentDueDate)
		}
		return a.ID.String() < b.ID.String()
	})
}

// Credentials

func (s *JSONStore) CreateCredential(_ context.Context, c *model.EmailCredential) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	prev := s.Data.Credentials
	stored := *c
	s.Data.Credentials = append(s.Data.Credentials, &stored)
	return s.commitLocked(func() { s.Data.Credentials = prev })
}

func (s *JSONStore) GetCredential(_ context.Context, id uuid.UUID) (*model.EmailCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.credentialLocked(id)
	if c == nil {
		return nil, fmt.Errorf("credential %s: %w", id, errs.ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (s *JSONStore) ListCredentials(_ context.Context) ([]*model.EmailCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.EmailCredential, 0, len(s.Data.Credentials))
	for _, c := range s.Data.Credentials {
		out := *c
		result = append(result, &out)
	}
	sortCredentials(result)
	return result, nil
}

func (s *JSONStore) UpdateCredential(_ context.Context, c *model.EmailCredential) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.credentialLocked(c.ID)
	if existing == nil {
		return fmt.Errorf("credential %s: %w", c.ID, errs.ErrNotFound)
	}
	prev := *existing
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.now()
	*existing = *c
	return s.commitLocked(func() { *existing = prev })
}

func (s *JSONStore) DeleteCredential(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.credentialLocked(id) == nil {
		return fmt.Errorf("credential %s: %w", id, errs.ErrNotFound)
	}
	undo := s.snapshotLocked()
	s.Data.Credentials = slices.DeleteFunc(s.Data.Credentials, func(c *model.EmailCredential) bool { return c.ID == id })
	return s.commitLocked(undo)
}

func (s *JSONStore) ActiveCredential(_ context.Context) (*model.EmailCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]*model.EmailCredential, 0)
	for _, c := range s.Data.Credentials {
		if c.IsActive {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return nil, nil
	}
	sortCredentials(active)
	out := *active[0]
	return &out, nil
}

func (s *JSONStore) credentialLocked(id uuid.UUID) *model.EmailCredential {
	for _, c := range s.Data.Credentials {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// sortCredentials orders by updated_at desc, created_at desc, id asc.
func sortCredentials(creds []*model.EmailCredential) {
	sort.SliceStable(creds, func(i, j int) bool {
		a, b := creds[i], creds[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// Email logs

func (s *JSONStore) CreateEmailLog(_ context.Context, l *model.EmailLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.contractLocked(l.ContractID) == nil {
		return fmt.Errorf("contract %s: %w", l.ContractID, errs.ErrNotFound)
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = s.now()

	prev := s.Data.EmailLogs
	stored := *l
	stored.VendorName, stored.ServiceName = "", ""
	s.Data.EmailLogs = append(s.Data.EmailLogs, &stored)
	return s.commitLocked(func() { s.Data.EmailLogs = prev })
}

func (s *JSONStore) ListEmailLogs(_ context.Context, filter model.EmailLogFilter) ([]*model.EmailLog, error) {
	filter = normalizeLogFilter(filter)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*model.EmailLog, 0)
	// Walk backwards so equal timestamps keep newest-inserted first.
	for i := len(s.Data.EmailLogs) - 1; i >= 0; i-- {
		l := s.Data.EmailLogs[i]
		if filter.ContractID != uuid.Nil && l.ContractID != filter.ContractID {
			continue
		}
		out := *l
		if c := s.contractLocked(l.ContractID); c != nil {
			out.ServiceName = c.ServiceName
			if v := s.vendorLocked(c.VendorID); v != nil {
				out.VendorName = v.Name
			}
		}
		matched = append(matched, &out)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return []*model.EmailLog{}, nil
	}
	end := min(filter.Offset+filter.Limit, len(matched))
	return matched[filter.Offset:end], nil
}
