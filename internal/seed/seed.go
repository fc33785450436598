package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noahxzhu/contract-reminder/internal/model"
	"github.com/noahxzhu/contract-reminder/internal/storage"
)

type Store interface {
	storage.VendorStore
	storage.ContractStore
}

type demoContract struct {
	ServiceName   string
	StartOffset   int
	ExpiryOffset  int
	PaymentOffset int
	Amount        string
	Status        model.ContractStatus
}

type demoVendor struct {
	Name          string
	ContactPerson string
	Email         string
	Phone         string
	Status        model.VendorStatus
	Contracts     []demoContract
}

// Offsets are days relative to the seed date.
var demoData = []demoVendor{
	{
		Name: "Alpha Tech Solutions", ContactPerson: "Ava Patel", Email: "alpha@example.com", Phone: "+1-555-0100",
		Status: model.VendorActive,
		Contracts: []demoContract{
			{"Network Maintenance", -120, 200, 10, "12000.00", model.ContractActive},
			{"Managed Security Suite", -60, 40, 5, "18500.00", model.ContractPaymentPending},
		},
	},
	{
		Name: "Beacon Facilities", ContactPerson: "Miguel Hernandez", Email: "beacon@example.com", Phone: "+1-555-0101",
		Status: model.VendorActive,
		Contracts: []demoContract{
			{"HVAC Annual Service", -300, -5, -2, "9800.00", model.ContractExpired},
			{"Elevator Maintenance", -30, 180, 14, "4500.00", model.ContractActive},
		},
	},
	{
		Name: "Cobalt Cloud Partners", ContactPerson: "Imani Okoro", Email: "cobalt@example.com", Phone: "+1-555-0102",
		Status: model.VendorInactive,
		Contracts: []demoContract{
			{"SaaS Subscription", -200, 15, 7, "24000.00", model.ContractActive},
			{"Custom Integration Support", -10, 60, 30, "6200.00", model.ContractCompleted},
		},
	},
}

type Result struct {
	Flushed          bool
	VendorsCreated   int
	ContractsCreated int
}

func (r Result) String() string {
	return fmt.Sprintf("Seed complete: %d vendor(s) and %d service contract(s) created.", r.VendorsCreated, r.ContractsCreated)
}

// Seed upserts the demo vendors (by email) and their contracts (by vendor and
// service name) with dates relative to today. With flush, every vendor and
// contract is deleted first.
func Seed(ctx context.Context, store Store, today model.Date, flush bool) (Result, error) {
	var res Result

	if flush {
		if err := flushAll(ctx, store); err != nil {
			return res, err
		}
		res.Flushed = true
	}

	existing, err := store.ListVendors(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to list vendors: %w", err)
	}
	byEmail := make(map[string]*model.Vendor, len(existing))
	for _, v := range existing {
		byEmail[strings.ToLower(v.Email)] = v
	}

	for _, dv := range demoData {
		v, created, err := upsertVendor(ctx, store, byEmail[dv.Email], dv)
		if err != nil {
			return res, err
		}
		if created {
			res.VendorsCreated++
		}

		n, err := upsertContracts(ctx, store, v, dv.Contracts, today)
		if err != nil {
			return res, err
		}
		res.ContractsCreated += n
	}
	return res, nil
}

func flushAll(ctx context.Context, store Store) error {
	contracts, err := store.ListContracts(ctx, storage.ContractFilter{})
	if err != nil {
		return fmt.Errorf("failed to list contracts: %w", err)
	}
	for _, c := range contracts {
		if err := store.DeleteContract(ctx, c.ID); err != nil {
			return fmt.Errorf("failed to delete contract %s: %w", c.ID, err)
		}
	}

	vendors, err := store.ListVendors(ctx)
	if err != nil {
		return fmt.Errorf("failed to list vendors: %w", err)
	}
	for _, v := range vendors {
		if err := store.DeleteVendor(ctx, v.ID); err != nil {
			return fmt.Errorf("failed to delete vendor %s: %w", v.ID, err)
		}
	}
	return nil
}

func upsertVendor(ctx context.Context, store Store, v *model.Vendor, dv demoVendor) (*model.Vendor, bool, error) {
	if v == nil {
		v = &model.Vendor{Email: dv.Email}
		v.Name, v.ContactPerson, v.Phone, v.Status = dv.Name, dv.ContactPerson, dv.Phone, dv.Status
		if err := store.CreateVendor(ctx, v); err != nil {
			return nil, false, fmt.Errorf("failed to create vendor %s: %w", dv.Email, err)
		}
		return v, true, nil
	}

	v.Name, v.ContactPerson, v.Phone, v.Status = dv.Name, dv.ContactPerson, dv.Phone, dv.Status
	if err := store.UpdateVendor(ctx, v); err != nil {
		return nil, false, fmt.Errorf("failed to update vendor %s: %w", dv.Email, err)
	}
	return v, false, nil
}

func upsertContracts(ctx context.Context, store Store, v *model.Vendor, demos []demoContract, today model.Date) (int, error) {
	existing, err := store.ListContracts(ctx, storage.ContractFilter{VendorID: v.ID})
	if err != nil {
		return 0, fmt.Errorf("failed to list contracts for vendor %s: %w", v.ID, err)
	}
	byName := make(map[string]*model.ServiceContract, len(existing))
	for _, c := range existing {
		byName[c.ServiceName] = c
	}

	created := 0
	for _, dc := range demos {
		c, ok := byName[dc.ServiceName]
		if !ok {
			c = &model.ServiceContract{VendorID: v.ID, ServiceName: dc.ServiceName}
		}
		c.StartDate = today.AddDays(dc.StartOffset)
		c.ExpiryDate = today.AddDays(dc.ExpiryOffset)
		c.PaymentDueDate = today.AddDays(dc.PaymentOffset)
		c.Amount = decimal.RequireFromString(dc.Amount)
		c.Status = dc.Status

		if ok {
			if err := store.UpdateContract(ctx, c); err != nil {
				return created, fmt.Errorf("failed to update contract %q: %w", dc.ServiceName, err)
			}
			continue
		}
		if err := store.CreateContract(ctx, c); err != nil {
			return created, fmt.Errorf("failed to create contract %q: %w", dc.ServiceName, err)
		}
		created++
	}
	return created, nil
}
