package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahxzhu/contract-reminder/internal/errs"
	"github.com/noahxzhu/contract-reminder/internal/model"
)

// tickingClock returns a strictly increasing time on each call.
func tickingClock() func() time.Time {
	current := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newTestStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	store := NewJSONStore(path, WithClock(tickingClock()))
	require.NoError(t, store.Load())
	return store, path
}

func givenVendor(t *testing.T, store Store, email string) *model.Vendor {
	t.Helper()
	v := &model.Vendor{Name: "Vendor " + email, ContactPerson: "Casey", Email: email, Phone: "0001"}
	require.NoError(t, store.CreateVendor(context.Background(), v))
	return v
}

func givenContract(t *testing.T, store Store, vendorID uuid.UUID, status model.ContractStatus, expiry, payment model.Date) *model.ServiceContract {
	t.Helper()
	c := &model.ServiceContract{
		VendorID:       vendorID,
		ServiceName:    "Service " + expiry.String(),
		StartDate:      expiry.AddDays(-365),
		ExpiryDate:     expiry,
		PaymentDueDate: payment,
		Amount:         decimal.RequireFromString("1000.00"),
		Status:         status,
	}
	require.NoError(t, store.CreateContract(context.Background(), c))
	return c
}

func TestJSONStoreVendors(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	acme := givenVendor(t, store, "alice@example.com")
	assert.NotEqual(t, uuid.Nil, acme.ID)
	assert.Equal(t, model.VendorActive, acme.Status)

	dup := &model.Vendor{Name: "Dup", ContactPerson: "Bob", Email: "ALICE@example.com", Phone: "1"}
	assert.ErrorIs(t, store.CreateVendor(ctx, dup), errs.ErrDuplicateEmail)

	acme.Phone = "999"
	require.NoError(t, store.UpdateVendor(ctx, acme))
	got, err := store.GetVendor(ctx, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "999", got.Phone)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	_, err = store.GetVendor(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestJSONStoreDeleteVendorCascades(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	today := model.NewDate(2026, time.October, 19)

	v := givenVendor(t, store, "ops@example.com")
	c := givenContract(t, store, v.ID, model.ContractActive, today, today)
	require.NoError(t, store.CreateEmailLog(ctx, &model.EmailLog{ContractID: c.ID, Recipient: v.Email, Success: true}))

	require.NoError(t, store.DeleteVendor(ctx, v.ID))

	contracts, err := store.ListContracts(ctx, ContractFilter{})
	require.NoError(t, err)
	assert.Empty(t, contracts)
	logs, err := store.ListEmailLogs(ctx, model.EmailLogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestJSONStoreCreateContractRequiresVendor(t *testing.T) {
	store, _ := newTestStore(t)
	today := model.NewDate(2026, time.October, 19)

	c := &model.ServiceContract{
		VendorID:       uuid.New(),
		ServiceName:    "Orphan",
		StartDate:      today,
		ExpiryDate:     today,
		PaymentDueDate: today,
	}
	assert.ErrorIs(t, store.CreateContract(context.Background(), c), errs.ErrVendorNotFound)
}

func TestJSONStoreListContractsFilter(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	today := model.NewDate(2026, time.October, 19)
	windowEnd := today.AddDays(15)

	v := givenVendor(t, store, "vendor@example.com")
	late := givenContract(t, store, v.ID, model.ContractActive, today.AddDays(10), today.AddDays(40))
	early := givenContract(t, store, v.ID, model.ContractPaymentPending, today.AddDays(-3), today.AddDays(2))
	paymentOnly := givenContract(t, store, v.ID, model.ContractActive, today.AddDays(90), today.AddDays(5))
	givenContract(t, store, v.ID, model.ContractActive, today.AddDays(16), today.AddDays(16))
	givenContract(t, store, v.ID, model.ContractCompleted, today.AddDays(-5), today.AddDays(-5))

	contracts, err := store.ListContracts(ctx, ContractFilter{
		Statuses: model.ReminderStatuses,
		DueBy:    windowEnd,
	})
	require.NoError(t, err)
	require.Len(t, contracts, 3)
	assert.Equal(t, early.ID, contracts[0].ID)
	assert.Equal(t, late.ID, contracts[1].ID)
	assert.Equal(t, paymentOnly.ID, contracts[2].ID)
	assert.Equal(t, v.Name, contracts[0].VendorName())

	expiring, err := store.ListContracts(ctx, ContractFilter{
		Statuses:   model.ReminderStatuses,
		ExpiryFrom: today,
		ExpiryTo:   windowEnd,
	})
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, late.ID, expiring[0].ID)
}

func TestJSONStoreUpdateContractStatus(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	today := model.NewDate(2026, time.October, 19)

	v := givenVendor(t, store, "vendor@example.com")
	c := givenContract(t, store, v.ID, model.ContractActive, today, today)

	updated, err := store.UpdateContractStatus(ctx, c.ID, model.ContractCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.ContractCompleted, updated.Status)

	_, err = store.UpdateContractStatus(ctx, c.ID, "BOGUS")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestJSONStoreActiveCredential(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	active, err := store.ActiveCredential(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	first := &model.EmailCredential{Name: "Primary", FromEmail: "alerts@example.com", SMTPHost: "smtp.example.com", UseTLS: true, IsActive: true}
	second := &model.EmailCredential{Name: "Backup", FromEmail: "ops@example.com", SMTPHost: "smtp2.example.com", SMTPPort: 465, UseSSL: true, IsActive: true}
	require.NoError(t, store.CreateCredential(ctx, first))
	require.NoError(t, store.CreateCredential(ctx, second))

	active, err = store.ActiveCredential(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	// Touching the first credential makes it the most recently updated.
	require.NoError(t, store.UpdateCredential(ctx, first))
	active, err = store.ActiveCredential(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)

	first.IsActive = false
	second.IsActive = false
	require.NoError(t, store.UpdateCredential(ctx, first))
	require.NoError(t, store.UpdateCredential(ctx, second))

	active, err = store.ActiveCredential(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestJSONStoreEmailLogs(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	today := model.NewDate(2026, time.October, 19)

	v := givenVendor(t, store, "vendor@example.com")
	a := givenContract(t, store, v.ID, model.ContractActive, today, today)
	b := givenContract(t, store, v.ID, model.ContractActive, today.AddDays(1), today)

	for _, id := range []uuid.UUID{a.ID, b.ID, a.ID} {
		require.NoError(t, store.CreateEmailLog(ctx, &model.EmailLog{ContractID: id, Recipient: v.Email, Success: true}))
	}
	assert.Error(t, store.CreateEmailLog(ctx, &model.EmailLog{ContractID: uuid.New()}))

	logs, err := store.ListEmailLogs(ctx, model.EmailLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, a.ID, logs[0].ContractID)
	assert.Equal(t, b.ID, logs[1].ContractID)
	assert.True(t, logs[0].CreatedAt.After(logs[1].CreatedAt))
	assert.Equal(t, v.Name, logs[0].VendorName)
	assert.Equal(t, a.ServiceName, logs[0].ServiceName)

	onlyA, err := store.ListEmailLogs(ctx, model.EmailLogFilter{ContractID: a.ID, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, onlyA, 1)

	beyond, err := store.ListEmailLogs(ctx, model.EmailLogFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestJSONStorePersistsAcrossLoads(t *testing.T) {
	ctx := context.Background()
	store, path := newTestStore(t)
	today := model.NewDate(2026, time.October, 19)

	v := givenVendor(t, store, "vendor@example.com")
	c := givenContract(t, store, v.ID, model.ContractActive, today, today.AddDays(3))
	cred := &model.EmailCredential{FromEmail: "alerts@example.com", SMTPHost: "smtp.example.com", Password: "secret", IsActive: true}
	require.NoError(t, store.CreateCredential(ctx, cred))

	reloaded := NewJSONStore(path)
	require.NoError(t, reloaded.Load())

	got, err := reloaded.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.ExpiryDate.Equal(today))
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("1000")))
	assert.Equal(t, v.Email, got.Vendor.Email)

	active, err := reloaded.ActiveCredential(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "secret", active.Password)
}

func TestJSONStoreRollsBackWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	today := model.NewDate(2026, time.October, 19)
	dir := filepath.Join(t.TempDir(), "data")
	store := NewJSONStore(filepath.Join(dir, "store.json"), WithClock(tickingClock()))
	require.NoError(t, store.Load())

	v := givenVendor(t, store, "vendor@example.com")
	c := givenContract(t, store, v.ID, model.ContractActive, today, today)
	cred := &model.EmailCredential{FromEmail: "alerts@example.com", SMTPHost: "smtp.example.com", IsActive: true}
	require.NoError(t, store.CreateCredential(ctx, cred))
	require.NoError(t, store.CreateEmailLog(ctx, &model.EmailLog{ContractID: c.ID, Recipient: v.Email, Success: true}))

	// A regular file where the storage directory should be makes every write fail.
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("blocked"), 0644))

	assert.Error(t, store.CreateEmailLog(ctx, &model.EmailLog{ContractID: c.ID, Recipient: v.Email}))
	logs, err := store.ListEmailLogs(ctx, model.EmailLogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	assert.Error(t, store.CreateVendor(ctx, &model.Vendor{Name: "Other", ContactPerson: "Sam", Email: "other@example.com", Phone: "2"}))
	vendors, err := store.ListVendors(ctx)
	require.NoError(t, err)
	assert.Len(t, vendors, 1)

	changed := *v
	changed.Phone = "999"
	assert.Error(t, store.UpdateVendor(ctx, &changed))
	got, err := store.GetVendor(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "0001", got.Phone)

	_, err = store.UpdateContractStatus(ctx, c.ID, model.ContractCompleted)
	assert.Error(t, err)
	gotContract, err := store.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractActive, gotContract.Status)

	assert.Error(t, store.DeleteVendor(ctx, v.ID))
	contracts, err := store.ListContracts(ctx, ContractFilter{})
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, c.ID, contracts[0].ID)
	logs, err = store.ListEmailLogs(ctx, model.EmailLogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	assert.Error(t, store.DeleteCredential(ctx, cred.ID))
	active, err := store.ActiveCredential(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, cred.ID, active.ID)
}
