package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/noahxzhu/contract-reminder/internal/errs"
	"github.com/noahxzhu/contract-reminder/internal/model"
	"github.com/noahxzhu/contract-reminder/internal/storage"
)

// ContractLister is the read side of the contract store the engine needs.
type ContractLister interface {
	ListContracts(ctx context.Context, filter storage.ContractFilter) ([]*model.ServiceContract, error)
}

// Field selects the contract date DueSoon looks at.
type Field string

const (
	FieldExpiry  Field = "expiry"
	FieldPayment Field = "payment"
)

// Engine selects contracts inside a lookahead window and classifies their
// urgency. It never writes to the store.
type Engine struct {
	contracts ContractLister
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Engine)

// WithClock overrides the wall clock used to determine today's date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func NewEngine(contracts ContractLister, opts ...Option) *Engine {
	e := &Engine{
		contracts: contracts,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today is the local calendar date of the engine's clock.
func (e *Engine) Today() model.Date {
	return model.DateOf(e.now())
}

// Classify buckets a day offset: overdue is red, within the window is yellow,
// anything later is green.
func Classify(days, windowDays int) model.Color {
	switch {
	case days < 0:
		return model.ColorRed
	case days <= windowDays:
		return model.ColorYellow
	default:
		return model.ColorGreen
	}
}

// BuildPayloads returns one payload per ACTIVE or PAYMENT_PENDING contract
// whose expiry or payment due date falls on or before today+windowDays.
// Overdue contracts are included.
func (e *Engine) BuildPayloads(ctx context.Context, windowDays int) ([]model.ReminderPayload, error) {
	today, payloads, err := e.build(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	e.logger.DebugContext(ctx, "reminder payloads built", "today", today.String(), "window_days", windowDays, "count", len(payloads))
	return payloads, nil
}

// BuildReport builds payloads and tallies them by urgency.
func (e *Engine) BuildReport(ctx context.Context, windowDays int) (*model.ReminderReport, error) {
	today, payloads, err := e.build(ctx, windowDays)
	if err != nil {
		return nil, err
	}
	return Tally(today, windowDays, payloads), nil
}

func (e *Engine) build(ctx context.Context, windowDays int) (model.Date, []model.ReminderPayload, error) {
	if err := checkWindow(windowDays); err != nil {
		return model.Date{}, nil, err
	}

	today := e.Today()
	contracts, err := e.contracts.ListContracts(ctx, storage.ContractFilter{
		Statuses: model.ReminderStatuses,
		DueBy:    today.AddDays(windowDays),
	})
	if err != nil {
		return today, nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	payloads := make([]model.ReminderPayload, 0, len(contracts))
	for _, c := range contracts {
		payloads = append(payloads, NewPayload(c, today, windowDays))
	}
	return today, payloads, nil
}

func checkWindow(windowDays int) error {
	if windowDays <= 0 || windowDays > model.MaxWindowDays {
		return fmt.Errorf("%w: %d (allowed 1..%d)", errs.ErrInvalidWindow, windowDays, model.MaxWindowDays)
	}
	return nil
}

// NewPayload classifies a single contract relative to today.
func NewPayload(c *model.ServiceContract, today model.Date, windowDays int) model.ReminderPayload {
	daysToExpiry := today.DaysUntil(c.ExpiryDate)
	daysToPayment := today.DaysUntil(c.PaymentDueDate)

	p := model.ReminderPayload{
		ContractID:       c.ID,
		ServiceName:      c.ServiceName,
		ExpiryDate:       c.ExpiryDate,
		PaymentDueDate:   c.PaymentDueDate,
		ExpiryColor:      Classify(daysToExpiry, windowDays),
		PaymentColor:     Classify(daysToPayment, windowDays),
		DaysUntilExpiry:  daysToExpiry,
		DaysUntilPayment: daysToPayment,
	}
	if c.Vendor != nil {
		p.Vendor = c.Vendor.Name
		p.Recipient = c.Vendor.Email
	}
	return p
}

// DueSoon lists ACTIVE or PAYMENT_PENDING contracts whose date field lies in
// [today, today+windowDays]. Overdue contracts are not included.
func (e *Engine) DueSoon(ctx context.Context, field Field, windowDays int) ([]*model.ServiceContract, error) {
	if err := checkWindow(windowDays); err != nil {
		return nil, err
	}

	today := e.Today()
	end := today.AddDays(windowDays)
	filter := storage.ContractFilter{Statuses: model.ReminderStatuses}
	switch field {
	case FieldExpiry:
		filter.ExpiryFrom, filter.ExpiryTo = today, end
	case FieldPayment:
		filter.PaymentFrom, filter.PaymentTo = today, end
	default:
		return nil, fmt.Errorf("%w: unknown date field %q", errs.ErrValidation, field)
	}

	contracts, err := e.contracts.ListContracts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	return contracts, nil
}
