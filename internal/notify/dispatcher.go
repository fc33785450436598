package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/noahxzhu/contract-reminder/internal/credential"
	"github.com/noahxzhu/contract-reminder/internal/logger"
	"github.com/noahxzhu/contract-reminder/internal/mailer"
	"github.com/noahxzhu/contract-reminder/internal/metrics"
	"github.com/noahxzhu/contract-reminder/internal/model"
)

type PayloadBuilder interface {
	BuildPayloads(ctx context.Context, windowDays int) ([]model.ReminderPayload, error)
}

type TransportResolver interface {
	Resolve(ctx context.Context) (credential.Transport, error)
}

type EmailLogWriter interface {
	CreateEmailLog(ctx context.Context, l *model.EmailLog) error
}

// Result reports every payload processed. Sent counts attempts, not successes.
type Result struct {
	Sent     int                     `json:"sent"`
	Payloads []model.ReminderPayload `json:"reminders"`
}

// Dispatcher sends one reminder email per payload and records every attempt.
type Dispatcher struct {
	payloads   PayloadBuilder
	transports TransportResolver
	logs       EmailLogWriter
	logger     *slog.Logger
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func NewDispatcher(payloads PayloadBuilder, transports TransportResolver, logs EmailLogWriter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		payloads:   payloads,
		transports: transports,
		logs:       logs,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func Subject(p model.ReminderPayload) string {
	return "Contract reminder: " + p.ServiceName
}

func Body(p model.ReminderPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vendor: %s\n", p.Vendor)
	fmt.Fprintf(&b, "Service: %s\n", p.ServiceName)
	fmt.Fprintf(&b, "Expiry date: %s (status: %s)\n", p.ExpiryDate, p.ExpiryColor)
	fmt.Fprintf(&b, "Payment due: %s (status: %s)\n", p.PaymentDueDate, p.PaymentColor)
	return b.String()
}

// Send builds the current payloads and mails each one over the transport
// resolved for this run. A transport failure is recorded in the email log and
// does not stop the batch. Store failures abort the run. Running Send twice
// mails in-window contracts twice.
func (d *Dispatcher) Send(ctx context.Context, windowDays int) (*Result, error) {
	ctx = context.WithValue(ctx, logger.RunIDKey, uuid.NewString())
	log := logger.From(ctx, d.logger)

	payloads, err := d.payloads.BuildPayloads(ctx, windowDays)
	if err != nil {
		metrics.ReminderRunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	transport, err := d.transports.Resolve(ctx)
	if err != nil {
		metrics.ReminderRunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	failed := 0
	for _, p := range payloads {
		ok, err := d.sendOne(ctx, log, transport, p)
		if err != nil {
			metrics.ReminderRunsTotal.WithLabelValues("failed").Inc()
			return nil, err
		}
		if !ok {
			failed++
		}
	}

	metrics.ReminderRunsTotal.WithLabelValues("completed").Inc()
	log.Info("reminder dispatch finished",
		"window_days", windowDays,
		"attempted", len(payloads),
		"failed", failed,
		"provider", transport.Provider,
		"sender", transport.Sender,
	)
	return &Result{Sent: len(payloads), Payloads: payloads}, nil
}

// sendOne attempts a single delivery and writes its audit row. The returned
// error is a store error only.
func (d *Dispatcher) sendOne(ctx context.Context, log *slog.Logger, t credential.Transport, p model.ReminderPayload) (bool, error) {
	subject := Subject(p)
	body := Body(p)
	msg := mailer.NewMessage(t.Sender, []string{p.Recipient},
		mailer.WithSubject(subject),
		mailer.WithText(body),
	)

	timer := prometheus.NewTimer(metrics.ReminderSendDuration.WithLabelValues(t.Provider))
	sendErr := t.Mailer.Send(ctx, msg)
	timer.ObserveDuration()

	entry := &model.EmailLog{
		ContractID: p.ContractID,
		Recipient:  p.Recipient,
		Sender:     t.Sender,
		Subject:    subject,
		Body:       body,
		Success:    sendErr == nil,
	}
	if sendErr != nil {
		entry.ErrorMessage = sendErr.Error()
		metrics.RemindersAttemptedTotal.WithLabelValues("failed", t.Provider).Inc()
		log.Error("reminder email failed",
			"contract_id", p.ContractID,
			"recipient", p.Recipient,
			"error", sendErr,
		)
	} else {
		metrics.RemindersAttemptedTotal.WithLabelValues("success", t.Provider).Inc()
		log.Debug("reminder email sent", "contract_id", p.ContractID, "recipient", p.Recipient)
	}

	if err := d.logs.CreateEmailLog(ctx, entry); err != nil {
		return false, fmt.Errorf("failed to record email log for contract %s: %w", p.ContractID, err)
	}
	return sendErr == nil, nil
}
