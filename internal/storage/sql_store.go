package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // dialect import
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noahxzhu/contract-reminder/internal/errs"
	"github.com/noahxzhu/contract-reminder/internal/model"
)

const (
	tableVendors     = "vendors"
	tableContracts   = "service_contracts"
	tableCredentials = "email_credentials"
	tableEmailLogs   = "email_logs"

	dialectPostgres = "postgres"
	dialectMySQL    = "mysql"

	logMsgBuildQueryFailed = "failed to build sql query"
	logMsgSQLExecuted      = "executed sql"
	logAttrQuery           = "query"
	logAttrDurationMS      = "duration_ms"
	logAttrError           = "error"
)

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

// SQLStore is the relational Store backed by sqlx with goqu-built queries.
type SQLStore struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
	now     func() time.Time
	logger  *slog.Logger
}

type SQLOption func(*SQLStore) error

// WithDialect selects the goqu dialect ("postgres" or "mysql").
func WithDialect(name string) SQLOption {
	return func(s *SQLStore) error {
		switch name {
		case dialectPostgres, dialectMySQL:
			s.dialect = goqu.Dialect(name)
			return nil
		default:
			return fmt.Errorf("%w: %q", errs.ErrUnsupportedDriver, name)
		}
	}
}

// WithLogger sets the logger receiving SQL at debug level.
func WithLogger(logger *slog.Logger) SQLOption {
	return func(s *SQLStore) error {
		s.logger = logger
		return nil
	}
}

// WithSQLClock overrides the timestamp source.
func WithSQLClock(now func() time.Time) SQLOption {
	return func(s *SQLStore) error {
		s.now = now
		return nil
	}
}

func NewSQLStore(db *sqlx.DB, opts ...SQLOption) (*SQLStore, error) {
	if db == nil {
		return nil, errs.ErrNilDatabaseConnection
	}

	name := dialectPostgres
	if db.DriverName() == dialectMySQL {
		name = dialectMySQL
	}

	s := &SQLStore{
		db:      db,
		dialect: goqu.Dialect(name),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) build(ds sqlBuilder) (string, []interface{}, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		s.logger.Error(logMsgBuildQueryFailed, logAttrError, err.Error())
		return "", nil, fmt.Errorf("%s: %w", logMsgBuildQueryFailed, err)
	}
	return query, args, nil
}

func (s *SQLStore) exec(ctx context.Context, ds sqlBuilder) (int64, error) {
	query, args, err := s.build(ds)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	res, err := s.db.ExecContext(ctx, query, args...)
	s.logger.Debug(logMsgSQLExecuted, logAttrQuery, query, logAttrDurationMS, time.Since(start).Milliseconds())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLStore) selectAll(ctx context.Context, dest any, ds sqlBuilder) error {
	query, args, err := s.build(ds)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.db.SelectContext(ctx, dest, query, args...)
	s.logger.Debug(logMsgSQLExecuted, logAttrQuery, query, logAttrDurationMS, time.Since(start).Milliseconds())
	return err
}

func (s *SQLStore) selectOne(ctx context.Context, dest any, ds sqlBuilder) error {
	query, args, err := s.build(ds)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.db.GetContext(ctx, dest, query, args...)
	s.logger.Debug(logMsgSQLExecuted, logAttrQuery, query, logAttrDurationMS, time.Since(start).Milliseconds())
	return err
}

func (s *SQLStore) count(ctx context.Context, table string, where ...exp.Expression) (int, error) {
	var n int
	ds := s.dialect.From(table).Select(goqu.COUNT(goqu.Star())).Where(where...).Prepared(true)
	if err := s.selectOne(ctx, &n, ds); err != nil {
		return 0, err
	}
	return n, nil
}

// Vendors

var vendorColumns = []any{"id", "name", "contact_person", "email", "phone", "status", "created_at", "updated_at"}

func vendorRecord(v *model.Vendor) goqu.Record {
	return goqu.Record{
		"name":           v.Name,
		"contact_person": v.ContactPerson,
		"email":          v.Email,
		"phone":          v.Phone,
		"status":         string(v.Status),
		"updated_at":     v.UpdatedAt,
	}
}

func (s *SQLStore) CreateVendor(ctx context.Context, v *model.Vendor) error {
	v.Normalize()
	if err := v.Validate(); err != nil {
		return err
	}
	if err := s.checkEmailFree(ctx, v.Email, uuid.Nil); err != nil {
		return err
	}

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := s.now()
	v.CreatedAt, v.UpdatedAt = now, now

	rec := vendorRecord(v)
	rec["id"] = v.ID.String()
	rec["created_at"] = v.CreatedAt
	if _, err := s.exec(ctx, s.dialect.Insert(tableVendors).Rows(rec).Prepared(true)); err != nil {
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

func (s *SQLStore) checkEmailFree(ctx context.Context, email string, except uuid.UUID) error {
	where := []exp.Expression{goqu.C("email").Eq(email)}
	if except != uuid.Nil {
		where = append(where, goqu.C("id").Neq(except.String()))
	}
	n, err := s.count(ctx, tableVendors, where...)
	if err != nil {
		return fmt.Errorf("failed to check vendor email: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", errs.ErrDuplicateEmail, email)
	}
	return nil
}

func (s *SQLStore) GetVendor(ctx context.Context, id uuid.UUID) (*model.Vendor, error) {
	var v model.Vendor
	ds := s.dialect.From(tableVendors).Select(vendorColumns...).Where(goqu.C("id").Eq(id.String())).Prepared(true)
	if err := s.selectOne(ctx, &v, ds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("vendor %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}
	return &v, nil
}

func (s *SQLStore) ListVendors(ctx context.Context) ([]*model.Vendor, error) {
	vendors := make([]*model.Vendor, 0)
	ds := s.dialect.From(tableVendors).Select(vendorColumns...).Order(goqu.C("name").Asc()).Prepared(true)
	if err := s.selectAll(ctx, &vendors, ds); err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	return vendors, nil
}

func (s *SQLStore) UpdateVendor(ctx context.Context, v *model.Vendor) error {
	v.Normalize()
	if err := v.Validate(); err != nil {
		return err
	}
	existing, err := s.GetVendor(ctx, v.ID)
	if err != nil {
		return err
	}
	if err := s.checkEmailFree(ctx, v.Email, v.ID); err != nil {
		return err
	}

	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = s.now()
	ds := s.dialect.Update(tableVendors).Set(vendorRecord(v)).Where(goqu.C("id").Eq(v.ID.String())).Prepared(true)
	if _, err := s.exec(ctx, ds); err != nil {
		return fmt.Errorf("failed to update vendor: %w", err)
	}
	return nil
}

// DeleteVendor relies on ON DELETE CASCADE for contracts and email logs.
func (s *SQLStore) DeleteVendor(ctx context.Context, id uuid.UUID) error {
	n, err := s.exec(ctx, s.dialect.Delete(tableVendors).Where(goqu.C("id").Eq(id.String())).Prepared(true))
	if err != nil {
		return fmt.Errorf("failed to delete vendor: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("vendor %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// Contracts

type contractRow struct {
	model.ServiceContract
	VendorName          string             `db:"vendor_name"`
	VendorContactPerson string             `db:"vendor_contact_person"`
	VendorEmail         string             `db:"vendor_email"`
	VendorPhone         string             `db:"vendor_phone"`
	VendorStatus        model.VendorStatus `db:"vendor_status"`
	VendorCreatedAt     time.Time          `db:"vendor_created_at"`
	VendorUpdatedAt     time.Time          `db:"vendor_updated_at"`
}

func (r *contractRow) toModel() *model.ServiceContract {
	c := r.ServiceContract
	c.Vendor = &model.Vendor{
		ID:            c.VendorID,
		Name:          r.VendorName,
		ContactPerson: r.VendorContactPerson,
		Email:         r.VendorEmail,
		Phone:         r.VendorPhone,
		Status:        r.VendorStatus,
		CreatedAt:     r.VendorCreatedAt,
		UpdatedAt:     r.VendorUpdatedAt,
	}
	return &c
}

func (s *SQLStore) contractSelect() *goqu.SelectDataset {
	return s.dialect.From(goqu.T(tableContracts).As("c")).
		Join(goqu.T(tableVendors).As("v"), goqu.On(goqu.I("c.vendor_id").Eq(goqu.I("v.id")))).
		Select(
			goqu.I("c.id"),
			goqu.I("c.vendor_id"),
			goqu.I("c.service_name"),
			goqu.I("c.start_date"),
			goqu.I("c.expiry_date"),
			goqu.I("c.payment_due_date"),
			goqu.I("c.amount"),
			goqu.I("c.status"),
			goqu.I("c.created_at"),
			goqu.I("c.updated_at"),
			goqu.I("v.name").As("vendor_name"),
			goqu.I("v.contact_person").As("vendor_contact_person"),
			goqu.I("v.email").As("vendor_email"),
			goqu.I("v.phone").As("vendor_phone"),
			goqu.I("v.status").As("vendor_status"),
			goqu.I("v.created_at").As("vendor_created_at"),
			goqu.I("v.updated_at").As("vendor_updated_at"),
		)
}

func contractRecord(c *model.ServiceContract) goqu.Record {
	return goqu.Record{
		"vendor_id":        c.VendorID.String(),
		"service_name":     c.ServiceName,
		"start_date":       c.StartDate.String(),
		"expiry_date":      c.ExpiryDate.String(),
		"payment_due_date": c.PaymentDueDate.String(),
		"amount":           c.Amount.String(),
		"status":           string(c.Status),
		"updated_at":       c.UpdatedAt,
	}
}

func (s *SQLStore) CreateContract(ctx context.Context, c *model.ServiceContract) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}
	vendor, err := s.GetVendor(ctx, c.VendorID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("vendor %s: %w", c.VendorID, errs.ErrVendorNotFound)
		}
		return err
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	rec := contractRecord(c)
	rec["id"] = c.ID.String()
	rec["created_at"] = c.CreatedAt
	if _, err := s.exec(ctx, s.dialect.Insert(tableContracts).Rows(rec).Prepared(true)); err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}
	c.Vendor = vendor
	return nil
}

func (s *SQLStore) GetContract(ctx context.Context, id uuid.UUID) (*model.ServiceContract, error) {
	var row contractRow
	ds := s.contractSelect().Where(goqu.I("c.id").Eq(id.String())).Prepared(true)
	if err := s.selectOne(ctx, &row, ds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contract %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return row.toModel(), nil
}

func (s *SQLStore) ListContracts(ctx context.Context, filter ContractFilter) ([]*model.ServiceContract, error) {
	ds := s.contractSelect().
		Where(contractWhere(filter)...).
		Order(goqu.I("c.expiry_date").Asc(), goqu.I("c.payment_due_date").Asc(), goqu.I("c.id").Asc()).
		Prepared(true)

	rows := make([]contractRow, 0)
	if err := s.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	contracts := make([]*model.ServiceContract, 0, len(rows))
	for i := range rows {
		contracts = append(contracts, rows[i].toModel())
	}
	return contracts, nil
}

func contractWhere(f ContractFilter) []exp.Expression {
	where := make([]exp.Expression, 0)
	if f.VendorID != uuid.Nil {
		where = append(where, goqu.I("c.vendor_id").Eq(f.VendorID.String()))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			statuses = append(statuses, string(st))
		}
		where = append(where, goqu.I("c.status").In(statuses))
	}
	if !f.DueBy.IsZero() {
		where = append(where, goqu.Or(
			goqu.I("c.expiry_date").Lte(f.DueBy.String()),
			goqu.I("c.payment_due_date").Lte(f.DueBy.String()),
		))
	}
	where = appendRange(where, "c.expiry_date", f.ExpiryFrom, f.ExpiryTo)
	where = appendRange(where, "c.payment_due_date", f.PaymentFrom, f.PaymentTo)
	return where
}

func appendRange(where []exp.Expression, col string, from, to model.Date) []exp.Expression {
	if !from.IsZero() {
		where = append(where, goqu.I(col).Gte(from.String()))
	}
	if !to.IsZero() {
		where = append(where, goqu.I(col).Lte(to.String()))
	}
	return where
}

func (s *SQLStore) UpdateContract(ctx context.Context, c *model.ServiceContract) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}
	existing, err := s.GetContract(ctx, c.ID)
	if err != nil {
		return err
	}
	vendor, err := s.GetVendor(ctx, c.VendorID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("vendor %s: %w", c.VendorID, errs.ErrVendorNotFound)
		}
		return err
	}

	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.now()
	ds := s.dialect.Update(tableContracts).Set(contractRecord(c)).Where(goqu.C("id").Eq(c.ID.String())).Prepared(true)
	if _, err := s.exec(ctx, ds); err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	c.Vendor = vendor
	return nil
}

func (s *SQLStore) UpdateContractStatus(ctx context.Context, id uuid.UUID, status model.ContractStatus) (*model.ServiceContract, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid contract status %q", errs.ErrValidation, status)
	}
	if _, err := s.GetContract(ctx, id); err != nil {
		return nil, err
	}

	ds := s.dialect.Update(tableContracts).
		Set(goqu.Record{"status": string(status), "updated_at": s.now()}).
		Where(goqu.C("id").Eq(id.String())).
		Prepared(true)
	if _, err := s.exec(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to update contract status: %w", err)
	}
	return s.GetContract(ctx, id)
}

func (s *SQLStore) DeleteContract(ctx context.Context, id uuid.UUID) error {
	n, err := s.exec(ctx, s.dialect.Delete(tableContracts).Where(goqu.C("id").Eq(id.String())).Prepared(true))
	if err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("contract %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// Credentials

var credentialColumns = []any{
	"id", "name", "from_email", "smtp_host", "smtp_port", "use_tls", "use_ssl",
	"username", "password", "is_active", "created_at", "updated_at",
}

func credentialSQLRecord(c *model.EmailCredential) goqu.Record {
	return goqu.Record{
		"name":       c.Name,
		"from_email": c.FromEmail,
		"smtp_host":  c.SMTPHost,
		"smtp_port":  c.SMTPPort,
		"use_tls":    c.UseTLS,
		"use_ssl":    c.UseSSL,
		"username":   c.Username,
		"password":   c.Password,
		"is_active":  c.IsActive,
		"updated_at": c.UpdatedAt,
	}
}

func credentialOrder() []exp.OrderedExpression {
	return []exp.OrderedExpression{
		goqu.C("updated_at").Desc(),
		goqu.C("created_at").Desc(),
		goqu.C("id").Asc(),
	}
}

func (s *SQLStore) CreateCredential(ctx context.Context, c *model.EmailCredential) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	rec := credentialSQLRecord(c)
	rec["id"] = c.ID.String()
	rec["created_at"] = c.CreatedAt
	if _, err := s.exec(ctx, s.dialect.Insert(tableCredentials).Rows(rec).Prepared(true)); err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

func (s *SQLStore) GetCredential(ctx context.Context, id uuid.UUID) (*model.EmailCredential, error) {
	var c model.EmailCredential
	ds := s.dialect.From(tableCredentials).Select(credentialColumns...).Where(goqu.C("id").Eq(id.String())).Prepared(true)
	if err := s.selectOne(ctx, &c, ds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &c, nil
}

func (s *SQLStore) ListCredentials(ctx context.Context) ([]*model.EmailCredential, error) {
	creds := make([]*model.EmailCredential, 0)
	ds := s.dialect.From(tableCredentials).Select(credentialColumns...).Order(credentialOrder()...).Prepared(true)
	if err := s.selectAll(ctx, &creds, ds); err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}

func (s *SQLStore) UpdateCredential(ctx context.Context, c *model.EmailCredential) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}
	existing, err := s.GetCredential(ctx, c.ID)
	if err != nil {
		return err
	}

	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.now()
	ds := s.dialect.Update(tableCredentials).Set(credentialSQLRecord(c)).Where(goqu.C("id").Eq(c.ID.String())).Prepared(true)
	if _, err := s.exec(ctx, ds); err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	return nil
}

func (s *SQLStore) DeleteCredential(ctx context.Context, id uuid.UUID) error {
	n, err := s.exec(ctx, s.dialect.Delete(tableCredentials).Where(goqu.C("id").Eq(id.String())).Prepared(true))
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("credential %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

func (s *SQLStore) ActiveCredential(ctx context.Context) (*model.EmailCredential, error) {
	var c model.EmailCredential
	ds := s.dialect.From(tableCredentials).
		Select(credentialColumns...).
		Where(goqu.C("is_active").IsTrue()).
		Order(credentialOrder()...).
		Limit(1).
		Prepared(true)
	if err := s.selectOne(ctx, &c, ds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active credential: %w", err)
	}
	return &c, nil
}

// Email logs

type emailLogRow struct {
	model.EmailLog
	JoinedVendorName  sql.NullString `db:"vendor_name"`
	JoinedServiceName sql.NullString `db:"service_name"`
}

func (s *SQLStore) CreateEmailLog(ctx context.Context, l *model.EmailLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = s.now()

	rec := goqu.Record{
		"id":            l.ID.String(),
		"contract_id":   l.ContractID.String(),
		"recipient":     l.Recipient,
		"sender":        l.Sender,
		"subject":       l.Subject,
		"body":          l.Body,
		"success":       l.Success,
		"error_message": l.ErrorMessage,
		"created_at":    l.CreatedAt,
	}
	if _, err := s.exec(ctx, s.dialect.Insert(tableEmailLogs).Rows(rec).Prepared(true)); err != nil {
		return fmt.Errorf("failed to create email log: %w", err)
	}
	return nil
}

func (s *SQLStore) ListEmailLogs(ctx context.Context, filter model.EmailLogFilter) ([]*model.EmailLog, error) {
	filter = normalizeLogFilter(filter)

	ds := s.dialect.From(goqu.T(tableEmailLogs).As("l")).
		LeftJoin(goqu.T(tableContracts).As("c"), goqu.On(goqu.I("l.contract_id").Eq(goqu.I("c.id")))).
		LeftJoin(goqu.T(tableVendors).As("v"), goqu.On(goqu.I("c.vendor_id").Eq(goqu.I("v.id")))).
		Select(
			goqu.I("l.id"),
			goqu.I("l.contract_id"),
			goqu.I("l.recipient"),
			goqu.I("l.sender"),
			goqu.I("l.subject"),
			goqu.I("l.body"),
			goqu.I("l.success"),
			goqu.I("l.error_message"),
			goqu.I("l.created_at"),
			goqu.I("v.name").As("vendor_name"),
			goqu.I("c.service_name").As("service_name"),
		).
		Order(goqu.I("l.created_at").Desc(), goqu.I("l.id").Desc()).
		Limit(uint(filter.Limit)).
		Offset(uint(filter.Offset))
	if filter.ContractID != uuid.Nil {
		ds = ds.Where(goqu.I("l.contract_id").Eq(filter.ContractID.String()))
	}

	rows := make([]emailLogRow, 0)
	if err := s.selectAll(ctx, &rows, ds.Prepared(true)); err != nil {
		return nil, fmt.Errorf("failed to list email logs: %w", err)
	}

	logs := make([]*model.EmailLog, 0, len(rows))
	for i := range rows {
		l := rows[i].EmailLog
		l.VendorName = rows[i].JoinedVendorName.String
		l.ServiceName = rows[i].JoinedServiceName.String
		logs = append(logs, &l)
	}
	return logs, nil
}
