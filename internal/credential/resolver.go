package credential

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/noahxzhu/contract-reminder/internal/config"
	"github.com/noahxzhu/contract-reminder/internal/mailer"
	"github.com/noahxzhu/contract-reminder/internal/model"
)

// Finder returns the active credential, or nil when none is active.
type Finder interface {
	ActiveCredential(ctx context.Context) (*model.EmailCredential, error)
}

// MailerFactory builds the transport for a stored credential.
type MailerFactory func(cred *model.EmailCredential) mailer.Mailer

// Transport is the mailer and envelope sender used for one dispatch.
type Transport struct {
	Mailer       mailer.Mailer
	Sender       string
	Provider     string
	CredentialID uuid.UUID // uuid.Nil when the configured default is used
}

type Resolver struct {
	finder        Finder
	cfg           config.MailConfig
	fallback      mailer.Mailer
	forCredential MailerFactory
	logger        *slog.Logger
}

type Option func(*Resolver)

func WithMailerFactory(f MailerFactory) Option {
	return func(r *Resolver) {
		r.forCredential = f
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver uses fallback with cfg.DefaultFrom whenever no credential is active.
func NewResolver(finder Finder, cfg config.MailConfig, fallback mailer.Mailer, opts ...Option) *Resolver {
	r := &Resolver{
		finder:   finder,
		cfg:      cfg,
		fallback: fallback,
		logger:   slog.Default(),
	}
	r.forCredential = func(cred *model.EmailCredential) mailer.Mailer {
		return mailer.ForCredential(cred, r.cfg.SMTP)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Active queries the store on every call. Among active credentials the most
// recently updated wins, then the most recently created, then the lowest id.
func (r *Resolver) Active(ctx context.Context) (*model.EmailCredential, error) {
	cred, err := r.finder.ActiveCredential(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active credential: %w", err)
	}
	return cred, nil
}

func (r *Resolver) Resolve(ctx context.Context) (Transport, error) {
	cred, err := r.Active(ctx)
	if err != nil {
		return Transport{}, err
	}

	if cred != nil {
		r.logger.DebugContext(ctx, "using stored email credential", "credential_id", cred.ID, "name", cred.Name)
		return Transport{
			Mailer:       r.forCredential(cred),
			Sender:       cred.FromEmail,
			Provider:     mailer.ProviderSMTP,
			CredentialID: cred.ID,
		}, nil
	}

	provider := r.cfg.Provider
	if provider == "" {
		provider = mailer.ProviderLog
	}
	r.logger.DebugContext(ctx, "no active email credential, using default transport", "provider", provider)
	return Transport{
		Mailer:   r.fallback,
		Sender:   r.cfg.DefaultFrom,
		Provider: provider,
	}, nil
}
