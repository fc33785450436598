package mailer

import (
	"fmt"
	"log/slog"

	"github.com/noahxzhu/contract-reminder/internal/config"
	"github.com/noahxzhu/contract-reminder/internal/errs"
	"github.com/noahxzhu/contract-reminder/internal/model"
)

// ForCredential returns an SMTP mailer for a stored credential.
func ForCredential(cred *model.EmailCredential, cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		Host:     cred.SMTPHost,
		Port:     cred.SMTPPort,
		Username: cred.Username,
		Password: cred.Password,
		UseTLS:   cred.UseTLS,
		UseSSL:   cred.UseSSL,
		Timeout:  cfg.Timeout,
	}
}

// FromConfig returns the fallback mailer for cfg.Provider.
func FromConfig(cfg config.MailConfig, logger *slog.Logger) (Mailer, error) {
	switch cfg.Provider {
	case ProviderLog, "":
		return &LogMailer{Logger: logger}, nil
	case ProviderSMTP:
		return &SMTPMailer{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			UseTLS:   cfg.SMTP.UseTLS,
			UseSSL:   cfg.SMTP.UseSSL,
			Timeout:  cfg.SMTP.Timeout,
		}, nil
	case ProviderSendGrid:
		return NewSendGridMailer(cfg.SendGrid.APIKey, cfg.SendGrid.FromName, cfg.SendGrid.Timeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrUnsupportedProvider, cfg.Provider)
	}
}
