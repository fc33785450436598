package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahxzhu/contract-reminder/internal/config"
	"github.com/noahxzhu/contract-reminder/internal/errs"
	"github.com/noahxzhu/contract-reminder/internal/model"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage("from@example.com", []string{"to@example.com"},
		WithSubject("Contract reminder: Cleaning"),
		WithText("Vendor: Acme\n"),
	)
	assert.Equal(t, "from@example.com", msg.From)
	assert.Equal(t, []string{"to@example.com"}, msg.To)
	assert.Equal(t, "Contract reminder: Cleaning", msg.Subject)
	assert.Equal(t, "Vendor: Acme\n", msg.Text)
}

func TestBuildMessage(t *testing.T) {
	data, err := buildMessage(Message{
		From:    "from@example.com",
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Hello",
		Text:    "line one\nline two\n",
	})
	require.NoError(t, err)
	raw := string(data)

	assert.True(t, strings.HasPrefix(raw, "From: from@example.com\r\nTo: a@example.com, b@example.com\r\nSubject: Hello\r\n"))
	assert.Contains(t, raw, "Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	assert.True(t, strings.HasSuffix(raw, "line one\r\nline two\r\n"))
}

func TestBuildMessageRejectsHeaderLineBreaks(t *testing.T) {
	base := Message{From: "from@example.com", To: []string{"a@example.com"}, Subject: "Hello", Text: "body\n"}

	tests := []struct {
		name   string
		mutate func(*Message)
	}{
		{name: "subject", mutate: func(m *Message) { m.Subject = "Contract reminder: Cleaning\r\nBcc: attacker@evil.example" }},
		{name: "bare newline", mutate: func(m *Message) { m.Subject = "Hello\nBcc: attacker@evil.example" }},
		{name: "from", mutate: func(m *Message) { m.From = "from@example.com\r\nBcc: attacker@evil.example" }},
		{name: "recipient", mutate: func(m *Message) { m.To = []string{"a@example.com\nBcc: attacker@evil.example"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := base
			msg.To = append([]string(nil), base.To...)
			tt.mutate(&msg)

			data, err := buildMessage(msg)
			assert.ErrorIs(t, err, errs.ErrInvalidHeader)
			assert.Nil(t, data)
		})
	}
}

func TestSMTPMailerRejectsHeaderLineBreaksBeforeDialing(t *testing.T) {
	// Nothing listens on this port; a dial attempt would fail with a different error.
	m := &SMTPMailer{Host: "127.0.0.1", Port: 1, Timeout: time.Second}

	err := m.Send(context.Background(), NewMessage("from@example.com", []string{"vendor@example.com"},
		WithSubject("Contract reminder: Cleaning\r\nBcc: attacker@evil.example"),
		WithText("Vendor: Acme\n"),
	))
	assert.ErrorIs(t, err, errs.ErrInvalidHeader)
}

func TestSMTPMailerTLSConfigVerifiesLocalhost(t *testing.T) {
	cfg := (&SMTPMailer{Host: "localhost"}).tlsConfig()
	assert.False(t, cfg.InsecureSkipVerify)
	assert.Equal(t, "localhost", cfg.ServerName)

	custom := &tls.Config{ServerName: "mail.internal"}
	assert.Same(t, custom, (&SMTPMailer{Host: "localhost", TLSConfig: custom}).tlsConfig())
}

type smtpSession struct {
	from string
	rcpt []string
	data string
}

// serveSMTP answers one plain SMTP session and reports what it received.
func serveSMTP(t *testing.T, ln net.Listener) <-chan smtpSession {
	t.Helper()
	done := make(chan smtpSession, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		var s smtpSession

		_ = tp.PrintfLine("220 localhost ESMTP test")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				_ = tp.PrintfLine("250 localhost")
			case strings.HasPrefix(cmd, "MAIL FROM:"):
				s.from = strings.Trim(line[len("MAIL FROM:"):], "<>")
				_ = tp.PrintfLine("250 OK")
			case strings.HasPrefix(cmd, "RCPT TO:"):
				s.rcpt = append(s.rcpt, strings.Trim(line[len("RCPT TO:"):], "<>"))
				_ = tp.PrintfLine("250 OK")
			case cmd == "DATA":
				_ = tp.PrintfLine("354 go ahead")
				body, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				s.data = string(body)
				_ = tp.PrintfLine("250 queued")
			case cmd == "QUIT":
				_ = tp.PrintfLine("221 bye")
				done <- s
				return
			default:
				_ = tp.PrintfLine("502 not implemented")
			}
		}
	}()
	return done
}

func TestSMTPMailerSend(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	done := serveSMTP(t, ln)

	addr := ln.Addr().(*net.TCPAddr)
	m := &SMTPMailer{Host: "127.0.0.1", Port: addr.Port, Timeout: 2 * time.Second}

	err = m.Send(context.Background(), NewMessage("from@example.com", []string{"vendor@example.com"},
		WithSubject("Contract reminder: Cleaning"),
		WithText("Vendor: Acme\n"),
	))
	require.NoError(t, err)

	select {
	case s := <-done:
		assert.Equal(t, "from@example.com", s.from)
		assert.Equal(t, []string{"vendor@example.com"}, s.rcpt)
		assert.Contains(t, s.data, "Subject: Contract reminder: Cleaning")
		assert.Contains(t, s.data, "Vendor: Acme")
	case <-time.After(2 * time.Second):
		t.Fatal("smtp session did not complete")
	}
}

func TestSMTPMailerRequiresAuthWhenUsernameSet(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	done := serveSMTP(t, ln)

	addr := ln.Addr().(*net.TCPAddr)
	m := &SMTPMailer{Host: "127.0.0.1", Port: addr.Port, Username: "user", Password: "secret", Timeout: 2 * time.Second}

	err = m.Send(context.Background(), NewMessage("from@example.com", []string{"vendor@example.com"},
		WithSubject("Contract reminder: Cleaning"),
		WithText("Vendor: Acme\n"),
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not support AUTH")

	select {
	case s := <-done:
		t.Fatalf("message delivered without authentication: %+v", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSMTPMailerDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	m := &SMTPMailer{Host: "127.0.0.1", Port: port, Timeout: time.Second}
	err = m.Send(context.Background(), NewMessage("from@example.com", []string{"to@example.com"}))
	assert.Error(t, err)
}

func TestSMTPMailerRequiresRecipients(t *testing.T) {
	m := &SMTPMailer{Host: "127.0.0.1", Port: 25}
	assert.Error(t, m.Send(context.Background(), NewMessage("from@example.com", nil)))
}

func TestSendGridMailer(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		expectError bool
	}{
		{name: "accepted", status: http.StatusAccepted},
		{name: "rejected", status: http.StatusUnauthorized, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload map[string]any
			var auth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				auth = r.Header.Get("Authorization")
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &payload)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			m := NewSendGridMailer("SG.test", "Contracts", time.Second)
			m.Client.BaseURL = srv.URL + "/v3/mail/send"

			err := m.Send(context.Background(), NewMessage("from@example.com", []string{"to@example.com"},
				WithSubject("Contract reminder: Hosting"),
				WithText("Vendor: Acme\n"),
			))

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Bearer SG.test", auth)
			assert.Equal(t, "Contract reminder: Hosting", payload["subject"])
			from := payload["from"].(map[string]any)
			assert.Equal(t, "from@example.com", from["email"])
			assert.Equal(t, "Contracts", from["name"])
		})
	}
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := &LogMailer{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	require.NoError(t, m.Send(context.Background(), NewMessage("from@example.com", []string{"to@example.com"}, WithSubject("Hi"))))
	assert.Contains(t, buf.String(), "subject=Hi")
}

func TestFromConfig(t *testing.T) {
	m, err := FromConfig(config.MailConfig{Provider: ProviderLog}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	m, err = FromConfig(config.MailConfig{Provider: ProviderSMTP, SMTP: config.SMTPConfig{Host: "smtp.example.com", Port: 587, UseTLS: true}}, nil)
	require.NoError(t, err)
	smtpMailer := m.(*SMTPMailer)
	assert.Equal(t, "smtp.example.com", smtpMailer.Host)
	assert.True(t, smtpMailer.UseTLS)

	m, err = FromConfig(config.MailConfig{Provider: ProviderSendGrid, SendGrid: config.SendGridConfig{APIKey: "k"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SendGridMailer{}, m)

	_, err = FromConfig(config.MailConfig{Provider: "pigeon"}, nil)
	assert.ErrorIs(t, err, errs.ErrUnsupportedProvider)
}

func TestForCredential(t *testing.T) {
	cred := &model.EmailCredential{SMTPHost: "smtp.example.com", SMTPPort: 465, Username: "u", Password: "p", UseSSL: true}
	m := ForCredential(cred, config.SMTPConfig{Timeout: 3 * time.Second})

	assert.Equal(t, "smtp.example.com", m.Host)
	assert.Equal(t, 465, m.Port)
	assert.Equal(t, "p", m.Password)
	assert.True(t, m.UseSSL)
	assert.Equal(t, 3*time.Second, m.Timeout)
}
