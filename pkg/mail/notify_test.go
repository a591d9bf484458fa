package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type captureMailer struct {
	sent []Message
	err  error
}

func (m *captureMailer) Send(ctx context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestNotifierSendsVerifyLink(t *testing.T) {
	mailer := &captureMailer{}
	n := NewNotifier(mailer, "https://chirp.example/")

	if err := n.SendVerifyEmail(context.Background(), "a@x.com", "tok123"); err != nil {
		t.Fatalf("send verify email: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.To[0] != "a@x.com" {
		t.Fatalf("unexpected recipient: %v", msg.To)
	}
	want := "https://chirp.example/verify-email?token=tok123"
	if !strings.Contains(msg.Body, want) {
		t.Fatalf("body missing link %q:\n%s", want, msg.Body)
	}
}

func TestNotifierFallsBackToLoggingWhenDisabled(t *testing.T) {
	mailer := &captureMailer{err: ErrSMTPDisabled}
	n := NewNotifier(mailer, "")

	if err := n.SendResetPassword(context.Background(), "a@x.com", "tok"); err != nil {
		t.Fatalf("expected logging fallback, got %v", err)
	}
}

func TestNotifierPropagatesTransportErrors(t *testing.T) {
	mailer := &captureMailer{err: errors.New("relay down")}
	n := NewNotifier(mailer, "")

	if err := n.SendResetPassword(context.Background(), "a@x.com", "tok"); err == nil {
		t.Fatal("expected transport error to propagate")
	}
}
