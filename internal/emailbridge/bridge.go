// Package emailbridge runs the intake conversation over a clinic mailbox.
// Patients without the chat frontend email the clinic; the bridge feeds each
// message through the same orchestrator and mails the reply back.
package emailbridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medforce/clinic-sim/internal/intake"
	"github.com/medforce/clinic-sim/internal/notify"
	"github.com/medforce/clinic-sim/pkg/logging"
)

// maxBodyLength caps how much of an email body reaches the model. Long
// quoted threads add nothing the stored history does not already have.
const maxBodyLength = 1000

// InboundEmail is one unread message pulled from the clinic mailbox.
type InboundEmail struct {
	From    string
	Name    string
	Subject string
	Body    string
}

// MailFetcher pulls unread clinic mail. Implementations mark fetched
// messages as read so a message is processed once.
type MailFetcher interface {
	Fetch(ctx context.Context) ([]InboundEmail, error)
}

// ChatService is the intake surface the bridge drives.
type ChatService interface {
	HandleMessage(ctx context.Context, patientID string, req intake.Request) (intake.Result, error)
}

// Bridge polls the mailbox and answers intake messages.
type Bridge struct {
	fetcher  MailFetcher
	chat     ChatService
	sender   notify.EmailSender
	subject  string
	interval time.Duration
	logger   *logging.Logger
}

// Config carries the Bridge's collaborators.
type Config struct {
	Fetcher  MailFetcher
	Chat     ChatService
	Sender   notify.EmailSender
	Subject  string // only messages whose subject contains this are handled
	Interval time.Duration
	Logger   *logging.Logger
}

// New wires a Bridge.
func New(cfg Config) *Bridge {
	if cfg.Fetcher == nil {
		panic("emailbridge: fetcher cannot be nil")
	}
	if cfg.Chat == nil {
		panic("emailbridge: chat service cannot be nil")
	}
	if cfg.Sender == nil {
		panic("emailbridge: email sender cannot be nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Bridge{
		fetcher:  cfg.Fetcher,
		chat:     cfg.Chat,
		sender:   cfg.Sender,
		subject:  cfg.Subject,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Run polls until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("email bridge started", "interval", b.interval.String(), "subject", b.subject)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("email bridge stopped")
			return ctx.Err()
		case <-ticker.C:
			b.Poll(ctx)
		}
	}
}

// Poll processes one batch of unread mail. Failures are logged per message;
// one broken email does not stop the batch.
func (b *Bridge) Poll(ctx context.Context) {
	emails, err := b.fetcher.Fetch(ctx)
	if err != nil {
		b.logger.Error("mailbox fetch failed", "error", err)
		return
	}
	for _, email := range emails {
		if b.subject != "" && !strings.Contains(email.Subject, b.subject) {
			continue
		}
		b.respond(ctx, email)
	}
}

func (b *Bridge) respond(ctx context.Context, email InboundEmail) {
	patientID := PatientIDForAddress(email.From)
	if patientID == "" {
		b.logger.Warn("unusable sender address", "from", email.From)
		return
	}

	body := CleanEmailBody(email.Body)
	result, err := b.chat.HandleMessage(ctx, patientID, intake.Request{PatientMessage: body})
	if err != nil {
		// Same contract as the chat endpoints: the patient always gets the
		// apology, never silence.
		result = intake.FallbackResult()
	}

	reply := notify.EmailMessage{
		To:      email.From,
		ToName:  email.Name,
		Subject: replySubject(email.Subject),
		Body:    result.Message(),
	}
	if err := b.sender.Send(ctx, reply); err != nil {
		b.logger.Error("reply send failed", "patient_id", patientID, "to", email.From, "error", err)
		return
	}
	b.logger.Info("email turn handled", "patient_id", patientID, "action", result.ActionTypeField())
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return fmt.Sprintf("Re: %s", subject)
}

// PatientIDForAddress derives the stable conversation key for an email
// correspondent. The address itself is the identity.
func PatientIDForAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return ""
	}
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, addr)
	if len(id) > 64 {
		id = id[:64]
	}
	return id
}

// CleanEmailBody strips quoted reply threads and signatures so only the
// patient's new text reaches the model.
func CleanEmailBody(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	var kept []string
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">") {
			break
		}
		if strings.HasPrefix(trimmed, "-----Original Message-----") {
			break
		}
		if strings.HasPrefix(trimmed, "On ") && strings.HasSuffix(trimmed, "wrote:") {
			break
		}
		if strings.HasPrefix(trimmed, "From:") && nextLineStartsWith(lines, i+1, "Sent:") {
			break
		}
		kept = append(kept, line)
	}
	out := strings.TrimSpace(strings.Join(kept, "\n"))
	if len(out) > maxBodyLength {
		out = out[:maxBodyLength]
	}
	return out
}

func nextLineStartsWith(lines []string, idx int, prefix string) bool {
	return idx < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[idx]), prefix)
}
