package emailbridge

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/medforce/clinic-sim/pkg/logging"
)

// IMAPFetcher pulls unread mail from the clinic inbox. Each Fetch dials a
// fresh session; the bridge polls slowly enough that holding a connection
// open buys nothing and long-lived IMAP sessions get dropped by providers
// anyway.
type IMAPFetcher struct {
	host     string // host:port, TLS
	username string
	password string
	logger   *logging.Logger
}

func NewIMAPFetcher(host, username, password string, logger *logging.Logger) *IMAPFetcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &IMAPFetcher{host: host, username: username, password: password, logger: logger}
}

// Fetch returns the unread messages in INBOX and marks them read.
func (f *IMAPFetcher) Fetch(ctx context.Context) ([]InboundEmail, error) {
	c, err := client.DialTLS(f.host, nil)
	if err != nil {
		return nil, fmt.Errorf("emailbridge: dial %s: %w", f.host, err)
	}
	defer c.Logout()

	if err := c.Login(f.username, f.password); err != nil {
		return nil, fmt.Errorf("emailbridge: login: %w", err)
	}
	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("emailbridge: select inbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("emailbridge: search unseen: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	// Non-peek fetch marks the messages seen.
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var emails []InboundEmail
	for msg := range messages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		email, ok := f.decode(msg, section)
		if ok {
			emails = append(emails, email)
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("emailbridge: fetch messages: %w", err)
	}
	return emails, nil
}

func (f *IMAPFetcher) decode(msg *imap.Message, section *imap.BodySectionName) (InboundEmail, bool) {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return InboundEmail{}, false
	}
	from := msg.Envelope.From[0]

	body := msg.GetBody(section)
	if body == nil {
		return InboundEmail{}, false
	}
	text, err := extractPlainText(body)
	if err != nil {
		f.logger.Warn("message body unreadable", "from", from.Address(), "error", err)
		return InboundEmail{}, false
	}

	return InboundEmail{
		From:    from.Address(),
		Name:    from.PersonalName,
		Subject: msg.Envelope.Subject,
		Body:    text,
	}, true
}

// extractPlainText reads an RFC 822 message and returns its text/plain
// content, descending one level into multipart bodies.
func extractPlainText(r io.Reader) (string, error) {
	m, err := mail.ReadMessage(r)
	if err != nil {
		return "", err
	}

	contentType := m.Header.Get("Content-Type")
	if contentType == "" {
		b, err := io.ReadAll(m.Body)
		return string(b), err
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		b, err := io.ReadAll(m.Body)
		return string(b), err
	}

	mr := multipart.NewReader(m.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return "", fmt.Errorf("no text/plain part")
		}
		if err != nil {
			return "", err
		}
		partType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err == nil && partType == "text/plain" {
			b, err := io.ReadAll(part)
			return string(b), err
		}
	}
}
