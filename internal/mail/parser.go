package mail

import (
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/microcosm-cc/bluemonday"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var (
	htmlStripper   = bluemonday.StrictPolicy()
	collapseBlanks = regexp.MustCompile(`\n{3,}`)
)

// Parser turns raw RFC 5322 messages into the intake pipeline's
// representation. It is stateless and safe for concurrent use.
type Parser struct{}

// NewParser instantiates a parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a full raw message. Malformed MIME structure inside a part is
// tolerated where possible; a message without any parseable envelope fails.
func (p *Parser) Parse(raw io.Reader) (*domain.InboundMessage, error) {
	reader, err := mail.CreateReader(raw)
	if err != nil {
		return nil, fmt.Errorf("parse message envelope: %w", err)
	}
	defer reader.Close()

	header := reader.Header
	msg := &domain.InboundMessage{
		Headers: map[string]string{},
	}

	msg.Subject, _ = header.Subject()
	if id, err := header.MessageID(); err == nil {
		msg.MessageID = id
	}
	if ids, err := header.MsgIDList("In-Reply-To"); err == nil && len(ids) > 0 {
		msg.InReplyTo = ids[0]
	}
	if refs, err := header.MsgIDList("References"); err == nil {
		msg.References = refs
	}
	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		msg.FromAddress = strings.ToLower(from[0].Address)
	}
	msg.ToAddresses = addressStrings(header, "To")
	msg.CcAddresses = addressStrings(header, "Cc")

	fields := header.Fields()
	for fields.Next() {
		text, err := fields.Text()
		if err != nil {
			text = fields.Value()
		}
		msg.Headers[strings.ToLower(fields.Key())] = text
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A broken part should not lose the rest of the message.
			continue
		}
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.EqualFold(contentType, "text/plain") && msg.BodyText == "":
				msg.BodyText = string(body)
			case strings.EqualFold(contentType, "text/html") && msg.BodyHTML == "":
				msg.BodyHTML = string(body)
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			size, _ := io.Copy(io.Discard, part.Body)
			msg.Attachments = append(msg.Attachments, domain.AttachmentInfo{
				FileName:    filename,
				ContentType: contentType,
				SizeBytes:   size,
			})
		}
	}

	if msg.BodyText == "" && msg.BodyHTML != "" {
		msg.BodyText = StripHTML(msg.BodyHTML)
	}
	return msg, nil
}

// StripHTML reduces an HTML body to plain text for classification and
// matching.
func StripHTML(body string) string {
	stripped := htmlStripper.Sanitize(body)
	stripped = html.UnescapeString(stripped)
	stripped = collapseBlanks.ReplaceAllString(stripped, "\n\n")
	return strings.TrimSpace(stripped)
}

func addressStrings(header mail.Header, key string) []string {
	list, err := header.AddressList(key)
	if err != nil || len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, addr := range list {
		out = append(out, strings.ToLower(addr.Address))
	}
	return out
}
