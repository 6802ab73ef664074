package domain

import "strings"

// InboundMessage is a MIME-parsed email produced by the mail transport.
// Immutable once received.
type InboundMessage struct {
	Subject     string
	FromAddress string
	ToAddresses []string
	CcAddresses []string
	MessageID   string
	InReplyTo   string
	References  []string
	BodyText    string
	BodyHTML    string
	Headers     map[string]string
	Attachments []AttachmentInfo
}

// AttachmentInfo carries attachment metadata; content storage is handled elsewhere.
type AttachmentInfo struct {
	FileName    string
	ContentType string
	SizeBytes   int64
}

// Header returns a protocol header value. The parser stores keys lowercased,
// so lookup is case-insensitive on the name.
func (m *InboundMessage) Header(name string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[strings.ToLower(name)]
}
