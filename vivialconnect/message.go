package vivialconnect

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/vivialconnect/requestor"
	"github.com/s0up4200/vivialconnect/resource"
)

var (
	MessageKind    = resource.NewKind("Message")
	AttachmentKind = resource.NewKind("Attachment")
)

// Message is an SMS or MMS, inbound or outbound
type Message struct {
	*resource.Resource
}

func wrapMessage(r *resource.Resource) *Message {
	return &Message{Resource: r}
}

// FromNumber returns the sender
func (m *Message) FromNumber() string { return m.String("from_number") }

// ToNumber returns the recipient
func (m *Message) ToNumber() string { return m.String("to_number") }

// Body returns the message text
func (m *Message) Body() string { return m.String("body") }

// Status returns the delivery status, e.g. accepted, delivered, received
func (m *Message) Status() string { return m.String("status") }

// Direction returns inbound or outbound-api
func (m *Message) Direction() string { return m.String("direction") }

// MessageType returns local_sms, local_mms and so on
func (m *Message) MessageType() string { return m.String("message_type") }

// NumMedia returns the number of media attachments
func (m *Message) NumMedia() int { return int(m.Int("num_media")) }

// BulkID returns the bulk the message was sent in, if any
func (m *Message) BulkID() string { return m.String("bulk_id") }

// Attachment is a media file attached to a message
type Attachment struct {
	*resource.Resource
}

func wrapAttachment(r *resource.Resource) *Attachment {
	return &Attachment{Resource: r}
}

// ContentType returns the MIME type of the file
func (a *Attachment) ContentType() string { return a.String("content_type") }

// FileName returns the original file name
func (a *Attachment) FileName() string { return a.String("file_name") }

// Size returns the file size in bytes
func (a *Attachment) Size() int64 { return a.Int("size") }

// Bulk summarizes one bulk send. It is a plain value, not a resource.
type Bulk struct {
	BulkID        string    `mapstructure:"bulk_id" json:"bulk_id" yaml:"bulk_id"`
	TotalMessages int       `mapstructure:"total_messages" json:"total_messages" yaml:"total_messages"`
	Processed     int       `mapstructure:"processed" json:"processed" yaml:"processed"`
	Errors        int       `mapstructure:"errors" json:"errors" yaml:"errors"`
	DateCreated   time.Time `mapstructure:"date_created" json:"date_created" yaml:"date_created"`
}

// MessageService sends and queries messages
type MessageService struct {
	crud[*Message]
	logger zerolog.Logger
}

// Send validates and creates an outbound message
func (s *MessageService) Send(ctx context.Context, m *Message) error {
	var out outgoingMessage
	if err := m.Decode(&out); err != nil {
		return err
	}
	if err := out.validate(false); err != nil {
		return err
	}
	return s.Save(ctx, m)
}

// SendBulk sends m to every number in its to_numbers attribute and returns
// the bulk id. Invalid recipients are all reported together and nothing is
// sent.
func (s *MessageService) SendBulk(ctx context.Context, m *Message) (string, error) {
	var out outgoingMessage
	if err := m.Decode(&out); err != nil {
		return "", err
	}
	if err := validateRecipients(out.ToNumbers); err != nil {
		return "", err
	}
	if err := out.validate(true); err != nil {
		return "", err
	}

	// The bulk endpoint takes the message as query parameters, not a body
	path := s.kind.CustomPath(s.c.AccountID(), "", nil, "/bulk")
	body, err := s.c.Do(ctx, http.MethodPost, path, m.Attributes(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to send bulk message: %w", err)
	}
	resp, _ := body.(map[string]any)
	bulkID, ok := resp["bulk_id"].(string)
	if !ok || bulkID == "" {
		return "", fmt.Errorf("%w: bulk response has no bulk_id", requestor.ErrResource)
	}

	s.logger.Debug().
		Str("bulk_id", bulkID).
		Int("recipients", len(out.ToNumbers)).
		Msg("Bulk message accepted")

	return bulkID, nil
}

// BulkMessages lists the messages created by one bulk send
func (s *MessageService) BulkMessages(ctx context.Context, bulkID string) ([]*Message, error) {
	if bulkID == "" {
		return nil, fmt.Errorf("%w: bulk id is required", requestor.ErrResource)
	}
	body, err := s.c.Get(ctx, s.kind, nil, "/bulk/"+bulkID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk %s: %w", bulkID, err)
	}
	rs, err := resource.BuildList(s.kind, "", body)
	if err != nil {
		return nil, err
	}
	return wrapAll(rs, wrapMessage), nil
}

// Bulks lists every bulk send of the account
func (s *MessageService) Bulks(ctx context.Context) ([]Bulk, error) {
	body, err := s.c.Get(ctx, s.kind, nil, "/bulk", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list bulks: %w", err)
	}

	var raw []any
	if m, ok := body.(map[string]any); ok {
		for _, v := range m {
			if list, ok := v.([]any); ok {
				raw = list
				break
			}
		}
	}

	bulks := make([]Bulk, 0, len(raw))
	for _, item := range raw {
		var b Bulk
		if err := resource.DecodeMap(item, &b); err != nil {
			return nil, err
		}
		bulks = append(bulks, b)
	}
	return bulks, nil
}

func attachmentScope(m *Message) resource.CallOption {
	return resource.In(resource.Prefix(MessageKind.Plural, m.ID()))
}

// Attachments lists the attachments of m
func (s *MessageService) Attachments(ctx context.Context, m *Message, query map[string]any) ([]*Attachment, error) {
	rs, err := s.c.FindAll(ctx, AttachmentKind, query, attachmentScope(m))
	if err != nil {
		return nil, err
	}
	return wrapAll(rs, wrapAttachment), nil
}

// Attachment fetches one attachment of m
func (s *MessageService) Attachment(ctx context.Context, m *Message, id any) (*Attachment, error) {
	r, err := s.c.Find(ctx, AttachmentKind, id, nil, attachmentScope(m))
	if err != nil {
		return nil, err
	}
	return wrapAttachment(r), nil
}

// AttachmentsCount returns the number of attachments of m
func (s *MessageService) AttachmentsCount(ctx context.Context, m *Message, query map[string]any) (int, error) {
	return s.c.Count(ctx, AttachmentKind, query, attachmentScope(m))
}

// AddAttachment creates an attachment record on m
func (s *MessageService) AddAttachment(ctx context.Context, m *Message, attrs map[string]any) (*Attachment, error) {
	r, err := s.c.Create(ctx, AttachmentKind, attrs, attachmentScope(m))
	if err != nil {
		return nil, err
	}
	return wrapAttachment(r), nil
}

// SaveAttachment updates an attachment
func (s *MessageService) SaveAttachment(ctx context.Context, a *Attachment) error {
	return s.c.Save(ctx, a.Raw())
}

// DestroyAttachment deletes an attachment
func (s *MessageService) DestroyAttachment(ctx context.Context, a *Attachment) error {
	return s.c.Destroy(ctx, a.Raw())
}
