package vivialconnect

import (
	"fmt"

	"github.com/s0up4200/vivialconnect/resource"
)

// ConnectorKind addresses /accounts/{id}/connectors
var ConnectorKind = resource.NewKind("Connector")

// ConnectorNumber associates a phone number with a connector. Either field
// identifies the number.
type ConnectorNumber struct {
	PhoneNumber   string `mapstructure:"phone_number" json:"phone_number,omitempty" yaml:"phone_number,omitempty"`
	PhoneNumberID int64  `mapstructure:"phone_number_id" json:"phone_number_id,omitempty" yaml:"phone_number_id,omitempty"`
}

// Identity returns the phone number
func (n ConnectorNumber) Identity() string {
	return n.PhoneNumber
}

// ConnectorCallback routes one message and event type to a URL
type ConnectorCallback struct {
	MessageType string `mapstructure:"message_type" json:"message_type" yaml:"message_type"`
	EventType   string `mapstructure:"event_type" json:"event_type" yaml:"event_type"`
	URL         string `mapstructure:"url" json:"url" yaml:"url"`
	Method      string `mapstructure:"method" json:"method" yaml:"method"`
}

// Identity names the callback by its message and event type
func (c ConnectorCallback) Identity() string {
	return fmt.Sprintf("message_type: %s, event_type: %s", c.MessageType, c.EventType)
}

// Connector groups phone numbers that share callbacks
type Connector struct {
	*resource.Resource
}

func wrapConnector(r *resource.Resource) *Connector {
	return &Connector{Resource: r}
}

// Name returns the connector label
func (c *Connector) Name() string { return c.String("name") }

// MoreNumbers reports whether more than the listed numbers are associated
func (c *Connector) MoreNumbers() bool { return c.Bool("more_numbers") }

// PhoneNumbers decodes the phone_numbers attribute
func (c *Connector) PhoneNumbers() ([]ConnectorNumber, error) {
	var out []ConnectorNumber
	if v, ok := c.Get("phone_numbers"); ok && v != nil {
		if err := resource.DecodeMap(v, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SetPhoneNumbers replaces the phone_numbers attribute
func (c *Connector) SetPhoneNumbers(numbers []ConnectorNumber) {
	list := make([]any, 0, len(numbers))
	for _, n := range numbers {
		m := map[string]any{}
		if n.PhoneNumber != "" {
			m["phone_number"] = n.PhoneNumber
		}
		if n.PhoneNumberID != 0 {
			m["phone_number_id"] = n.PhoneNumberID
		}
		list = append(list, m)
	}
	c.Set("phone_numbers", list)
}

// Callbacks decodes the callbacks attribute
func (c *Connector) Callbacks() ([]ConnectorCallback, error) {
	var out []ConnectorCallback
	if v, ok := c.Get("callbacks"); ok && v != nil {
		if err := resource.DecodeMap(v, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SetCallbacks replaces the callbacks attribute
func (c *Connector) SetCallbacks(callbacks []ConnectorCallback) {
	list := make([]any, 0, len(callbacks))
	for _, cb := range callbacks {
		list = append(list, map[string]any{
			"message_type": cb.MessageType,
			"event_type":   cb.EventType,
			"url":          cb.URL,
			"method":       cb.Method,
		})
	}
	c.Set("callbacks", list)
}

// ConnectorService manages connectors
type ConnectorService struct {
	crud[*Connector]
}
