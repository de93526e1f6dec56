package vivialconnect

import "github.com/s0up4200/vivialconnect/resource"

// ConfigurationKind addresses /accounts/{id}/configurations
var ConfigurationKind = resource.NewKind("Configuration")

// Configuration holds the callback URLs used for a phone number or for
// messages that reference it by sms_configuration_id.
type Configuration struct {
	*resource.Resource
}

func wrapConfiguration(r *resource.Resource) *Configuration {
	return &Configuration{Resource: r}
}

func (c *Configuration) Name() string                  { return c.String("name") }
func (c *Configuration) PhoneNumber() string           { return c.String("phone_number") }
func (c *Configuration) SMSURL() string                { return c.String("sms_url") }
func (c *Configuration) SMSFallbackURL() string        { return c.String("sms_fallback_url") }
func (c *Configuration) MessageStatusCallback() string { return c.String("message_status_callback") }

// ConfigurationService manages callback configurations
type ConfigurationService struct {
	crud[*Configuration]
}
