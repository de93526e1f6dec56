package vivialconnect

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/s0up4200/vivialconnect/requestor"
)

// phoneNumber matches up to 15 digits with an optional leading +. It admits
// E.164 numbers, national numbers such as 12223335555 and short codes.
var phoneNumber = regexp.MustCompile(`^\+?[0-9]{1,15}$`)

var phoneNumberRule = validation.Match(phoneNumber).Error("must be a phone number of digits with an optional leading +")

// outgoingMessage is the part of a message checked before sending
type outgoingMessage struct {
	FromNumber string
	ToNumber   string
	ToNumbers  []string
	Body       string
	MediaURLs  []string `mapstructure:"media_urls"`
}

func (m outgoingMessage) validate(bulk bool) error {
	err := validation.ValidateStruct(&m,
		validation.Field(&m.ToNumber, validation.When(!bulk, validation.Required), phoneNumberRule),
		validation.Field(&m.FromNumber, phoneNumberRule),
		validation.Field(&m.Body, validation.When(len(m.MediaURLs) == 0, validation.Required.Error("body or media_urls is required"))),
		validation.Field(&m.MediaURLs, validation.Each(validation.Required)),
	)
	if err != nil {
		return fmt.Errorf("%w: invalid message: %w", requestor.ErrResource, err)
	}
	return nil
}

// validateRecipients checks every bulk recipient and reports all invalid
// numbers at once.
func validateRecipients(numbers []string) error {
	if len(numbers) == 0 {
		return fmt.Errorf("%w: property 'to_numbers' is required", requestor.ErrResource)
	}

	var result *multierror.Error
	for i, n := range numbers {
		if err := validation.Validate(n, validation.Required, phoneNumberRule); err != nil {
			result = multierror.Append(result, fmt.Errorf("to_numbers[%d] %q: %w", i, n, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", requestor.ErrResource, err)
	}
	return nil
}
